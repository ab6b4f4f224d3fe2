package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pixelart-build/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	for _, key := range []string{
		"BUILD_DIR", "PROGNAME", "ESP32_FS_IMAGE_NAME", "ESP32_APP_OFFSET", "FS_START",
		"UPLOADERFLAGS", "FLASH_EXTRA_IMAGES", "BOOT_APP0", "PYTHONEXE", "OBJCOPY",
		"BUILD_FLAGS", "DEBUG_LOG", "PROJECT_DATA_DIR", "DIST_DIR", "WEBFLASH_DIR",
		"WWW_DIR", "WWW_MINIFIED_DIR", "MANIFEST_IGNORE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	return out.String(), err
}

func TestFileListCommand(t *testing.T) {
	isolateEnv(t)
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "files", "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "files", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "files", "a", "z.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "files", "a", "a.txt"), nil, 0o644))

	out, err := execute(t, "filelist", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 directories)")

	data, err := os.ReadFile(filepath.Join(dataDir, "files", "file_list.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"/files": {"a": ["a.txt", "z.txt"], "b": []}}`, string(data))
}

func TestMinifyCommand(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	src := filepath.Join(root, "www")
	dst := filepath.Join(root, "www_minified")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.htm"), []byte("<p>  hi  </p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "debug_log.htm"), []byte("<p>log</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "js", "app.js"), []byte("var a = 1;"), 0o644))

	t.Run("debug log excluded by default", func(t *testing.T) {
		out, err := execute(t, "minify", "--src", src, "--out", dst)
		require.NoError(t, err)
		assert.Contains(t, out, "Excluded: debug_log.htm")
		assert.FileExists(t, filepath.Join(dst, "index.htm.gz"))
		assert.NoFileExists(t, filepath.Join(dst, "debug_log.htm.gz"))
		assert.FileExists(t, filepath.Join(dst, "js", "app.js"))
	})

	t.Run("debug log included from build flags", func(t *testing.T) {
		t.Setenv("BUILD_FLAGS", "-DCORE_DEBUG_LEVEL=0 -DDEBUG_LOG=1")
		_, err := execute(t, "minify", "--src", src, "--out", dst, "--encoding", "gzip,br")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dst, "debug_log.htm.gz"))
		assert.FileExists(t, filepath.Join(dst, "debug_log.htm.br"))
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := execute(t, "minify", "--src", src, "--out", dst, "--encoding", "zstd")
		assert.Error(t, err)
	})
}

func TestDistCommand(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	buildDir := filepath.Join(root, "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	for _, name := range []string{"bootloader.bin", "partitions.bin", "boot_app0.bin", "firmware.bin", "littlefs.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(buildDir, name), []byte(name), 0o644))
	}

	snapshot := fmt.Sprintf(`
build_dir: %q
esp32_app_offset: "0x10000"
fs_start: 0x290000
boot_app0: %q
uploader_flags: [--chip, esp32, --port, COM3, write_flash, --flash_mode, dio, "0x1000", %q]
`, buildDir, filepath.Join(buildDir, "boot_app0.bin"), filepath.Join(buildDir, "bootloader.bin"))
	envFile := filepath.Join(root, "env.yaml")
	require.NoError(t, os.WriteFile(envFile, []byte(snapshot), 0o644))

	distDir := filepath.Join(root, "dist")
	out, err := execute(t, "--env-file", envFile, "dist", "--dist-dir", distDir, "--skip-merge")
	require.NoError(t, err)
	assert.Contains(t, out, "Packaged 5 artifacts")

	linux, err := os.ReadFile(filepath.Join(distDir, "upload_linux.sh"))
	require.NoError(t, err)
	assert.Equal(t,
		"#!/bin/bash\n./esptool/linux/esptool --no-stub --chip esp32 write_flash --flash_mode dio 0x1000 bootloader.bin 0x10000 firmware.bin 0x290000 littlefs.bin",
		string(linux))
	assert.FileExists(t, filepath.Join(distDir, "README.TXT"))
	assert.NoFileExists(t, filepath.Join(distDir, "merged_firmware.bin"))
}

func TestDistCommandMissingConfig(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "dist", "--skip-merge")
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}

func TestInvalidLogLevel(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "--log-level", "loud", "filelist", "--data-dir", t.TempDir())
	assert.Error(t, err)
}
