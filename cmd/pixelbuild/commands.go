/**
 * cmd/pixelbuild/commands.go
 * 子命令
 *
 * 功能：
 * - dist（buildfs 之后）
 * - filelist（文件系统镜像构建之前）
 * - minify（buildfs 之后）
 */

package main

import (
	"fmt"
	"strings"
	"time"

	"pixelart-build/internal/compress"
	"pixelart-build/internal/dist"
	"pixelart-build/internal/manifest"
	"pixelart-build/internal/utils"
	"pixelart-build/internal/webassets"

	"github.com/spf13/cobra"
)

// ====================  dist ====================

func newDistCmd(root *rootOptions) *cobra.Command {
	var (
		buildDir    string
		distDir     string
		webflashDir string
		skipMerge   bool
	)

	cmd := &cobra.Command{
		Use:   "dist",
		Short: "Copy build artifacts, write upload scripts and merge the firmware image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			setIfChanged(cmd, "build-dir", &cfg.BuildDir, buildDir)
			setIfChanged(cmd, "dist-dir", &cfg.DistDir, distDir)
			setIfChanged(cmd, "webflash-dir", &cfg.WebflashDir, webflashDir)

			if err := cfg.ValidateDist(); err != nil {
				return err
			}

			var merger dist.Merger
			if !skipMerge {
				merger = dist.ExecMerger{PythonExe: cfg.PythonExe, Objcopy: cfg.Objcopy}
			}

			stats := &utils.BuildStats{}
			res, err := dist.New(cfg, merger, stats).Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("dist failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Packaged %d artifacts into %s\n", len(res.Copied), cfg.DistDir)
			if res.Merged != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Merged firmware: %s\n", res.Merged)
			}
			report("dist", start, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&buildDir, "build-dir", "", "build output directory (or BUILD_DIR env)")
	cmd.Flags().StringVar(&distDir, "dist-dir", "", "distribution directory (or DIST_DIR env)")
	cmd.Flags().StringVar(&webflashDir, "webflash-dir", "", "web flasher directory (or WEBFLASH_DIR env)")
	cmd.Flags().BoolVar(&skipMerge, "skip-merge", false, "do not run esptool merge_bin")

	return cmd
}

// ====================  filelist ====================

func newFileListCmd(root *rootOptions) *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "filelist",
		Short: "Generate file_list.json for the filesystem image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			setIfChanged(cmd, "data-dir", &cfg.ProjectDataDir, dataDir)

			if err := cfg.ValidateFileList(); err != nil {
				return err
			}

			stats := &utils.BuildStats{}
			path, m, err := manifest.Generate(manifest.Options{
				Root:   cfg.FilesRoot(),
				Ignore: cfg.ManifestIgnore,
			}, stats)
			if err != nil {
				return fmt.Errorf("filelist failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d directories)\n", path, len(m[manifest.RootKey]))
			report("filelist", start, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "project data directory (or PROJECT_DATA_DIR env)")

	return cmd
}

// ====================  minify ====================

func newMinifyCmd(root *rootOptions) *cobra.Command {
	var (
		srcDir    string
		dstDir    string
		minifyJS  bool
		encodings []string
	)

	cmd := &cobra.Command{
		Use:   "minify",
		Short: "Minify and gzip web assets for the filesystem image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			setIfChanged(cmd, "src", &cfg.WWWDir, srcDir)
			setIfChanged(cmd, "out", &cfg.WWWMinifiedDir, dstDir)

			if err := cfg.ValidateMinify(); err != nil {
				return err
			}

			var encoders []compress.Encoder
			for _, name := range encodings {
				enc, err := compress.ByName(name)
				if err != nil {
					return err
				}
				encoders = append(encoders, enc)
			}

			stats := &utils.BuildStats{}
			res, err := webassets.New(webassets.Options{
				SrcDir:   cfg.WWWDir,
				DstDir:   cfg.WWWMinifiedDir,
				DebugLog: cfg.DebugLogEnabled(),
				MinifyJS: minifyJS,
				Encoders: encoders,
			}, stats).Run()
			if err != nil {
				return fmt.Errorf("minify failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", len(res.Written), cfg.WWWMinifiedDir)
			if len(res.Excluded) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Excluded: %s\n", strings.Join(res.Excluded, ", "))
			}
			report("minify", start, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&srcDir, "src", "", "web asset source directory (or WWW_DIR env)")
	cmd.Flags().StringVar(&dstDir, "out", "", "minified output directory (or WWW_MINIFIED_DIR env)")
	cmd.Flags().BoolVar(&minifyJS, "minify-js", false, "minify js/*.js with esbuild instead of copying")
	cmd.Flags().StringSliceVar(&encodings, "encoding", []string{"gzip"}, "pre-compression encodings: gzip, br")

	return cmd
}
