/**
 * internal/config/config.go
 * 构建环境配置加载模块
 *
 * 功能：
 * - 从环境变量加载构建工具传入的所有配置
 * - 支持 .env 文件（godotenv）
 * - 支持 YAML 构建环境快照（列表类参数原生传递）
 * - 提供默认值和类型转换
 * - 按子命令验证必需项
 *
 * 依赖：
 * - github.com/joho/godotenv (.env 文件加载)
 * - gopkg.in/yaml.v3 (构建环境快照)
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pixelart-build/internal/utils"

	"github.com/joho/godotenv"
)

// ====================  错误定义 ====================

var (
	// ErrMissingRequired 缺少必需的配置项
	ErrMissingRequired = errors.New("MISSING_REQUIRED_CONFIG")

	// ErrInvalidValue 配置值无效
	ErrInvalidValue = errors.New("INVALID_CONFIG_VALUE")
)

// ====================  默认值 ====================

const (
	DefaultDistDir        = "dist"
	DefaultWebflashDir    = "webflash"
	DefaultWWWDir         = "www"
	DefaultWWWMinifiedDir = "www_minified"
	DefaultFSImageName    = "littlefs"
	DefaultProgName       = "firmware"
	DefaultAppOffset      = "0x10000"
	DefaultObjcopy        = "esptool.py"

	// bootStubIndex FLASH_EXTRA_IMAGES 中 boot_app0 的位置
	bootStubIndex = 2
)

// ====================  配置结构 ====================

// ExtraImage 构建工具的额外镜像（偏移 + 路径）
type ExtraImage struct {
	Offset string `yaml:"offset"`
	Path   string `yaml:"path"`
}

// Config 构建环境
// 字段名与构建工具的变量一一对应
type Config struct {
	// 构建输出
	BuildDir         string       // $BUILD_DIR
	ProgName         string       // $PROGNAME，默认 firmware
	FSImageName      string       // $ESP32_FS_IMAGE_NAME，默认 littlefs
	AppOffset        string       // $ESP32_APP_OFFSET，保留原始写法（如 0x10000）
	FSStart          int64        // $FS_START
	UploaderFlags    []string     // $UPLOADERFLAGS
	FlashExtraImages []ExtraImage // $FLASH_EXTRA_IMAGES
	BootApp0         string       // boot_app0.bin 路径，为空时取 FLASH_EXTRA_IMAGES[2]

	// 合并工具
	PythonExe string // $PYTHONEXE，为空时直接执行 OBJCOPY
	Objcopy   string // $OBJCOPY（esptool）

	// 编译参数
	BuildFlags []string // $BUILD_FLAGS（-D 定义）
	DebugLog   string   // DEBUG_LOG 覆盖值

	// 目录
	ProjectDataDir string // $PROJECT_DATA_DIR
	DistDir        string
	WebflashDir    string
	WWWDir         string
	WWWMinifiedDir string

	// 清单
	ManifestIgnore []string

	// 日志
	LogLevel string
}

// ====================  配置加载 ====================

// Load 加载配置
// 依次读取 .env 文件（不覆盖已有环境变量）和进程环境变量
//
// 注意：
//   - .env 文件不存在时只记录警告
//   - 必需项在各子命令的 Validate* 中检查
func Load(envFiles ...string) (*Config, error) {
	loadDotEnv(envFiles)

	cfg := &Config{
		BuildDir:       getEnv("BUILD_DIR", ""),
		ProgName:       getEnv("PROGNAME", DefaultProgName),
		FSImageName:    getEnv("ESP32_FS_IMAGE_NAME", DefaultFSImageName),
		AppOffset:      getEnv("ESP32_APP_OFFSET", DefaultAppOffset),
		UploaderFlags:  getEnvList("UPLOADERFLAGS"),
		BootApp0:       getEnv("BOOT_APP0", ""),
		PythonExe:      getEnv("PYTHONEXE", ""),
		Objcopy:        getEnv("OBJCOPY", DefaultObjcopy),
		BuildFlags:     getEnvList("BUILD_FLAGS"),
		DebugLog:       getEnv("DEBUG_LOG", ""),
		ProjectDataDir: getEnv("PROJECT_DATA_DIR", "data"),
		DistDir:        getEnv("DIST_DIR", DefaultDistDir),
		WebflashDir:    getEnv("WEBFLASH_DIR", DefaultWebflashDir),
		WWWDir:         getEnv("WWW_DIR", DefaultWWWDir),
		WWWMinifiedDir: getEnv("WWW_MINIFIED_DIR", DefaultWWWMinifiedDir),
		ManifestIgnore: splitComma(os.Getenv("MANIFEST_IGNORE")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	fsStart, err := getEnvInt64("FS_START", 0)
	if err != nil {
		return nil, err
	}
	cfg.FSStart = fsStart

	images, err := parseExtraImages(os.Getenv("FLASH_EXTRA_IMAGES"))
	if err != nil {
		return nil, err
	}
	cfg.FlashExtraImages = images

	return cfg, nil
}

// loadDotEnv 加载 .env 文件
func loadDotEnv(envFiles []string) {
	for _, path := range envFiles {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			utils.LogWarnf("[CONFIG] WARN: .env file %s not loaded: %v", path, err)
			continue
		}
		utils.LogDebugf("[CONFIG] Loaded .env from %s", path)
	}
}

// ====================  派生值 ====================

// BootStub 返回 boot_app0.bin 的路径
func (c *Config) BootStub() string {
	if c.BootApp0 != "" {
		return c.BootApp0
	}
	if len(c.FlashExtraImages) > bootStubIndex {
		return c.FlashExtraImages[bootStubIndex].Path
	}
	return ""
}

// FilesRoot 返回文件系统镜像中 /files 目录的源路径
func (c *Config) FilesRoot() string {
	return filepath.Join(c.ProjectDataDir, "files")
}

// Defines 解析 BUILD_FLAGS 中的 -D 定义
// 支持 -DNAME=value、-D NAME=value、-DNAME（值为 1）
func (c *Config) Defines() map[string]string {
	defines := make(map[string]string)
	for i := 0; i < len(c.BuildFlags); i++ {
		flag := c.BuildFlags[i]
		if !strings.HasPrefix(flag, "-D") {
			continue
		}
		def := strings.TrimPrefix(flag, "-D")
		if def == "" && i+1 < len(c.BuildFlags) {
			i++
			def = c.BuildFlags[i]
		}
		if def == "" {
			continue
		}
		name, value, found := strings.Cut(def, "=")
		if !found {
			value = "1"
		}
		defines[name] = strings.Trim(value, `"'`)
	}
	return defines
}

// DebugLogEnabled DEBUG_LOG 是否定义为 1
// DEBUG_LOG 变量优先于 BUILD_FLAGS
func (c *Config) DebugLogEnabled() bool {
	if c.DebugLog != "" {
		return c.DebugLog == "1"
	}
	return c.Defines()["DEBUG_LOG"] == "1"
}

// ====================  验证 ====================

// ValidateDist 验证 dist 子命令所需配置
func (c *Config) ValidateDist() error {
	var missingKeys []string

	if c.BuildDir == "" {
		missingKeys = append(missingKeys, "BUILD_DIR")
	}
	if len(c.UploaderFlags) == 0 {
		missingKeys = append(missingKeys, "UPLOADERFLAGS")
	}
	if c.FSStart == 0 {
		missingKeys = append(missingKeys, "FS_START")
	}

	if c.BootStub() == "" {
		utils.LogWarnf("[CONFIG] WARN: boot_app0 not configured (set BOOT_APP0 or FLASH_EXTRA_IMAGES)")
	}
	if c.Objcopy == "" {
		utils.LogWarnf("[CONFIG] WARN: OBJCOPY is empty (merge will fail)")
	}

	return missing(missingKeys)
}

// ValidateFileList 验证 filelist 子命令所需配置
func (c *Config) ValidateFileList() error {
	var missingKeys []string
	if c.ProjectDataDir == "" {
		missingKeys = append(missingKeys, "PROJECT_DATA_DIR")
	}
	return missing(missingKeys)
}

// ValidateMinify 验证 minify 子命令所需配置
func (c *Config) ValidateMinify() error {
	var missingKeys []string
	if c.WWWDir == "" {
		missingKeys = append(missingKeys, "WWW_DIR")
	}
	if c.WWWMinifiedDir == "" {
		missingKeys = append(missingKeys, "WWW_MINIFIED_DIR")
	}
	return missing(missingKeys)
}

func missing(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	errMsg := fmt.Sprintf("missing required config: %s", strings.Join(keys, ", "))
	utils.LogPrintf("[CONFIG] ERROR: %s", errMsg)
	return fmt.Errorf("%w: %s", ErrMissingRequired, errMsg)
}

// ====================  辅助函数 ====================

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList 获取空白分隔的列表环境变量
func getEnvList(key string) []string {
	return strings.Fields(os.Getenv(key))
}

// getEnvInt64 获取整数环境变量（十进制或 0x 十六进制）
func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := ParseInt(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%s is not a valid integer", ErrInvalidValue, key, value)
	}
	return n, nil
}

// ParseInt 解析十进制或 0x 前缀的十六进制整数
func ParseInt(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 0, 64)
}

// parseExtraImages 解析 "0x1000:path,0x8000:path" 形式的额外镜像列表
func parseExtraImages(value string) ([]ExtraImage, error) {
	var images []ExtraImage
	for _, entry := range splitComma(value) {
		offset, path, found := strings.Cut(entry, ":")
		if !found || offset == "" || path == "" {
			return nil, fmt.Errorf("%w: FLASH_EXTRA_IMAGES entry %q (want offset:path)", ErrInvalidValue, entry)
		}
		images = append(images, ExtraImage{Offset: offset, Path: path})
	}
	return images, nil
}

// splitComma 逗号分隔并去掉空项
func splitComma(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
