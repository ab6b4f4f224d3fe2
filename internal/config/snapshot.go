/**
 * internal/config/snapshot.go
 * 构建环境快照
 *
 * 功能：
 * - 读取构建钩子导出的 YAML 快照
 * - 列表类参数（UPLOADERFLAGS、FLASH_EXTRA_IMAGES）原生传递，无需转义
 * - 非空字段覆盖环境变量中的值
 *
 * 示例：
 *   build_dir: .pio/build/esp32dev
 *   uploader_flags: [--chip, esp32, --port, COM3, ...]
 *   esp32_app_offset: "0x10000"
 *   fs_start: 0x290000
 */

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot 构建环境快照（YAML）
type Snapshot struct {
	BuildDir         string       `yaml:"build_dir"`
	ProgName         string       `yaml:"progname"`
	FSImageName      string       `yaml:"esp32_fs_image_name"`
	AppOffset        string       `yaml:"esp32_app_offset"`
	FSStart          string       `yaml:"fs_start"`
	UploaderFlags    []string     `yaml:"uploader_flags"`
	FlashExtraImages []ExtraImage `yaml:"flash_extra_images"`
	BootApp0         string       `yaml:"boot_app0"`
	PythonExe        string       `yaml:"pythonexe"`
	Objcopy          string       `yaml:"objcopy"`
	BuildFlags       []string     `yaml:"build_flags"`
	ProjectDataDir   string       `yaml:"project_data_dir"`
}

// LoadSnapshot 读取 YAML 快照文件
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: env snapshot %s: %v", ErrInvalidValue, path, err)
	}
	return &snap, nil
}

// Apply 用快照中的非空字段覆盖配置
func (s *Snapshot) Apply(c *Config) error {
	setString(&c.BuildDir, s.BuildDir)
	setString(&c.ProgName, s.ProgName)
	setString(&c.FSImageName, s.FSImageName)
	setString(&c.AppOffset, s.AppOffset)
	setString(&c.BootApp0, s.BootApp0)
	setString(&c.PythonExe, s.PythonExe)
	setString(&c.Objcopy, s.Objcopy)
	setString(&c.ProjectDataDir, s.ProjectDataDir)

	if len(s.UploaderFlags) > 0 {
		c.UploaderFlags = s.UploaderFlags
	}
	if len(s.FlashExtraImages) > 0 {
		c.FlashExtraImages = s.FlashExtraImages
	}
	if len(s.BuildFlags) > 0 {
		c.BuildFlags = s.BuildFlags
	}

	if s.FSStart != "" {
		n, err := ParseInt(s.FSStart)
		if err != nil {
			return fmt.Errorf("%w: fs_start=%s is not a valid integer", ErrInvalidValue, s.FSStart)
		}
		c.FSStart = n
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
