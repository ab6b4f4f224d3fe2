/**
 * internal/dist/collector.go
 * 发布包生成
 *
 * 功能：
 * - 复制构建产物（bootloader、分区表、boot_app0、固件、文件系统镜像）到发布目录
 * - 生成 README.TXT 和三个平台的上传脚本
 * - 合并为 merged_firmware.bin 并复制到 webflash 目录
 *
 * 错误策略：
 * - 缺失的产物只记录警告并跳过
 * - 合并命令的退出状态只记录，不中断
 * - 目录创建、文件写入失败返回错误
 */

package dist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pixelart-build/internal/config"
	"pixelart-build/internal/flashargs"
	"pixelart-build/internal/utils"
)

// ====================  类型定义 ====================

// Collector 发布包生成器
type Collector struct {
	cfg    *config.Config
	merger Merger
	stats  *utils.BuildStats
}

// Result 生成结果
type Result struct {
	Copied  []string           // 已复制到发布目录的产物
	Missing []string           // 缺失的产物
	Command *flashargs.Command // 重建后的烧录命令
	Merged  string             // webflash 目录中的合并镜像，未生成时为空
}

// New 创建生成器
// merger 为 nil 时跳过合并步骤
func New(cfg *config.Config, merger Merger, stats *utils.BuildStats) *Collector {
	if stats == nil {
		stats = &utils.BuildStats{}
	}
	return &Collector{cfg: cfg, merger: merger, stats: stats}
}

// Artifacts 需要复制的构建产物（按烧录顺序）
func (c *Collector) Artifacts() []string {
	buildDir := c.cfg.BuildDir
	return []string{
		filepath.Join(buildDir, "bootloader.bin"),
		filepath.Join(buildDir, "partitions.bin"),
		c.cfg.BootStub(),
		filepath.Join(buildDir, c.cfg.ProgName+".bin"),
		filepath.Join(buildDir, c.cfg.FSImageName+".bin"),
	}
}

// ====================  主流程 ====================

// Run 生成发布包
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	distDir := c.cfg.DistDir
	utils.LogPrintf("[DIST] Packaging into %s...", distDir)

	// 1. 创建发布目录
	if err := os.MkdirAll(distDir, utils.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create dist dir: %w", err)
	}

	res := &Result{}

	// 2. 复制构建产物
	if err := c.copyArtifacts(res); err != nil {
		return nil, err
	}

	// 3. 说明文件
	if err := writeReadme(distDir, c.stats); err != nil {
		return nil, err
	}

	// 4. 重建烧录命令
	cmd, err := c.command()
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct upload command: %w", err)
	}
	res.Command = cmd
	utils.LogDebugf("[DIST] Flash offsets: %v", cmd.Offsets)

	// 5. 上传脚本
	if err := writeScripts(distDir, cmd.String(), c.stats); err != nil {
		return nil, err
	}
	utils.LogPrintf("[DIST] Upload command:%s", cmd.String())

	// 6. 合并镜像
	if c.merger == nil {
		utils.LogPrintf("[DIST] Merge skipped")
		return res, nil
	}

	merged, err := c.merge(ctx, cmd)
	if err != nil {
		return nil, err
	}
	res.Merged = merged

	return res, nil
}

// copyArtifacts 复制构建产物，缺失的只警告
func (c *Collector) copyArtifacts(res *Result) error {
	for _, src := range c.Artifacts() {
		if src == "" {
			c.stats.Warn("[DIST] WARN: boot_app0.bin path not configured.")
			res.Missing = append(res.Missing, src)
			continue
		}

		if !utils.Exists(src) {
			c.stats.Warn("[DIST] WARN: %s not found.", src)
			res.Missing = append(res.Missing, src)
			continue
		}

		dst, err := utils.CopyInto(src, c.cfg.DistDir, c.stats)
		if errors.Is(err, utils.ErrSameFile) {
			c.stats.Warn("[DIST] WARN: %s is already in %s, not copied.", src, c.cfg.DistDir)
			res.Copied = append(res.Copied, src)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to copy artifact: %w", err)
		}
		c.stats.AddFile()
		res.Copied = append(res.Copied, dst)
		utils.LogDebugf("[DIST] Copied %s", src)
	}
	return nil
}

// command 从 UPLOADERFLAGS 重建命令并追加固件和文件系统镜像
func (c *Collector) command() (*flashargs.Command, error) {
	cmd, err := flashargs.Reconstruct(c.cfg.UploaderFlags)
	if err != nil {
		return nil, err
	}

	appOffset, err := flashargs.ParseOffset(c.cfg.AppOffset)
	if err != nil {
		return nil, fmt.Errorf("ESP32_APP_OFFSET: %w", err)
	}

	cmd.AppendImage(appOffset, c.cfg.AppOffset, c.cfg.ProgName+".bin")
	cmd.AppendImage(c.cfg.FSStart, "", c.cfg.FSImageName+".bin")
	return cmd, nil
}

// merge 在发布目录内执行合并，成功生成则复制到 webflash 目录
func (c *Collector) merge(ctx context.Context, cmd *flashargs.Command) (string, error) {
	distDir := c.cfg.DistDir

	if err := c.merger.Merge(ctx, distDir, cmd.MergeArgs(flashargs.MergedFirmware)); err != nil {
		c.stats.Warn("[DIST] WARN: %v", err)
	}

	merged := filepath.Join(distDir, flashargs.MergedFirmware)
	if !utils.Exists(merged) {
		c.stats.Warn("[DIST] WARN: %s not found.", flashargs.MergedFirmware)
		return "", nil
	}

	dst, err := utils.CopyInto(merged, c.cfg.WebflashDir, c.stats)
	if errors.Is(err, utils.ErrSameFile) {
		c.stats.Warn("[DIST] WARN: %s is already in %s, not copied.", merged, c.cfg.WebflashDir)
		return merged, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to copy merged firmware: %w", err)
	}
	c.stats.AddFile()
	utils.LogPrintf("[DIST] Merged firmware copied to %s", dst)
	return dst, nil
}
