/**
 * cmd/pixelbuild/main.go
 * 固件构建辅助工具
 *
 * 功能：
 * - dist：复制构建产物、生成上传脚本和 README、合并镜像
 * - filelist：生成文件系统镜像的 file_list.json
 * - minify：压缩并预压缩 Web 资源
 *
 * 用法（由构建工具的 pre/post action 调用）：
 *   pixelbuild --env-file .pio/env.yaml dist
 *   pixelbuild filelist
 *   pixelbuild minify
 *
 * 依赖：
 * - github.com/spf13/cobra
 */

package main

import (
	"fmt"
	"time"

	"pixelart-build/internal/config"
	"pixelart-build/internal/utils"

	"github.com/spf13/cobra"
)

// ====================  主函数 ====================

func main() {
	defer utils.SyncLogger()

	if err := newRootCmd().Execute(); err != nil {
		utils.LogFatalf("[BUILD] FATAL: %v", err)
	}
}

// rootOptions 全局参数
type rootOptions struct {
	envFile  string
	dotenv   []string
	logLevel string
}

// newRootCmd 创建根命令
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pixelbuild",
		Short:         "Build helpers for the PixelArt firmware",
		Long:          "pixelbuild packages firmware for distribution, generates the filesystem file list and minifies web assets. It is run as pre/post actions of the firmware build.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "YAML build environment snapshot")
	cmd.PersistentFlags().StringSliceVar(&opts.dotenv, "dotenv", []string{".env"}, ".env files to load")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (or LOG_LEVEL env)")

	cmd.AddCommand(
		newDistCmd(opts),
		newFileListCmd(opts),
		newMinifyCmd(opts),
	)

	return cmd
}

// loadConfig 加载构建环境
// 顺序：.env -> 环境变量 -> YAML 快照 -> 命令行参数（由各子命令覆盖）
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var envFiles []string
	for _, path := range o.dotenv {
		// 默认的 .env 不存在时不提示
		if path == ".env" && !utils.Exists(path) {
			continue
		}
		envFiles = append(envFiles, path)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	if o.envFile != "" {
		snap, err := config.LoadSnapshot(o.envFile)
		if err != nil {
			return nil, err
		}
		if err := snap.Apply(cfg); err != nil {
			return nil, err
		}
	}

	level := o.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := utils.SetLogLevel(level); err != nil {
		return nil, err
	}

	return cfg, nil
}

// report 输出耗时和统计
func report(name string, start time.Time, stats *utils.BuildStats) {
	utils.LogPrintf("[BUILD] %s completed in %dms", name, time.Since(start).Milliseconds())
	utils.LogPrintf("[BUILD] Stats: %s", stats)
}

// setIfChanged 命令行参数显式指定时覆盖配置
func setIfChanged(cmd *cobra.Command, name string, dst *string, value string) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}
