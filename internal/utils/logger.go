/**
 * internal/utils/logger.go
 * 构建日志模块（基于 zap）
 *
 * 功能：
 * - 控制台格式日志，输出到 stderr（不干扰构建工具的 stdout）
 * - 可配置日志级别（LOG_LEVEL / --log-level）
 * - 自动脱敏构建参数中的密码（-DWIFI_PASSWORD=... 等）
 * - 测试时可替换 logger
 *
 * 用法：
 *   utils.LogWarnf("[DIST] WARN: %s not found.", path)
 */

package utils

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ====================  全局变量 ====================

var (
	// logger zap 日志实例
	logger *zap.Logger

	// sugar zap SugaredLogger
	sugar *zap.SugaredLogger

	// level 当前日志级别，可在运行时调整
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// loggerMu 保护 logger/sugar 的替换
	loggerMu sync.Mutex

	// 密码类参数（用于检测构建参数中的 WiFi 密码等）
	// 匹配格式：WIFI_PASSWORD=secret、psk: secret
	logSecretRegex = regexp.MustCompile(`(?i)([A-Z_]*(?:password|passwd|psk|secret)[A-Z_]*)([=:]\s*)("[^"]*"|\S+)`)
)

// ====================  初始化 ====================

// initLogger 初始化 zap 日志
func initLogger() {
	config := zap.Config{
		Level:            level,
		Development:      false,
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			MessageKey:     "msg",
			EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	var err error
	logger, err = config.Build(
		zap.AddCallerSkip(1), // 跳过 LogPrintf 调用层
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[LOGGER] Failed to init zap: %v, falling back to nop logger\n", err)
		logger = zap.NewNop()
	}

	sugar = logger.Sugar()
}

// getLogger 获取 logger 实例（懒加载）
func getLogger() *zap.SugaredLogger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if sugar == nil {
		initLogger()
	}
	return sugar
}

// ====================  公开函数 ====================

// SetLogLevel 设置日志级别（debug/info/warn/error）
func SetLogLevel(name string) error {
	if name == "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// SetLogger 替换全局 logger，返回恢复函数
// 主要用于测试（配合 zaptest/observer）
func SetLogger(l *zap.Logger) (restore func()) {
	loggerMu.Lock()
	prevLogger, prevSugar := logger, sugar
	logger = l
	sugar = l.Sugar()
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		logger, sugar = prevLogger, prevSugar
		loggerMu.Unlock()
	}
}

// LogPrintf 日志输出（格式化），自动脱敏密码
func LogPrintf(format string, args ...interface{}) {
	getLogger().Info(maskSensitiveData(fmt.Sprintf(format, args...)))
}

// LogDebugf 调试日志
func LogDebugf(format string, args ...interface{}) {
	getLogger().Debug(maskSensitiveData(fmt.Sprintf(format, args...)))
}

// LogWarnf 警告日志
func LogWarnf(format string, args ...interface{}) {
	getLogger().Warn(maskSensitiveData(fmt.Sprintf(format, args...)))
}

// LogFatalf 日志输出后退出
func LogFatalf(format string, args ...interface{}) {
	getLogger().Fatal(maskSensitiveData(fmt.Sprintf(format, args...)))
}

// SyncLogger 同步日志缓冲区（程序退出前调用）
func SyncLogger() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

// ====================  私有函数 ====================

// maskSensitiveData 脱敏密码类参数
// 先做字符串包含预检查，避免不必要的正则扫描
func maskSensitiveData(message string) string {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "pass") && !strings.Contains(lower, "psk") && !strings.Contains(lower, "secret") {
		return message
	}
	return logSecretRegex.ReplaceAllString(message, "${1}${2}***[MASKED]")
}
