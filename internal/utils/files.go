/**
 * internal/utils/files.go
 * 文件辅助函数
 *
 * 功能：
 * - 文件复制（带统计）
 * - 存在性检查
 * - 字节格式化
 *
 * 依赖：
 * - github.com/otiai10/copy
 */

package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// ErrSameFile 源文件和目标文件是同一个文件
var ErrSameFile = errors.New("SAME_FILE")

// 文件权限
const (
	DirPerm    = 0755
	FilePerm   = 0644
	ScriptPerm = 0755
)

// ====================  构建统计 ====================

// BuildStats 构建统计信息
type BuildStats struct {
	FilesProcessed int64
	BytesRead      int64
	BytesWritten   int64
	Warnings       int64
}

// AddRead 记录读取
func (s *BuildStats) AddRead(n int64) {
	if s != nil {
		s.BytesRead += n
	}
}

// AddWritten 记录写入
func (s *BuildStats) AddWritten(n int64) {
	if s != nil {
		s.BytesWritten += n
	}
}

// AddFile 记录处理的文件数
func (s *BuildStats) AddFile() {
	if s != nil {
		s.FilesProcessed++
	}
}

// Warn 记录一条警告并输出日志
func (s *BuildStats) Warn(format string, args ...interface{}) {
	if s != nil {
		s.Warnings++
	}
	LogWarnf(format, args...)
}

// String 统计摘要
func (s *BuildStats) String() string {
	return fmt.Sprintf("files=%d, read=%s, written=%s, warnings=%d",
		s.FilesProcessed, FormatBytes(s.BytesRead), FormatBytes(s.BytesWritten), s.Warnings)
}

// ====================  辅助函数 ====================

// Exists 判断路径是否存在
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNotExist 判断错误是否为文件不存在
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// CopyFile 复制单个文件到 dst（完整路径），自动创建父目录
func CopyFile(src, dst string, stats *BuildStats) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}

	// 复制到自身会先截断目标，即清空源文件
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return fmt.Errorf("%w: %s", ErrSameFile, src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), DirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	stats.AddRead(info.Size())
	stats.AddWritten(info.Size())
	return nil
}

// CopyInto 复制文件到目录 dir 下（保留文件名），返回目标路径
func CopyInto(src, dir string, stats *BuildStats) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))
	if err := CopyFile(src, dst, stats); err != nil {
		return "", err
	}
	return dst, nil
}

// WriteFile 写入文件并记录统计
func WriteFile(path string, data []byte, perm os.FileMode, stats *BuildStats) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// os.WriteFile 不会修改已存在文件的权限
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	stats.AddWritten(int64(len(data)))
	return nil
}

// FormatBytes 格式化字节数为人类可读格式
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
