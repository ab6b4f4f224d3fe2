/**
 * internal/dist/merge.go
 * 合并镜像
 *
 * 功能：
 * - 调用 esptool merge_bin 把所有镜像合并为 merged_firmware.bin
 * - 在发布目录内执行（参数中的文件名不含路径）
 * - PYTHONEXE / OBJCOPY 的相对路径按调用方工作目录解析
 */

package dist

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"pixelart-build/internal/utils"
)

// Merger 执行合并命令
type Merger interface {
	Merge(ctx context.Context, dir string, args []string) error
}

// ExecMerger 通过外部 esptool 合并
// PythonExe 非空时以 "$PYTHONEXE" "$OBJCOPY" args... 方式执行
type ExecMerger struct {
	PythonExe string
	Objcopy   string
}

// Merge 在 dir 中执行合并命令，输出写入日志
func (m ExecMerger) Merge(ctx context.Context, dir string, args []string) error {
	name, argv := m.command(args)

	utils.LogDebugf("[MERGE] %s %s", name, strings.Join(argv, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line != "" {
			utils.LogPrintf("[MERGE] %s", line)
		}
	}
	if err != nil {
		return fmt.Errorf("merge command %s failed: %w", name, err)
	}
	return nil
}

func (m ExecMerger) command(args []string) (string, []string) {
	objcopy := callerPath(m.Objcopy)
	if m.PythonExe == "" {
		return objcopy, args
	}
	return callerPath(m.PythonExe), append([]string{objcopy}, args...)
}

// callerPath 相对路径按当前工作目录转为绝对路径
// 子进程的工作目录是发布目录，相对路径会解析到错误的位置
// 不含路径分隔符的命令名（如 esptool.py）且当前目录下不存在时保持原样，交给 PATH 查找
func callerPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if !strings.ContainsRune(p, filepath.Separator) && !strings.ContainsRune(p, '/') && !utils.Exists(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
