/**
 * internal/flashargs/flashargs.go
 * 烧录命令重建
 *
 * 功能：
 * - 从构建工具的 UPLOADERFLAGS 重建 esptool 命令行
 * - 去掉 --port 及其参数（烧录时自动探测串口）
 * - .bin 文件只保留文件名（脚本在发布目录内运行）
 * - 记录所有 0x 偏移
 * - 生成上传脚本内容和 merge_bin 参数
 */

package flashargs

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidOffset 0x 开头但不是合法十六进制的参数
var ErrInvalidOffset = errors.New("INVALID_OFFSET")

// ====================  常量定义 ====================

const (
	portFlag      = "--port"
	flashModeFlag = "--flash_mode"
	hexPrefix     = "0x"
	binSuffix     = ".bin"

	// MergedFirmware merge_bin 输出文件名
	MergedFirmware = "merged_firmware.bin"
)

// Bucket 命令片段
// 扫描时遇到 --port 或 --flash_mode 进入下一个片段
type Bucket int

const (
	// BucketGlobal --port 之前（--chip 等全局参数）
	BucketGlobal Bucket = iota
	// BucketCommand --port 之后、--flash_mode 之前（write_flash 等）
	BucketCommand
	// BucketImage --flash_mode 及之后（flash 参数和 偏移/文件 对）
	BucketImage

	bucketCount
)

// String 片段名
func (b Bucket) String() string {
	switch b {
	case BucketGlobal:
		return "global"
	case BucketCommand:
		return "command"
	case BucketImage:
		return "image"
	default:
		return "bucket(" + strconv.Itoa(int(b)) + ")"
	}
}

// Command 重建后的烧录命令
type Command struct {
	Buckets [bucketCount][]string
	Offsets []int64
}

// ====================  重建 ====================

// Reconstruct 单次从左到右扫描 flags，把参数分入三个片段
//
// 规则：
//   - --port 和下一个参数整体丢弃，片段前进
//   - 以 --flash_mode 开头的参数使片段前进，参数本身进入新片段
//   - 0x 开头的参数解析为偏移记录，同时原样保留
//   - .bin 结尾的参数只保留文件名
//
// 片段前进超出最后一个时停留在最后一个片段
func Reconstruct(flags []string) (*Command, error) {
	cmd := &Command{}
	bucket := BucketGlobal

	for i := 0; i < len(flags); i++ {
		tok := flags[i]

		if tok == portFlag {
			bucket = bucket.next()
			i++ // 跳过端口值
			continue
		}

		if strings.HasPrefix(tok, hexPrefix) {
			off, err := ParseOffset(tok)
			if err != nil {
				return nil, err
			}
			cmd.Offsets = append(cmd.Offsets, off)
		}

		if strings.HasPrefix(tok, flashModeFlag) {
			bucket = bucket.next()
		}

		cmd.Buckets[bucket] = append(cmd.Buckets[bucket], normalizeToken(tok))
	}

	return cmd, nil
}

// AppendImage 追加 偏移/文件 对到最后片段，并记录偏移
// 无论扫描停在哪个片段，都写入 BucketImage
func (c *Command) AppendImage(offset int64, offsetText, name string) {
	if offsetText == "" {
		offsetText = FormatOffset(offset)
	}
	c.Offsets = append(c.Offsets, offset)
	c.Buckets[BucketImage] = append(c.Buckets[BucketImage], offsetText, normalizeToken(name))
}

// Args 完整的烧录参数（三个片段依次拼接）
func (c *Command) Args() []string {
	var args []string
	for _, b := range c.Buckets {
		args = append(args, b...)
	}
	return args
}

// MergeArgs merge_bin 参数：全局片段 + merge_bin -o <output> + 镜像片段
func (c *Command) MergeArgs(output string) []string {
	args := append([]string{}, c.Buckets[BucketGlobal]...)
	args = append(args, "merge_bin", "-o", output)
	return append(args, c.Buckets[BucketImage]...)
}

// String 与构建脚本一致的拼接形式：每个参数前一个空格
func (c *Command) String() string {
	return Join(c.Args())
}

// ====================  辅助函数 ====================

// Join 每个参数前加一个空格后拼接
func Join(args []string) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	return sb.String()
}

// FormatOffset 格式化为小写十六进制（0x290000）
func FormatOffset(offset int64) string {
	return hexPrefix + strconv.FormatInt(offset, 16)
}

// ParseOffset 解析 0x 十六进制偏移
func ParseOffset(tok string) (int64, error) {
	off, err := strconv.ParseInt(strings.TrimPrefix(tok, hexPrefix), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, tok)
	}
	return off, nil
}

func (b Bucket) next() Bucket {
	if b+1 >= bucketCount {
		return BucketImage
	}
	return b + 1
}

// normalizeToken .bin 文件只保留文件名
// 同时处理 / 和 \ 分隔符（Windows 构建机上的路径）
func normalizeToken(tok string) string {
	if !strings.HasSuffix(tok, binSuffix) {
		return tok
	}
	base := filepath.Base(tok)
	base = path.Base(strings.ReplaceAll(base, `\`, "/"))
	return base
}
