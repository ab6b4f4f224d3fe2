/**
 * internal/compress/compress.go
 * 预压缩编码器
 *
 * 功能：
 * - gzip（设备 Web 服务器直接发送 .gz）
 * - Brotli（可选，供支持 br 的前端使用）
 *
 * 依赖：
 * - github.com/klauspost/compress/gzip
 * - github.com/andybalholm/brotli
 */

package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// Encoder 预压缩编码器
type Encoder interface {
	// Name 编码名（gzip / br）
	Name() string
	// Ext 输出文件扩展名（含点）
	Ext() string
	// Encode 压缩 data，name 为原始文件名
	Encode(name string, data []byte) ([]byte, error)
}

// ====================  gzip ====================

// Gzip 最高压缩级别的 gzip 编码器
type Gzip struct{}

func (Gzip) Name() string { return "gzip" }
func (Gzip) Ext() string  { return ".gz" }

// Encode gzip 压缩，头部记录原始文件名，不写修改时间（输出可复现）
func (Gzip) Encode(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	zw.Name = name

	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("failed to write gzip data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ====================  Brotli ====================

// Brotli 压缩级别
const brotliLevel = brotli.BestCompression

// Brotli 编码器
type Brotli struct{}

func (Brotli) Name() string { return "br" }
func (Brotli) Ext() string  { return ".br" }

// Encode Brotli 压缩
func (Brotli) Encode(_ string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	bw := brotli.NewWriterLevel(&buf, brotliLevel)
	if _, err := bw.Write(data); err != nil {
		_ = bw.Close()
		return nil, fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ====================  解码（测试和校验用） ====================

// Decode 按编码名解压
func Decode(name string, data []byte) ([]byte, error) {
	var r io.Reader
	switch name {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		r = zr
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return io.ReadAll(r)
}

// ByName 根据名称获取编码器（gzip / br / brotli）
func ByName(name string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gzip", "gz":
		return Gzip{}, nil
	case "br", "brotli":
		return Brotli{}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}
