/**
 * internal/manifest/manifest.go
 * 文件清单生成
 *
 * 功能：
 * - 遍历 data/files 目录，生成 file_list.json
 * - 每个子目录（相对路径，/ 分隔）对应其中文件名的有序列表
 * - 每次重新生成（先删除旧文件）
 * - 支持 doublestar 忽略规则
 *
 * 输出格式：
 *   { "/files": { "images": ["a.png", "b.png"], "images/icons": [] } }
 *
 * 依赖：
 * - github.com/bmatcuk/doublestar/v4
 */

package manifest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"pixelart-build/internal/utils"

	"github.com/bmatcuk/doublestar/v4"
)

// ====================  常量定义 ====================

const (
	// FileName 清单文件名（位于 files 根目录内）
	FileName = "file_list.json"

	// RootKey 设备 LittleFS 上 files 目录的挂载路径
	RootKey = "/files"
)

// Manifest 文件清单
// 键为 RootKey，值为 子目录 -> 文件名列表
type Manifest map[string]map[string][]string

// Options 生成选项
type Options struct {
	Root   string   // files 根目录
	Ignore []string // doublestar 忽略规则，匹配相对路径（/ 分隔）
}

// ====================  生成 ====================

// Build 遍历 Root 生成清单（不写文件）
// 根目录本身和其中的文件不进入清单
func Build(opts Options) (Manifest, error) {
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	tree := make(map[string][]string)

	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(opts.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, ok := tree[rel]; !ok {
				tree[rel] = []string{}
			}
			return nil
		}

		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			return nil
		}

		// 指向目录的符号链接既不展开也不作为文件列出
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err == nil && info.IsDir() {
				utils.LogDebugf("[MANIFEST] Skipping directory link %s", rel)
				return nil
			}
		}
		if ignored(opts.Ignore, rel) {
			utils.LogDebugf("[MANIFEST] Ignored %s", rel)
			return nil
		}

		tree[dir] = append(tree[dir], d.Name())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", opts.Root, err)
	}

	for _, names := range tree {
		sort.Strings(names)
	}

	return Manifest{RootKey: tree}, nil
}

// Generate 删除旧清单，重新生成并写入 <Root>/file_list.json
// 返回写入的路径
func Generate(opts Options, stats *utils.BuildStats) (string, Manifest, error) {
	output := filepath.Join(opts.Root, FileName)

	if err := os.Remove(output); err != nil && !utils.IsNotExist(err) {
		return "", nil, fmt.Errorf("failed to remove old manifest: %w", err)
	}

	m, err := Build(opts)
	if err != nil {
		return "", nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := utils.WriteFile(output, data, utils.FilePerm, stats); err != nil {
		return "", nil, err
	}
	stats.AddFile()

	utils.LogPrintf("[MANIFEST] Wrote %s with %d directories", output, len(m[RootKey]))
	return output, m, nil
}

// ignored 相对路径是否命中忽略规则
func ignored(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
