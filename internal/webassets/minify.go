/**
 * internal/webassets/minify.go
 * Web 资源压缩模块
 *
 * 功能：
 * - HTML 压缩（内联 JS/CSS 一并压缩，保留 type="text" 等默认属性）
 * - JSON 压缩
 * - 预压缩为 .gz（可选同时生成 .br）
 * - js/*.js 原样复制（可选 esbuild 压缩）
 * - 未开启 DEBUG_LOG 时排除 debug_log.htm
 *
 * 依赖：
 * - github.com/tdewolff/minify/v2
 * - github.com/evanw/esbuild/pkg/api
 * - github.com/bmatcuk/doublestar/v4
 */

package webassets

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"

	"pixelart-build/internal/compress"
	"pixelart-build/internal/utils"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
)

// ====================  常量定义 ====================

const (
	htmlPattern = "*.htm"
	jsonPattern = "*.json"
	jsPattern   = "js/*.js"
	jsDir       = "js"

	// DebugLogPage 仅在 DEBUG_LOG=1 时打包的页面
	DebugLogPage = "debug_log.htm"

	mimeHTML = "text/html"
	mimeJSON = "application/json"
)

// ErrJSBuild esbuild 压缩失败
var ErrJSBuild = errors.New("JS_BUILD_FAILED")

// ====================  配置 ====================

// Options 压缩选项
type Options struct {
	SrcDir   string             // 源目录（www）
	DstDir   string             // 输出目录（www_minified）
	DebugLog bool               // 是否包含 debug_log.htm
	MinifyJS bool               // js/*.js 使用 esbuild 压缩，否则原样复制
	Encoders []compress.Encoder // 预压缩编码器，为空时只用 gzip
}

// Result 压缩结果
type Result struct {
	Written  []string // 输出文件（相对 DstDir，/ 分隔）
	Excluded []string // 被排除的源文件
}

// Minifier Web 资源压缩器
type Minifier struct {
	opts  Options
	m     *minify.M
	stats *utils.BuildStats
}

// New 创建压缩器
func New(opts Options, stats *utils.BuildStats) *Minifier {
	if len(opts.Encoders) == 0 {
		opts.Encoders = []compress.Encoder{compress.Gzip{}}
	}
	if stats == nil {
		stats = &utils.BuildStats{}
	}
	return &Minifier{opts: opts, m: newMinifier(), stats: stats}
}

// newMinifier 注册 HTML/CSS/JS/JSON 压缩器
// HTML 中的 <style>、<script> 和 style 属性使用同一个实例压缩
func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add(mimeHTML, &html.Minifier{
		KeepDefaultAttrVals: true,
	})
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), json.Minify)
	return m
}

// ====================  主流程 ====================

// Run 压缩全部资源
func (mz *Minifier) Run() (*Result, error) {
	utils.LogPrintf("[MINIFY] Minifying %s -> %s...", mz.opts.SrcDir, mz.opts.DstDir)

	if err := os.MkdirAll(filepath.Join(mz.opts.DstDir, jsDir), utils.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	res := &Result{}

	// 1. HTML
	if err := mz.compressAll(htmlPattern, mimeHTML, res); err != nil {
		return nil, fmt.Errorf("HTML minify failed: %w", err)
	}

	// 2. JSON
	if err := mz.compressAll(jsonPattern, mimeJSON, res); err != nil {
		return nil, fmt.Errorf("JSON minify failed: %w", err)
	}

	// 3. JS
	if err := mz.buildJS(res); err != nil {
		return nil, fmt.Errorf("JS build failed: %w", err)
	}

	utils.LogPrintf("[MINIFY] Wrote %d files, excluded %d", len(res.Written), len(res.Excluded))
	return res, nil
}

// compressAll 压缩匹配 pattern 的文件并预压缩
func (mz *Minifier) compressAll(pattern, mediaType string, res *Result) error {
	files, err := mz.glob(pattern)
	if err != nil {
		return err
	}

	for _, rel := range files {
		if mz.excluded(rel) {
			if err := mz.removeStale(rel); err != nil {
				return err
			}
			res.Excluded = append(res.Excluded, rel)
			utils.LogPrintf("[MINIFY] Skipping %s (DEBUG_LOG is not 1)", rel)
			continue
		}

		written, err := mz.compressFile(rel, mediaType)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		res.Written = append(res.Written, written...)
	}
	return nil
}

// compressFile 压缩单个文件，每个编码器输出一个文件
func (mz *Minifier) compressFile(rel, mediaType string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(mz.opts.SrcDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	mz.stats.AddRead(int64(len(data)))

	minified, err := mz.m.Bytes(mediaType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to minify: %w", err)
	}

	var written []string
	name := path.Base(rel)
	for _, enc := range mz.opts.Encoders {
		out, err := enc.Encode(name, minified)
		if err != nil {
			return nil, err
		}

		dstRel := rel + enc.Ext()
		if err := utils.WriteFile(filepath.Join(mz.opts.DstDir, filepath.FromSlash(dstRel)), out, utils.FilePerm, mz.stats); err != nil {
			return nil, err
		}
		written = append(written, dstRel)
	}

	mz.stats.AddFile()
	utils.LogDebugf("[MINIFY] %s: %s -> %s", rel, utils.FormatBytes(int64(len(data))), utils.FormatBytes(int64(len(minified))))
	return written, nil
}

// buildJS 复制（或压缩）js/*.js
func (mz *Minifier) buildJS(res *Result) error {
	files, err := mz.glob(jsPattern)
	if err != nil {
		return err
	}

	for _, rel := range files {
		src := filepath.Join(mz.opts.SrcDir, filepath.FromSlash(rel))
		dst := filepath.Join(mz.opts.DstDir, filepath.FromSlash(rel))

		if mz.opts.MinifyJS {
			err = mz.minifyJSFile(src, dst)
		} else {
			err = utils.CopyFile(src, dst, mz.stats)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}

		mz.stats.AddFile()
		res.Written = append(res.Written, rel)
	}
	return nil
}

// minifyJSFile 使用 esbuild 压缩 JS
func (mz *Minifier) minifyJSFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	mz.stats.AddRead(int64(len(data)))

	result := api.Transform(string(data), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        filepath.Base(src),
		Target:            api.ES2020,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			utils.LogPrintf("[MINIFY] ERROR: %s: %s", filepath.Base(src), msg.Text)
			if msg.Location != nil {
				utils.LogPrintf("[MINIFY]   at %s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
			}
		}
		return fmt.Errorf("%w: %d errors", ErrJSBuild, len(result.Errors))
	}
	for _, msg := range result.Warnings {
		utils.LogWarnf("[MINIFY] WARN: %s: %s", filepath.Base(src), msg.Text)
	}

	return utils.WriteFile(dst, result.Code, utils.FilePerm, mz.stats)
}

// ====================  辅助函数 ====================

// glob 在源目录内匹配，返回排序后的相对路径（/ 分隔）
func (mz *Minifier) glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(mz.opts.SrcDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// excluded 是否排除该文件
func (mz *Minifier) excluded(rel string) bool {
	return rel == DebugLogPage && !mz.opts.DebugLog
}

// removeStale 删除之前构建留下的被排除文件的输出
func (mz *Minifier) removeStale(rel string) error {
	for _, enc := range mz.opts.Encoders {
		stale := filepath.Join(mz.opts.DstDir, filepath.FromSlash(rel+enc.Ext()))
		if err := os.Remove(stale); err != nil && !utils.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale %s: %w", stale, err)
		}
	}
	return nil
}
