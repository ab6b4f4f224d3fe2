/**
 * internal/dist/scripts.go
 * 上传脚本和说明文件
 *
 * 功能：
 * - README.TXT（手动烧录步骤）
 * - upload_linux.sh / upload_mac.sh / upload_win.bat
 */

package dist

import (
	_ "embed"
	"os"
	"path/filepath"

	"pixelart-build/internal/utils"
)

// ReadmeName 说明文件名
const ReadmeName = "README.TXT"

//go:embed readme.txt
var readmeText string

// Script 上传脚本
type Script struct {
	Name   string      // 文件名
	Header string      // 解释器行
	Tool   string      // 发布包内 esptool 的相对路径
	Perm   os.FileMode // 文件权限
}

// Scripts 三个平台的上传脚本
// 发布包的 esptool/ 目录按平台放置独立可执行文件
var Scripts = []Script{
	{Name: "upload_linux.sh", Header: "#!/bin/bash\n", Tool: "./esptool/linux/esptool", Perm: utils.ScriptPerm},
	{Name: "upload_mac.sh", Header: "#!/bin/bash\n", Tool: "./esptool/mac/esptool", Perm: utils.ScriptPerm},
	{Name: "upload_win.bat", Header: "", Tool: `.\esptool\win\esptool.exe`, Perm: utils.FilePerm},
}

// Render 生成脚本内容（无结尾换行）
// cmd 为重建后的参数串，每个参数前带一个空格
func (s Script) Render(cmd string) string {
	return s.Header + s.Tool + " --no-stub" + cmd
}

// Readme 说明文件内容
func Readme() string {
	return readmeText + "\n"
}

// writeReadme 写入 README.TXT
func writeReadme(dir string, stats *utils.BuildStats) error {
	return utils.WriteFile(filepath.Join(dir, ReadmeName), []byte(Readme()), utils.FilePerm, stats)
}

// writeScripts 写入三个上传脚本
func writeScripts(dir, cmd string, stats *utils.BuildStats) error {
	for _, s := range Scripts {
		if err := utils.WriteFile(filepath.Join(dir, s.Name), []byte(s.Render(cmd)), s.Perm, stats); err != nil {
			return err
		}
		stats.AddFile()
	}
	return nil
}
