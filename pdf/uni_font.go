package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
)

// standardFonts PDF 的 14 种标准字体，阅读器必须内置
var standardFonts = map[string]bool{
	"Courier":               true,
	"Courier-Bold":          true,
	"Courier-Oblique":       true,
	"Courier-BoldOblique":   true,
	"Helvetica":             true,
	"Helvetica-Bold":        true,
	"Helvetica-Oblique":     true,
	"Helvetica-BoldOblique": true,
	"Times-Roman":           true,
	"Times-Bold":            true,
	"Times-Italic":          true,
	"Times-BoldItalic":      true,
	"Symbol":                true,
	"ZapfDingbats":          true,
}

// IsStandardFont 判断字体是否为 14 种标准字体之一。
// 子集字体前缀（如 "ABCDEF+Helvetica"）会被忽略。
func IsStandardFont(name string) bool {
	return standardFonts[BaseFontName(name)]
}

// BaseFontName 去掉子集字体前缀（六个大写字母加 "+"）
func BaseFontName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

var installMu sync.Mutex

// EnsureFont 确保 pdfcpu 能按 name 使用字体文件 file。
// file 可以是绝对路径，也可以是相对当前目录或系统字体目录的路径。
func EnsureFont(name, file string) error {
	installMu.Lock()
	defer installMu.Unlock()

	if font.IsUserFont(name) {
		return nil
	}

	path, err := FindFontFile(file)
	if err != nil {
		return err
	}
	if err := api.InstallFonts([]string{path}); err != nil {
		return fmt.Errorf("安装字体 %s 失败: %w", path, err)
	}
	if !font.IsUserFont(name) {
		return fmt.Errorf("字体文件 %s 未提供字体 %s", path, name)
	}
	return nil
}

// FindFontFile 查找字体文件，先按原路径，再到系统字体目录下按文件名查找
func FindFontFile(file string) (string, error) {
	if _, err := os.Stat(file); err == nil {
		return file, nil
	}
	if filepath.IsAbs(file) {
		return "", fmt.Errorf("字体文件不存在: %s", file)
	}

	dir := getSystemFontsDir()
	if dir == "" {
		return "", fmt.Errorf("字体文件不存在: %s", file)
	}
	candidate := filepath.Join(dir, filepath.Base(file))
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	found := findFontIn(dir, filepath.Base(file))
	if found == "" {
		return "", fmt.Errorf("字体文件不存在: %s", file)
	}
	return found, nil
}

// findFontIn 在 dir 下递归查找文件名（不区分大小写），Linux 字体通常按厂商分目录存放。
// 无法读取的目录跳过，不影响其余目录。
func findFontIn(dir, name string) string {
	var found string
	_ = filepath.WalkDir(dir, func(p string, e os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// getSystemFontsDir 获取系统字体目录
func getSystemFontsDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("WINDIR"), "Fonts")
	case "darwin":
		return "/System/Library/Fonts"
	case "linux":
		for _, dir := range []string{"/usr/share/fonts", "/usr/local/share/fonts"} {
			if _, err := os.Stat(dir); err == nil {
				return dir
			}
		}
		return ""
	default:
		return ""
	}
}
