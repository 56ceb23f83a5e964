package translator

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// Book 未排版路径的翻译结果，每页一个内容单元
type Book struct {
	Title string
	Pages []BookPage
}

// BookPage 一页的原文与译文
type BookPage struct {
	Number     int
	Original   string
	Translated string
}

// BookWriter 把 Book 写成 markdown、html 或 pdf
type BookWriter struct {
	fontFile string // pdf 输出使用的 TrueType 字体，为空或不可用时使用内置字体
	logger   *zap.Logger
}

// NewBookWriter 创建 BookWriter
func NewBookWriter(fontFile string, logger *zap.Logger) *BookWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookWriter{fontFile: fontFile, logger: logger}
}

// OutputExtension 输出文件扩展名：markdown 为 md，其余为格式名本身
func OutputExtension(format string) string {
	if strings.EqualFold(format, "markdown") {
		return "md"
	}
	return format
}

// SupportedFormat 格式名是否可以写出，不区分大小写
func SupportedFormat(format string) bool {
	switch strings.ToLower(format) {
	case "pdf", "markdown", "md", "html":
		return true
	}
	return false
}

// Save 按格式写出
func (w *BookWriter) Save(book *Book, path, format string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: 创建输出目录失败: %w", ErrIO, err)
		}
	}

	var err error
	switch strings.ToLower(format) {
	case "markdown", "md":
		err = os.WriteFile(path, []byte(w.markdown(book)), 0644)
	case "html":
		err = w.saveHTML(book, path)
	case "pdf":
		err = w.savePDF(book, path)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	w.logger.Info("译文已写出", zap.String("path", path), zap.String("format", format), zap.Int("pages", len(book.Pages)))
	return nil
}

func (w *BookWriter) markdown(book *Book) string {
	var sb strings.Builder
	if book.Title != "" {
		sb.WriteString("# " + book.Title + "\n\n")
	}
	for i, p := range book.Pages {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		for _, line := range strings.Split(p.Translated, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				sb.WriteString(line + "\n\n")
			}
		}
	}
	return sb.String()
}

func (w *BookWriter) saveHTML(book *Book, path string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(w.markdown(book)), &body); err != nil {
		return fmt.Errorf("渲染 html 失败: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(book.Title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return os.WriteFile(path, out.Bytes(), 0644)
}

func (w *BookWriter) savePDF(book *Book, path string) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(book.Title, true)
	doc.SetCreator("pdf-translator", true)

	family := "Arial"
	tr := doc.UnicodeTranslatorFromDescriptor("")
	if w.fontFile != "" && strings.EqualFold(filepath.Ext(w.fontFile), ".ttf") {
		if _, err := os.Stat(w.fontFile); err == nil {
			doc.AddUTF8Font("translated", "", w.fontFile)
			family = "translated"
			tr = func(s string) string { return s }
		}
	}
	if family == "Arial" {
		w.logger.Warn("未配置可用的 TrueType 字体，非拉丁文字可能无法显示", zap.String("font", w.fontFile))
	}

	for _, p := range book.Pages {
		doc.AddPage()
		doc.SetFont(family, "", 11)
		for _, line := range strings.Split(p.Translated, "\n") {
			doc.MultiCell(0, 6, tr(line), "", "L", false)
		}
	}
	if len(book.Pages) == 0 {
		doc.AddPage()
	}

	return doc.OutputFileAndClose(path)
}
