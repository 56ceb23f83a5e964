package translator

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pdf-translator/pdf"
)

// Document 可翻译的分页文档。页码从 0 开始。
type Document interface {
	PageCount() int
	Blocks(page int) ([]pdf.Block, error)
	AddRedactAnnot(page int, r pdf.Rect)
	ApplyRedactions(page int) error
	InsertText(page int, at pdf.Point, text string, style pdf.TextStyle) error
	Save(path string) error
	Close() error
}

// Opener 打开文档
type Opener func(path string) (Document, error)

// PDFOpener 默认的 Opener，使用 pdf 包
func PDFOpener(logger *zap.Logger) Opener {
	return func(path string) (Document, error) {
		doc, err := pdf.Open(path, pdf.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

// ValidateDocument 验证文件是否为支持的文档格式
func ValidateDocument(filePath string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".pdf" {
		return fmt.Errorf("不支持的文件格式: %q，仅支持 .pdf 文件", ext)
	}
	return nil
}
