package translator

import (
	"fmt"

	"go.uber.org/zap"

	"pdf-translator/pdf"
)

// baselineOffset 插入点相对框顶的下移量（乘以字号），近似对齐原文基线
const baselineOffset = 0.6

// RenderSpec 一处译文的绘制参数
type RenderSpec struct {
	Font     FontChoice
	FontSize float64
	Color    [3]float64
}

// Style 转为 pdf 包的文本样式
func (r RenderSpec) Style() pdf.TextStyle {
	return pdf.TextStyle{
		FontName: r.Font.Name(),
		FontFile: r.Font.File(),
		FontSize: r.FontSize,
		Color:    r.Color,
	}
}

// DecodeColor 把 24 位打包颜色拆成归一化的 RGB
func DecodeColor(packed int) [3]float64 {
	r := (packed >> 16) & 0xFF
	g := (packed >> 8) & 0xFF
	b := packed & 0xFF
	return [3]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

// PageRewriter 擦除原文并在原位置写入译文
type PageRewriter struct {
	fonts          *FontResolver
	targetLanguage string
	logger         *zap.Logger
}

// NewPageRewriter 创建 PageRewriter
func NewPageRewriter(fonts *FontResolver, targetLanguage string, logger *zap.Logger) *PageRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageRewriter{fonts: fonts, targetLanguage: targetLanguage, logger: logger}
}

// RewritePage 按提取顺序逐处替换：先擦除该处原文，再写入译文
func (w *PageRewriter) RewritePage(doc Document, page int, fragments []TextFragment, mapping TranslationMapping) error {
	for i, f := range fragments {
		text := mapping.Lookup(f.Text)
		spec := RenderSpec{
			Font:     w.fonts.Resolve(f.FontName, w.targetLanguage),
			FontSize: f.FontSize,
			Color:    DecodeColor(f.Color),
		}

		doc.AddRedactAnnot(page, f.BBox)
		if err := doc.ApplyRedactions(page); err != nil {
			return fmt.Errorf("第 %d 页第 %d 处擦除失败: %w", page+1, i+1, err)
		}

		at := pdf.Point{X: f.BBox.X0, Y: f.BBox.Y0 + f.FontSize*baselineOffset}
		if err := doc.InsertText(page, at, text, spec.Style()); err != nil {
			return fmt.Errorf("第 %d 页第 %d 处写入失败: %w", page+1, i+1, err)
		}

		w.logger.Debug("已替换",
			zap.Int("page", page),
			zap.String("original", f.Text),
			zap.String("translated", text),
			zap.String("font", spec.Font.Name()))
	}
	return nil
}
