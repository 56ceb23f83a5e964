package pdf

import (
	"fmt"
	"math"
	"strings"

	dslipakpdf "github.com/dslipak/pdf"
	"github.com/ledongthuc/pdf"
)

// glyph 文本提取库给出的单个字形，坐标为 PDF 用户空间
type glyph struct {
	Font     string
	FontSize float64
	X, Y, W  float64
	S        string
}

// readGlyphs 逐页读取字形。优先使用 ledongthuc/pdf，失败时回退到 dslipak/pdf。
func readGlyphs(path string) ([][]glyph, error) {
	pages, err := readGlyphsLedongthuc(path)
	if err == nil {
		return pages, nil
	}
	fallback, err2 := readGlyphsDslipak(path)
	if err2 != nil {
		return nil, fmt.Errorf("提取文本失败: ledongthuc/pdf(%v), dslipak/pdf(%w)", err, err2)
	}
	return fallback, nil
}

func readGlyphsLedongthuc(path string) (pages [][]glyph, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ledongthuc/pdf 解析异常: %v", rec)
		}
	}()

	pages = make([][]glyph, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			pages[i-1] = append(pages[i-1], glyph{Font: t.Font, FontSize: t.FontSize, X: t.X, Y: t.Y, W: t.W, S: t.S})
		}
	}
	return pages, nil
}

func readGlyphsDslipak(path string) (pages [][]glyph, err error) {
	r, err := dslipakpdf.Open(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("dslipak/pdf 解析异常: %v", rec)
		}
	}()

	pages = make([][]glyph, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			pages[i-1] = append(pages[i-1], glyph{Font: t.Font, FontSize: t.FontSize, X: t.X, Y: t.Y, W: t.W, S: t.S})
		}
	}
	return pages, nil
}

// assembleSpans 把同一基线上字体字号一致且相邻的字形合并成 Span。
// pageHeight 用于换算到左上角原点的页面坐标。
func assembleSpans(glyphs []glyph, pageHeight float64) []Span {
	var spans []Span
	var cur *glyph
	var b strings.Builder
	var first glyph

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(b.String())
		if text != "" {
			baseline := pageHeight - first.Y
			spans = append(spans, Span{
				BBox: Rect{
					X0: first.X,
					Y0: baseline - 0.8*first.FontSize,
					X1: cur.X + cur.W,
					Y1: baseline + 0.2*first.FontSize,
				},
				Font:     first.Font,
				Size:     first.FontSize,
				Text:     text,
				baseline: first.Y,
			})
		}
		cur = nil
		b.Reset()
	}

	for i := range glyphs {
		g := glyphs[i]
		if cur != nil && canJoin(*cur, g) {
			gap := g.X - (cur.X + cur.W)
			if gap > 0.15*g.FontSize && !strings.HasSuffix(b.String(), " ") && g.S != " " {
				b.WriteByte(' ')
			}
			b.WriteString(g.S)
			cur = &glyphs[i]
			continue
		}
		flush()
		first = g
		cur = &glyphs[i]
		b.WriteString(g.S)
	}
	flush()
	return spans
}

// canJoin 判断 b 能否接在 a 之后：同字体、同字号、同基线、水平距离不超过一个字宽
func canJoin(a, b glyph) bool {
	if a.Font != b.Font || math.Abs(a.FontSize-b.FontSize) > 0.01 {
		return false
	}
	if math.Abs(a.Y-b.Y) > 0.2*a.FontSize {
		return false
	}
	gap := b.X - (a.X + a.W)
	return gap >= -0.5*a.FontSize && gap <= a.FontSize
}

// groupLines 把同一基线上的连续 Span 归为一个文本块
func groupLines(spans []Span) []Block {
	var blocks []Block
	for _, s := range spans {
		if n := len(blocks); n > 0 {
			last := &blocks[n-1]
			prev := last.Spans[len(last.Spans)-1]
			if math.Abs(prev.baseline-s.baseline) <= 0.3*prev.Size {
				last.Spans = append(last.Spans, s)
				last.BBox = last.BBox.Union(s.BBox)
				continue
			}
		}
		blocks = append(blocks, Block{Type: BlockText, BBox: s.BBox, Spans: []Span{s}})
	}
	return blocks
}
