package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-translator/pdf"
)

func TestDecodeColor(t *testing.T) {
	tests := []struct {
		packed int
		want   [3]float64
	}{
		{0x000000, [3]float64{0, 0, 0}},
		{0xFFFFFF, [3]float64{1, 1, 1}},
		{0xFF0000, [3]float64{1, 0, 0}},
		{0x00FF00, [3]float64{0, 1, 0}},
		{0x0000FF, [3]float64{0, 0, 1}},
		{0x336699, [3]float64{0x33 / 255.0, 0x66 / 255.0, 0x99 / 255.0}},
	}
	for _, tt := range tests {
		got := DecodeColor(tt.packed)
		for i := range got {
			assert.InDelta(t, tt.want[i], got[i], 1e-9, "packed %06x channel %d", tt.packed, i)
		}
	}
}

// TestRewritePageOrder 每处先擦除再写入，按提取顺序
func TestRewritePageOrder(t *testing.T) {
	doc := newFakeDoc([]pdf.Block{textBlock(span("Hello", 10, 20), span("World", 60, 20))})
	fragments, err := CollectFragments(doc)
	require.NoError(t, err)

	w := NewPageRewriter(NewFontResolver("", "", ""), "中文", nil)
	err = w.RewritePage(doc, 0, fragments, TranslationMapping{"Hello": "你好", "World": "世界"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"redact 0 [10.00 20.00 40.00 32.00]",
		"apply 0 (1)",
		"insert 0 你好",
		"redact 0 [60.00 20.00 90.00 32.00]",
		"apply 0 (1)",
		"insert 0 世界",
	}, doc.calls)

	require.Len(t, doc.inserts, 2)
	assertPoint(t, pdf.Point{X: 10, Y: 27.2}, doc.inserts[0].at)
	assert.Equal(t, "SimSun", doc.inserts[0].style.FontName)
	assert.Equal(t, "fonts/simsun.ttc", doc.inserts[0].style.FontFile)
	assert.InDelta(t, 12, doc.inserts[0].style.FontSize, 1e-9)
}

func TestRewritePageIdentityFallback(t *testing.T) {
	doc := newFakeDoc([]pdf.Block{textBlock(span("Hello", 10, 20), span("Untranslated", 60, 20))})
	fragments, err := CollectFragments(doc)
	require.NoError(t, err)

	w := NewPageRewriter(NewFontResolver("", "", ""), "English", nil)
	require.NoError(t, w.RewritePage(doc, 0, fragments, TranslationMapping{"Hello": "Hi"}))

	require.Len(t, doc.inserts, 2)
	assert.Equal(t, "Hi", doc.inserts[0].text)
	assert.Equal(t, "Untranslated", doc.inserts[1].text)
	assert.Equal(t, "Helvetica", doc.inserts[1].style.FontName)
	assert.Empty(t, doc.inserts[1].style.FontFile)
}

// TestRewritePageOccurrenceIndependence 相同文本的两处各自擦除、各自写入
func TestRewritePageOccurrenceIndependence(t *testing.T) {
	doc := newFakeDoc([]pdf.Block{
		textBlock(span("Hello", 10, 20)),
		textBlock(span("Hello", 200, 300)),
	})
	fragments, err := CollectFragments(doc)
	require.NoError(t, err)

	w := NewPageRewriter(NewFontResolver("", "", ""), "中文", nil)
	require.NoError(t, w.RewritePage(doc, 0, fragments, TranslationMapping{"Hello": "你好"}))

	require.Len(t, doc.inserts, 2)
	assertPoint(t, pdf.Point{X: 10, Y: 27.2}, doc.inserts[0].at)
	assertPoint(t, pdf.Point{X: 200, Y: 307.2}, doc.inserts[1].at)
	assert.Equal(t, "redact 0 [200.00 300.00 230.00 312.00]", doc.calls[3])
}

func TestRewritePageColor(t *testing.T) {
	s := span("Red", 10, 20)
	s.Color = 0xFF0000
	doc := newFakeDoc([]pdf.Block{textBlock(s)})
	fragments, err := CollectFragments(doc)
	require.NoError(t, err)

	w := NewPageRewriter(NewFontResolver("", "", ""), "English", nil)
	require.NoError(t, w.RewritePage(doc, 0, fragments, nil))

	require.Len(t, doc.inserts, 1)
	assert.Equal(t, [3]float64{1, 0, 0}, doc.inserts[0].style.Color)
	assert.Equal(t, "Red", doc.inserts[0].text)
}

func assertPoint(t *testing.T, want, got pdf.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}
