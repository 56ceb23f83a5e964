package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSamplePDF 生成单页 A4：两处 "Hello"、一处 "World"、一个填充矩形和一张图片
func writeSamplePDF(t *testing.T) string {
	t.Helper()

	m := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			m.Set(x, y, color.RGBA{R: 0, G: 128, B: 255, A: 255})
		}
	}
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, m))

	f := gofpdf.New("P", "pt", "A4", "")
	f.AddPage()
	f.SetFont("Helvetica", "", 12)
	f.Text(72, 100, "Hello")
	f.Text(300, 100, "World")
	f.Text(72, 300, "Hello")

	f.SetFillColor(200, 30, 30)
	f.Rect(300, 400, 100, 50, "F")

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	f.RegisterImageOptionsReader("logo", opt, &img)
	f.ImageOptions("logo", 72, 500, 100, 100, false, opt, 0, "")

	path := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, f.OutputFileAndClose(path))
	return path
}

func pageSpans(t *testing.T, d *Document) ([]Span, []Block) {
	t.Helper()
	blocks, err := d.Blocks(0)
	require.NoError(t, err)

	var spans []Span
	var images []Block
	for _, b := range blocks {
		if b.Type == BlockImage {
			images = append(images, b)
		}
		spans = append(spans, b.Spans...)
	}
	return spans, images
}

func withText(spans []Span, text string) []Span {
	var out []Span
	for _, s := range spans {
		if s.Text == text {
			out = append(out, s)
		}
	}
	return out
}

// baselineOf 左上角坐标系中的基线位置
func baselineOf(s Span) float64 {
	return s.BBox.Y0 + 0.8*s.Size
}

func anchorOf(s Span) Point {
	return Point{X: s.BBox.X0, Y: s.BBox.Y0 + 0.6*s.Size}
}

// TestDocumentRedactInsertSave 擦除、插入、保存后重新打开检查页面内容
func TestDocumentRedactInsertSave(t *testing.T) {
	doc, err := Open(writeSamplePDF(t))
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 1, doc.PageCount())

	spans, images := pageSpans(t, doc)
	hellos := withText(spans, "Hello")
	require.Len(t, hellos, 2)
	worlds := withText(spans, "World")
	require.Len(t, worlds, 1)
	require.Len(t, images, 1)

	first := hellos[0]
	if baselineOf(hellos[1]) < baselineOf(first) {
		first = hellos[1]
	}
	world := worlds[0]
	assert.InDelta(t, 72, first.BBox.X0, 0.5)
	assert.InDelta(t, 100, baselineOf(first), 0.5)
	assert.InDelta(t, 12, first.Size, 0.01)

	// 只擦除第一处 "Hello" 和 "World"
	doc.AddRedactAnnot(0, first.BBox)
	doc.AddRedactAnnot(0, world.BBox)
	require.NoError(t, doc.ApplyRedactions(0))

	style := TextStyle{FontName: "Helvetica", FontSize: 12}
	require.NoError(t, doc.InsertText(0, anchorOf(first), "Bonjour", style))
	require.NoError(t, doc.InsertText(0, anchorOf(world), "Monde", style))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.Save(out))

	reopened, err := Open(out)
	require.NoError(t, err)
	defer reopened.Close()

	spans, images = pageSpans(t, reopened)
	assert.Empty(t, withText(spans, "World"))

	remaining := withText(spans, "Hello")
	require.Len(t, remaining, 1, "未擦除的一处保留")
	assert.InDelta(t, 72, remaining[0].BBox.X0, 0.5)
	assert.InDelta(t, 300, baselineOf(remaining[0]), 0.5)

	for text, orig := range map[string]Span{"Bonjour": first, "Monde": world} {
		got := withText(spans, text)
		require.Len(t, got, 1, text)
		want := anchorOf(orig)
		assert.InDelta(t, want.X, got[0].BBox.X0, 0.5, text)
		assert.InDelta(t, want.Y, baselineOf(got[0]), 0.5, text)
		assert.InDelta(t, 12, got[0].Size, 0.01, text)
	}

	require.Len(t, images, 1, "图片不受擦除影响")
	assert.InDelta(t, 72, images[0].BBox.X0, 0.5)
	assert.InDelta(t, 500, images[0].BBox.Y0, 0.5)
	assert.InDelta(t, 172, images[0].BBox.X1, 0.5)
	assert.InDelta(t, 600, images[0].BBox.Y1, 0.5)

	prog, err := reopened.program(0)
	require.NoError(t, err)
	fills := 0
	for _, ops := range prog.ops {
		for _, op := range ops {
			if op.op == "re" {
				fills++
			}
		}
	}
	assert.Equal(t, 1, fills, "矢量图形不受擦除影响")
}

// TestDocumentRedactSecondPassKeepsInsertedText 插入的文本不会被同页后续擦除删掉
func TestDocumentRedactSecondPassKeepsInsertedText(t *testing.T) {
	doc, err := Open(writeSamplePDF(t))
	require.NoError(t, err)
	defer doc.Close()

	spans, _ := pageSpans(t, doc)
	world := withText(spans, "World")[0]

	doc.AddRedactAnnot(0, world.BBox)
	require.NoError(t, doc.ApplyRedactions(0))
	require.NoError(t, doc.InsertText(0, anchorOf(world), "Monde", TextStyle{FontName: "Helvetica", FontSize: 12}))

	// 覆盖插入位置的第二次擦除
	doc.AddRedactAnnot(0, world.BBox)
	require.NoError(t, doc.ApplyRedactions(0))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.Save(out))

	reopened, err := Open(out)
	require.NoError(t, err)
	defer reopened.Close()

	spans, _ = pageSpans(t, reopened)
	assert.Len(t, withText(spans, "Monde"), 1)
	assert.Len(t, withText(spans, "Hello"), 2)
}

func TestDocumentClosed(t *testing.T) {
	doc, err := Open(writeSamplePDF(t))
	require.NoError(t, err)
	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())

	_, err = doc.Blocks(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, doc.Save(filepath.Join(t.TempDir(), "x.pdf")), ErrClosed)
}

func TestDocumentPageOutOfRange(t *testing.T) {
	doc, err := Open(writeSamplePDF(t))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.Blocks(1)
	assert.Error(t, err)
	assert.Error(t, doc.InsertText(-1, Point{}, "x", TextStyle{FontName: "Helvetica", FontSize: 12}))
}
