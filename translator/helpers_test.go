package translator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"pdf-translator/pdf"
)

// fakeDoc 记录所有擦除与写入操作的内存文档
type fakeDoc struct {
	pages   [][]pdf.Block
	pending map[int][]pdf.Rect
	calls   []string
	inserts []insertCall
	closed  bool
	saved   string
	saveErr error
}

type insertCall struct {
	page  int
	at    pdf.Point
	text  string
	style pdf.TextStyle
}

func newFakeDoc(pages ...[]pdf.Block) *fakeDoc {
	return &fakeDoc{pages: pages, pending: make(map[int][]pdf.Rect)}
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Blocks(page int) ([]pdf.Block, error) {
	if page < 0 || page >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return d.pages[page], nil
}

func (d *fakeDoc) AddRedactAnnot(page int, r pdf.Rect) {
	d.pending[page] = append(d.pending[page], r)
	d.calls = append(d.calls, fmt.Sprintf("redact %d %s", page, r))
}

func (d *fakeDoc) ApplyRedactions(page int) error {
	d.calls = append(d.calls, fmt.Sprintf("apply %d (%d)", page, len(d.pending[page])))
	delete(d.pending, page)
	return nil
}

func (d *fakeDoc) InsertText(page int, at pdf.Point, text string, style pdf.TextStyle) error {
	d.calls = append(d.calls, fmt.Sprintf("insert %d %s", page, text))
	d.inserts = append(d.inserts, insertCall{page: page, at: at, text: text, style: style})
	return nil
}

func (d *fakeDoc) Save(path string) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.saved = path
	return os.WriteFile(path, []byte("%PDF-fake"), 0644)
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

func openerFor(doc *fakeDoc) Opener {
	return func(string) (Document, error) { return doc, nil }
}

func textBlock(spans ...pdf.Span) pdf.Block {
	b := pdf.Block{Type: pdf.BlockText, Spans: spans}
	for i, s := range spans {
		if i == 0 {
			b.BBox = s.BBox
		} else {
			b.BBox = b.BBox.Union(s.BBox)
		}
	}
	return b
}

func span(text string, x, y float64) pdf.Span {
	return pdf.Span{
		Text: text,
		Font: "Helvetica",
		Size: 12,
		BBox: pdf.Rect{X0: x, Y0: y, X1: x + 6*float64(len(text)), Y1: y + 12},
	}
}

func imageBlock() pdf.Block {
	return pdf.Block{Type: pdf.BlockImage, BBox: pdf.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}}
}

// scriptedModel 依次返回预设响应，用完后重复最后一个
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedModel) MakeRequest(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	i := len(m.prompts) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
