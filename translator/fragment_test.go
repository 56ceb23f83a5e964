package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-translator/pdf"
)

func twoPageDoc() *fakeDoc {
	return newFakeDoc(
		[]pdf.Block{
			textBlock(span("Hello", 10, 10), span("World", 60, 10)),
			imageBlock(),
			textBlock(span("Hello", 10, 40)),
		},
		[]pdf.Block{
			textBlock(span("World", 10, 10), span("Again", 60, 10)),
		},
	)
}

// TestCollectTexts 测试去重并保持首次出现顺序
func TestCollectTexts(t *testing.T) {
	doc := twoPageDoc()

	batch, err := CollectTexts(doc)
	require.NoError(t, err)
	assert.Equal(t, FragmentBatch{"Hello", "World", "Again"}, batch)
	assert.Empty(t, doc.calls, "提取不应修改文档")
}

func TestCollectFragments(t *testing.T) {
	doc := twoPageDoc()

	fragments, err := CollectFragments(doc)
	require.NoError(t, err)
	require.Len(t, fragments, 5)

	assert.Equal(t, "Hello", fragments[0].Text)
	assert.Equal(t, 0, fragments[0].Page)
	assert.Equal(t, "Hello", fragments[2].Text)
	assert.NotEqual(t, fragments[0].BBox, fragments[2].BBox)
	assert.Equal(t, 1, fragments[3].Page)
	assert.Equal(t, "Helvetica", fragments[3].FontName)
	assert.InDelta(t, 12, fragments[3].FontSize, 1e-9)
}

func TestCollectWithPageLimit(t *testing.T) {
	doc := twoPageDoc()

	batch, err := CollectTexts(doc, WithPageLimit(1))
	require.NoError(t, err)
	assert.Equal(t, FragmentBatch{"Hello", "World"}, batch)

	batch, err = CollectTexts(doc, WithPageLimit(0))
	require.NoError(t, err)
	assert.Len(t, batch, 3)
}

func TestCollectEmptyDocument(t *testing.T) {
	doc := newFakeDoc([]pdf.Block{imageBlock()})

	batch, err := CollectTexts(doc)
	require.NoError(t, err)
	assert.Empty(t, batch)

	fragments, err := CollectFragments(doc)
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestPageContents(t *testing.T) {
	contents, err := PageContents(twoPageDoc())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello World\nHello", "World Again"}, contents)

	contents, err = PageContents(twoPageDoc(), WithPageLimit(1))
	require.NoError(t, err)
	assert.Len(t, contents, 1)
}

func TestGroupByPage(t *testing.T) {
	fragments, err := CollectFragments(twoPageDoc())
	require.NoError(t, err)

	pages := groupByPage(fragments)
	require.Len(t, pages[0], 3)
	require.Len(t, pages[1], 2)
	assert.Equal(t, "World", pages[0][1].Text)
}
