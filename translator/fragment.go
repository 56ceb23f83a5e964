package translator

import (
	"fmt"
	"strings"

	"pdf-translator/pdf"
)

// TextFragment 页面上一处文本出现，提取后不再修改
type TextFragment struct {
	Text     string
	Page     int
	BBox     pdf.Rect
	FontName string
	FontSize float64
	Color    int // 24 位打包 RGB
}

// FragmentBatch 按首次出现顺序去重后的文本列表
type FragmentBatch []string

// ExtractOption 提取选项
type ExtractOption func(*extractConfig)

type extractConfig struct {
	pageLimit int
}

// WithPageLimit 只处理前 n 页，n <= 0 表示全部
func WithPageLimit(n int) ExtractOption {
	return func(c *extractConfig) {
		c.pageLimit = n
	}
}

func pageSpan(doc Document, opts []ExtractOption) int {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	n := doc.PageCount()
	if cfg.pageLimit > 0 && cfg.pageLimit < n {
		n = cfg.pageLimit
	}
	return n
}

// walkSpans 按页、块、span 的顺序遍历文本，跳过图片块
func walkSpans(doc Document, opts []ExtractOption, fn func(page int, s pdf.Span)) error {
	n := pageSpan(doc, opts)
	for page := 0; page < n; page++ {
		blocks, err := doc.Blocks(page)
		if err != nil {
			return fmt.Errorf("读取第 %d 页文本失败: %w", page+1, err)
		}
		for _, b := range blocks {
			if b.Type != pdf.BlockText {
				continue
			}
			for _, s := range b.Spans {
				fn(page, s)
			}
		}
	}
	return nil
}

// CollectTexts 收集文档中所有不同的文本，保持首次出现的顺序
func CollectTexts(doc Document, opts ...ExtractOption) (FragmentBatch, error) {
	seen := make(map[string]struct{})
	var batch FragmentBatch
	err := walkSpans(doc, opts, func(_ int, s pdf.Span) {
		if _, ok := seen[s.Text]; ok {
			return
		}
		seen[s.Text] = struct{}{}
		batch = append(batch, s.Text)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// CollectFragments 收集每一处文本出现及其位置与样式
func CollectFragments(doc Document, opts ...ExtractOption) ([]TextFragment, error) {
	var fragments []TextFragment
	err := walkSpans(doc, opts, func(page int, s pdf.Span) {
		fragments = append(fragments, TextFragment{
			Text:     s.Text,
			Page:     page,
			BBox:     s.BBox,
			FontName: s.Font,
			FontSize: s.Size,
			Color:    s.Color,
		})
	})
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

// PageContents 未排版路径：每页一个内容单元，按行拼接
func PageContents(doc Document, opts ...ExtractOption) ([]string, error) {
	n := pageSpan(doc, opts)
	contents := make([]string, 0, n)
	for page := 0; page < n; page++ {
		blocks, err := doc.Blocks(page)
		if err != nil {
			return nil, fmt.Errorf("读取第 %d 页文本失败: %w", page+1, err)
		}
		var lines []string
		for _, b := range blocks {
			if b.Type != pdf.BlockText {
				continue
			}
			parts := make([]string, 0, len(b.Spans))
			for _, s := range b.Spans {
				parts = append(parts, s.Text)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		contents = append(contents, strings.Join(lines, "\n"))
	}
	return contents, nil
}

// groupByPage 把出现按页分组，保持原有顺序
func groupByPage(fragments []TextFragment) map[int][]TextFragment {
	pages := make(map[int][]TextFragment)
	for _, f := range fragments {
		pages[f.Page] = append(pages[f.Page], f)
	}
	return pages
}
