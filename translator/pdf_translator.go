package translator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PDFTranslator 串联提取、请求、校验、替换与保存。每次调用独占一个文档。
type PDFTranslator struct {
	model     Model
	modelName string
	builder   *RequestBuilder
	fonts     *FontResolver
	writer    *BookWriter
	cache     *Cache
	open      Opener
	observer  func(Transition)
	logger    *zap.Logger
}

// Option PDFTranslator 选项
type Option func(*PDFTranslator)

// WithLogger 设置日志记录器
func WithLogger(l *zap.Logger) Option {
	return func(t *PDFTranslator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCache 缓存校验通过的映射，nil 表示不缓存
func WithCache(c *Cache) Option {
	return func(t *PDFTranslator) {
		t.cache = c
	}
}

// WithOpener 替换文档打开方式
func WithOpener(o Opener) Option {
	return func(t *PDFTranslator) {
		if o != nil {
			t.open = o
		}
	}
}

// WithFontResolver 替换字体选择器
func WithFontResolver(r *FontResolver) Option {
	return func(t *PDFTranslator) {
		if r != nil {
			t.fonts = r
		}
	}
}

// WithBookWriter 替换未排版路径的输出器
func WithBookWriter(w *BookWriter) Option {
	return func(t *PDFTranslator) {
		if w != nil {
			t.writer = w
		}
	}
}

// WithModelName 模型名，参与缓存键
func WithModelName(name string) Option {
	return func(t *PDFTranslator) {
		t.modelName = name
	}
}

// WithTransitionObserver 观察校验状态机的每次转移
func WithTransitionObserver(fn func(Transition)) Option {
	return func(t *PDFTranslator) {
		t.observer = fn
	}
}

// NewPDFTranslator 创建 PDFTranslator
func NewPDFTranslator(model Model, opts ...Option) (*PDFTranslator, error) {
	if model == nil {
		return nil, errors.New("model 不能为空")
	}
	builder, err := NewRequestBuilder()
	if err != nil {
		return nil, err
	}
	t := &PDFTranslator{
		model:   model,
		builder: builder,
		fonts:   NewFontResolver("", "", ""),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.open == nil {
		t.open = PDFOpener(t.logger)
	}
	if t.writer == nil {
		t.writer = NewBookWriter("", t.logger)
	}
	return t, nil
}

// TranslatePDFFormatted 翻译 PDF。format 为 pdf（不区分大小写）时保留版式原位替换；
// 其他格式走未排版路径，pages 仅对该路径生效。
// 任何失败都会中止整个操作，不写出输出文件。
func (t *PDFTranslator) TranslatePDFFormatted(ctx context.Context, inputPath, format, targetLanguage, outputPath string, pages int) error {
	if !SupportedFormat(format) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if !strings.EqualFold(format, "pdf") {
		return t.TranslatePDF(ctx, inputPath, format, targetLanguage, outputPath, pages)
	}

	start := time.Now()
	log := t.logger.With(zap.String("input", inputPath), zap.String("target_language", targetLanguage))

	doc, err := t.open(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer doc.Close()

	batch, err := CollectTexts(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	log.Info("已提取文本", zap.Int("pages", doc.PageCount()), zap.Int("distinct", len(batch)))

	mapping, err := t.translateBatch(ctx, batch, targetLanguage)
	if err != nil {
		log.Error("翻译失败", zap.Error(err))
		return err
	}

	fragments, err := CollectFragments(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	rewriter := NewPageRewriter(t.fonts, targetLanguage, log)
	byPage := groupByPage(fragments)
	for page := 0; page < doc.PageCount(); page++ {
		if len(byPage[page]) == 0 {
			continue
		}
		if err := rewriter.RewritePage(doc, page, byPage[page], mapping); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	if err := save(doc, outputPath); err != nil {
		return err
	}

	log.Info("翻译完成",
		zap.String("output", outputPath),
		zap.Int("occurrences", len(fragments)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// save 保存文档，失败时删除可能已写出的部分文件
func save(doc Document, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: 创建输出目录失败: %w", ErrIO, err)
		}
	}
	if err := doc.Save(outputPath); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// translateBatch 取缓存或运行校验状态机得到映射
func (t *PDFTranslator) translateBatch(ctx context.Context, batch FragmentBatch, targetLanguage string) (TranslationMapping, error) {
	key := CacheKey(batch, targetLanguage, t.modelName)
	if t.cache != nil {
		if m, ok := t.cache.Get(key); ok && covers(m, batch) {
			t.logger.Info("使用缓存的翻译", zap.Int("distinct", len(batch)))
			return m, nil
		}
	}

	opts := []ValidatorOption{WithValidatorLogger(t.logger)}
	if t.observer != nil {
		opts = append(opts, WithObserver(t.observer))
	}
	outcome := NewIntegrityValidator(t.model, t.builder, opts...).Run(ctx, batch, targetLanguage)
	if outcome.State != StateAccepted {
		return nil, outcome.Err
	}
	t.logger.Info("译文已通过校验", zap.Int("attempts", outcome.Attempts))

	if t.cache != nil && len(batch) > 0 {
		if err := t.cache.Set(key, outcome.Mapping); err != nil {
			t.logger.Warn("写入缓存失败", zap.Error(err))
		}
	}
	return outcome.Mapping, nil
}

// covers 缓存的映射必须恰好覆盖整个批次
func covers(m TranslationMapping, batch FragmentBatch) bool {
	if len(m) != len(batch) {
		return false
	}
	for _, text := range batch {
		if _, ok := m[text]; !ok {
			return false
		}
	}
	return true
}

// TranslatePDF 未排版路径：每页一个内容单元，逐个请求，任一失败即中止，不重试
func (t *PDFTranslator) TranslatePDF(ctx context.Context, inputPath, format, targetLanguage, outputPath string, pages int) error {
	if !SupportedFormat(format) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	log := t.logger.With(zap.String("input", inputPath), zap.String("format", format))

	doc, err := t.open(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer doc.Close()

	contents, err := PageContents(doc, WithPageLimit(pages))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	book := &Book{Title: stem}
	for i, content := range contents {
		page := BookPage{Number: i + 1, Original: content}
		if strings.TrimSpace(content) != "" {
			translation, err := t.model.MakeRequest(ctx, TranslatePrompt(content, targetLanguage))
			if err != nil {
				log.Error("请求模型失败", zap.Int("page", i+1), zap.Error(err))
				return fmt.Errorf("%w: 第 %d 页: %w", ErrTransportFailure, i+1, err)
			}
			page.Translated = strings.TrimSpace(translation)
		}
		book.Pages = append(book.Pages, page)
		log.Debug("已翻译", zap.Int("page", i+1))
	}

	return t.writer.Save(book, outputPath, format)
}
