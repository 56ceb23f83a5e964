package pdf

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrClosed 文档已关闭
var ErrClosed = errors.New("pdf: document closed")

// redactTolerance 判断文本绘制起点是否落在擦除区域时的容差（点）
const redactTolerance = 1.0

// Option 打开文档时的可选项
type Option func(*Document)

// WithLogger 设置日志记录器
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// Document 一个已打开的 PDF 文档。页码从 0 开始。
// 对象模型由 pdfcpu 维护，字形位置由 ledongthuc/pdf（或 dslipak/pdf）提取。
type Document struct {
	path    string
	ctx     *model.Context
	dims    []types.Dim
	glyphs  [][]glyph
	pending map[int][]Rect
	logger  *zap.Logger
	closed  bool

	stdFonts map[string]types.IndirectRef // 已写入的标准字体对象，按 BaseFont
	inserted map[int]bool                 // InsertText 追加的内容流对象号，擦除时不修改
}

// Open 打开 PDF 文件
func Open(path string, opts ...Option) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("打开 PDF 失败: %w", err)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 失败: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("读取页面尺寸失败: %w", err)
	}

	glyphs, err := readGlyphs(path)
	if err != nil {
		return nil, err
	}

	d := &Document{
		path:    path,
		ctx:     ctx,
		dims:    dims,
		glyphs:  glyphs,
		pending: make(map[int][]Rect),
		logger:  zap.NewNop(),

		stdFonts: make(map[string]types.IndirectRef),
		inserted: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger.Debug("PDF 已打开", zap.String("path", path), zap.Int("pages", len(dims)))
	return d, nil
}

// PageCount 页数
func (d *Document) PageCount() int {
	return len(d.dims)
}

func (d *Document) checkPage(page int) error {
	if d.closed {
		return ErrClosed
	}
	if page < 0 || page >= len(d.dims) {
		return fmt.Errorf("页码越界: %d (共 %d 页)", page, len(d.dims))
	}
	return nil
}

func (d *Document) pageHeight(page int) float64 {
	return d.dims[page].Height
}

// Blocks 按阅读顺序返回页面上的文本块与图片块
func (d *Document) Blocks(page int) ([]Block, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}

	var pageGlyphs []glyph
	if page < len(d.glyphs) {
		pageGlyphs = d.glyphs[page]
	}
	spans := assembleSpans(pageGlyphs, d.pageHeight(page))

	prog, err := d.program(page)
	if err != nil {
		// 颜色与图片信息缺失时仍返回文本
		d.logger.Warn("解释页面内容流失败", zap.Int("page", page), zap.Error(err))
	}
	if prog != nil {
		for i := range spans {
			spans[i].Color = nearestColor(prog.shows, spans[i])
		}
	}

	blocks := groupLines(spans)
	if prog != nil {
		blocks = append(blocks, d.imageBlocks(page, prog.uses)...)
	}
	return blocks, nil
}

// nearestColor 取起点离 span 起点最近的文本绘制操作的颜色，找不到时为黑色
func nearestColor(shows []textShow, s Span) int {
	limit := 1 + 0.25*s.Size
	best, color := math.MaxFloat64, 0
	for _, sh := range shows {
		dist := math.Hypot(sh.origin.X-s.BBox.X0, sh.origin.Y-s.baseline)
		if dist <= limit && dist < best {
			best, color = dist, sh.color
		}
	}
	return color
}

func (d *Document) imageBlocks(page int, uses []xobjectUse) []Block {
	if len(uses) == 0 {
		return nil
	}
	xobjects := d.xobjects(page)
	h := d.pageHeight(page)

	var blocks []Block
	for _, u := range uses {
		obj, ok := xobjects.Find(u.name)
		if !ok {
			continue
		}
		sd, _, err := d.ctx.DereferenceStreamDict(obj)
		if err != nil || sd == nil {
			continue
		}
		if st := sd.Dict.Subtype(); st == nil || *st != "Image" {
			continue
		}
		blocks = append(blocks, Block{
			Type: BlockImage,
			BBox: Rect{X0: u.bbox.X0, Y0: h - u.bbox.Y1, X1: u.bbox.X1, Y1: h - u.bbox.Y0},
		})
	}
	return blocks
}

func (d *Document) xobjects(page int) types.Dict {
	return d.resourceDict(page, "XObject")
}

// resourceDict 返回页面资源（含继承的资源）中 key 对应的字典
func (d *Document) resourceDict(page int, key string) types.Dict {
	pageDict, _, inh, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil
	}
	var res types.Dict
	if obj, ok := pageDict.Find("Resources"); ok {
		res, _ = d.ctx.DereferenceDict(obj)
	}
	if res == nil && inh != nil {
		res = inh.Resources
	}
	if res == nil {
		return nil
	}
	obj, ok := res.Find(key)
	if !ok {
		return nil
	}
	dict, _ := d.ctx.DereferenceDict(obj)
	return dict
}

// fontNames 页面字体资源名到 BaseFont 的映射。
// Type0 字体按多字节编码，字符码与提取出的字符对不上，不收录。
func (d *Document) fontNames(page int) map[string]string {
	fonts := d.resourceDict(page, "Font")
	names := make(map[string]string, len(fonts))
	for name, obj := range fonts {
		fd, err := d.ctx.DereferenceDict(obj)
		if err != nil || fd == nil {
			continue
		}
		if st := fd.Subtype(); st != nil && *st == "Type0" {
			continue
		}
		if base := fd.NameEntry("BaseFont"); base != nil {
			names[name] = *base
		}
	}
	return names
}

func (d *Document) widths(page int) *widthTable {
	var pageGlyphs []glyph
	if page < len(d.glyphs) {
		pageGlyphs = d.glyphs[page]
	}
	return newWidthTable(pageGlyphs, d.fontNames(page))
}

// contentRefs 返回页面内容流的间接引用
func (d *Document) contentRefs(page int) ([]types.IndirectRef, error) {
	pageDict, _, _, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, fmt.Errorf("读取第 %d 页失败: %w", page+1, err)
	}
	obj, found := pageDict.Find("Contents")
	if !found {
		return nil, nil
	}

	switch o := obj.(type) {
	case types.IndirectRef:
		arr, err := d.ctx.DereferenceArray(o)
		if err == nil && arr != nil {
			return refsOf(arr), nil
		}
		return []types.IndirectRef{o}, nil
	case types.Array:
		return refsOf(o), nil
	default:
		return nil, fmt.Errorf("不支持的 Contents 类型: %T", obj)
	}
}

func refsOf(arr types.Array) []types.IndirectRef {
	refs := make([]types.IndirectRef, 0, len(arr))
	for _, item := range arr {
		if ref, ok := item.(types.IndirectRef); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (d *Document) streams(page int) ([]types.IndirectRef, []*types.StreamDict, error) {
	refs, err := d.contentRefs(page)
	if err != nil {
		return nil, nil, err
	}
	sds := make([]*types.StreamDict, 0, len(refs))
	for _, ref := range refs {
		sd, _, err := d.ctx.DereferenceStreamDict(ref)
		if err != nil {
			return nil, nil, fmt.Errorf("解引用内容流失败: %w", err)
		}
		if sd == nil {
			return nil, nil, fmt.Errorf("内容流 %s 不存在", ref)
		}
		if err := sd.Decode(); err != nil {
			return nil, nil, fmt.Errorf("解码内容流失败: %w", err)
		}
		sds = append(sds, sd)
	}
	return refs, sds, nil
}

func (d *Document) program(page int) (*contentProgram, error) {
	_, sds, err := d.streams(page)
	if err != nil {
		return nil, err
	}
	contents := make([][]byte, len(sds))
	for i, sd := range sds {
		contents[i] = sd.Content
	}
	return interpretPageWidths(contents, d.widths(page))
}

// AddRedactAnnot 标记待擦除区域，ApplyRedactions 时生效
func (d *Document) AddRedactAnnot(page int, r Rect) {
	if d.checkPage(page) != nil {
		return
	}
	d.pending[page] = append(d.pending[page], r)
}

// ApplyRedactions 删除起点落在已标记区域内的文本绘制操作。
// 图片与矢量图形不受影响。
func (d *Document) ApplyRedactions(page int) error {
	if err := d.checkPage(page); err != nil {
		return err
	}
	areas := d.pending[page]
	if len(areas) == 0 {
		return nil
	}
	delete(d.pending, page)

	refs, sds, err := d.streams(page)
	if err != nil {
		return err
	}
	contents := make([][]byte, len(sds))
	for i, sd := range sds {
		contents[i] = sd.Content
	}
	prog, err := interpretPageWidths(contents, d.widths(page))
	if err != nil {
		return err
	}

	h := d.pageHeight(page)
	user := make([]Rect, len(areas))
	for i, r := range areas {
		user[i] = Rect{X0: r.X0, Y0: h - r.Y1, X1: r.X1, Y1: h - r.Y0}
	}

	changed := prog.redact(user, redactTolerance)
	for i, content := range changed {
		if d.inserted[refs[i].ObjectNumber.Value()] {
			delete(changed, i)
			continue
		}
		sd := sds[i]
		sd.Content = content
		if err := encodeStream(sd); err != nil {
			return err
		}
	}

	d.logger.Debug("已擦除文本",
		zap.Int("page", page),
		zap.Int("areas", len(areas)),
		zap.Int("streams", len(changed)))
	return nil
}

// InsertText 在 at 处（左上角坐标系中的基线起点）写入单行文本。
// 标准字体直接追加到页面内容流；其他字体经 pdfcpu 文字水印嵌入。
func (d *Document) InsertText(page int, at Point, text string, style TextStyle) error {
	if err := d.checkPage(page); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	if style.FontFile == "" && IsStandardFont(style.FontName) {
		return d.insertStandardText(page, at, text, style)
	}
	if style.FontFile != "" {
		if err := EnsureFont(style.FontName, style.FontFile); err != nil {
			return err
		}
	}

	size := int(math.Round(style.FontSize))
	if size < 1 {
		size = 1
	}
	desc := fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, rotation:0, position:bl, offset:%.2f %.2f, fillcolor:%.3f %.3f %.3f, opacity:1",
		style.FontName, size,
		at.X, d.pageHeight(page)-at.Y,
		style.Color[0], style.Color[1], style.Color[2])

	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("构造文本失败: %w", err)
	}
	if err := pdfcpu.AddWatermarks(d.ctx, types.IntSet{page + 1: true}, wm); err != nil {
		return fmt.Errorf("写入文本失败: %w", err)
	}
	return nil
}

func (d *Document) insertStandardText(page int, at Point, text string, style TextStyle) error {
	base := BaseFontName(style.FontName)
	fontRef, err := d.standardFont(base)
	if err != nil {
		return err
	}
	fonts, err := d.pageFonts(page)
	if err != nil {
		return err
	}
	name := "Tr" + base
	if _, ok := fonts.Find(name); !ok {
		fonts.Insert(name, fontRef)
	}

	size := style.FontSize
	if size <= 0 {
		size = 1
	}
	content := fmt.Sprintf("q BT /%s %.2f Tf %.3f %.3f %.3f rg 1 0 0 1 %.2f %.2f Tm <%X> Tj ET Q\n",
		name, size,
		style.Color[0], style.Color[1], style.Color[2],
		at.X, d.pageHeight(page)-at.Y,
		encodeStandard(base, text))
	return d.appendContent(page, []byte(content))
}

// standardFont 返回标准字体的字体对象，同一文档内复用
func (d *Document) standardFont(base string) (types.IndirectRef, error) {
	if ref, ok := d.stdFonts[base]; ok {
		return ref, nil
	}
	fd := types.NewDict()
	fd.InsertName("Type", "Font")
	fd.InsertName("Subtype", "Type1")
	fd.InsertName("BaseFont", base)
	if base != "Symbol" && base != "ZapfDingbats" {
		fd.InsertName("Encoding", "WinAnsiEncoding")
	}
	ref, err := d.ctx.IndRefForNewObject(fd)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("写入字体 %s 失败: %w", base, err)
	}
	d.stdFonts[base] = *ref
	return *ref, nil
}

// pageFonts 返回页面自身的字体资源字典，缺失时创建。继承来的资源会复制到页面上。
func (d *Document) pageFonts(page int) (types.Dict, error) {
	pageDict, _, inh, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, fmt.Errorf("读取第 %d 页失败: %w", page+1, err)
	}

	var res types.Dict
	if obj, ok := pageDict.Find("Resources"); ok {
		if res, err = d.ctx.DereferenceDict(obj); err != nil {
			return nil, fmt.Errorf("读取页面资源失败: %w", err)
		}
	}
	if res == nil {
		res = types.NewDict()
		if inh != nil {
			for k, v := range inh.Resources {
				res[k] = v
			}
		}
		pageDict.Update("Resources", res)
	}

	var fonts types.Dict
	if obj, ok := res.Find("Font"); ok {
		if fonts, err = d.ctx.DereferenceDict(obj); err != nil {
			return nil, fmt.Errorf("读取字体资源失败: %w", err)
		}
	}
	if fonts == nil {
		fonts = types.NewDict()
		res.Update("Font", fonts)
	}
	return fonts, nil
}

// appendContent 把 content 作为新的内容流追加到页面末尾
func (d *Document) appendContent(page int, content []byte) error {
	refs, err := d.contentRefs(page)
	if err != nil {
		return err
	}
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return fmt.Errorf("创建内容流失败: %w", err)
	}
	if err := encodeStream(sd); err != nil {
		return err
	}
	ref, err := d.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("写入内容流失败: %w", err)
	}

	pageDict, _, _, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return fmt.Errorf("读取第 %d 页失败: %w", page+1, err)
	}
	arr := make(types.Array, 0, len(refs)+1)
	for _, r := range refs {
		arr = append(arr, r)
	}
	pageDict.Update("Contents", append(arr, *ref))
	d.inserted[ref.ObjectNumber.Value()] = true
	return nil
}

func encodeStream(sd *types.StreamDict) error {
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("编码内容流失败: %w", err)
	}
	l := int64(len(sd.Raw))
	sd.StreamLength = &l
	sd.Dict.Update("Length", types.Integer(len(sd.Raw)))
	return nil
}

// encodeStandard 按标准字体的编码转换文本，WinAnsi 无法表示的字符被替换
func encodeStandard(base, text string) []byte {
	if base == "Symbol" || base == "ZapfDingbats" {
		return []byte(text)
	}
	b, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return b
}

// Save 把文档写到 path
func (d *Document) Save(path string) error {
	if d.closed {
		return ErrClosed
	}
	if err := api.WriteContextFile(d.ctx, path); err != nil {
		return fmt.Errorf("保存 PDF 失败: %w", err)
	}
	d.logger.Info("PDF 已保存", zap.String("path", path))
	return nil
}

// Close 释放文档。重复关闭不报错。
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.ctx = nil
	d.glyphs = nil
	d.pending = nil
	return nil
}
