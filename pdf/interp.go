package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// matrix PDF 仿射矩阵 [a b c d e f]
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul 返回 m 之后再应用 n 的组合矩阵
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// textShow 一次文本绘制操作（Tj、TJ、'、"）
type textShow struct {
	opIndex int
	origin  Point // PDF 用户空间
	size    float64
	color   int
	text    []byte
}

// xobjectUse 一次 Do 调用
type xobjectUse struct {
	name string
	bbox Rect // PDF 用户空间
}

type graphicsState struct {
	ctm  matrix
	fill [3]float64
}

// interpreter 跟踪绘制状态，记录每个文本绘制操作的起点与颜色
type interpreter struct {
	gs    graphicsState
	stack []graphicsState

	tm, tlm   matrix
	font      string
	fontSize  float64
	leading   float64
	charSpace float64
	wordSpace float64
	hScale    float64
	rise      float64

	widths *widthTable

	shows []textShow
	uses  []xobjectUse
}

func newInterpreter(widths *widthTable) *interpreter {
	return &interpreter{
		gs:     graphicsState{ctm: identity},
		tm:     identity,
		tlm:    identity,
		hScale: 100,
		widths: widths,
	}
}

// run 解释一个内容流的全部操作，状态在多次调用之间延续
func (in *interpreter) run(ops []operation, indexBase int) {
	for i, op := range ops {
		in.step(op, indexBase+i)
	}
}

func (in *interpreter) step(op operation, index int) {
	n := numbers(op.args)
	switch op.op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if len(in.stack) > 0 {
			in.gs = in.stack[len(in.stack)-1]
			in.stack = in.stack[:len(in.stack)-1]
		}
	case "cm":
		if len(n) == 6 {
			in.gs.ctm = matrix{n[0], n[1], n[2], n[3], n[4], n[5]}.mul(in.gs.ctm)
		}
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(n) >= 1 {
			in.fontSize = n[len(n)-1]
		}
		if len(op.args) >= 1 && op.args[0].kind == tokName {
			in.font = string(op.args[0].value)
		}
	case "TL":
		if len(n) == 1 {
			in.leading = n[0]
		}
	case "Tc":
		if len(n) == 1 {
			in.charSpace = n[0]
		}
	case "Tw":
		if len(n) == 1 {
			in.wordSpace = n[0]
		}
	case "Tz":
		if len(n) == 1 {
			in.hScale = n[0]
		}
	case "Ts":
		if len(n) == 1 {
			in.rise = n[0]
		}
	case "Td":
		if len(n) == 2 {
			in.moveText(n[0], n[1])
		}
	case "TD":
		if len(n) == 2 {
			in.leading = -n[1]
			in.moveText(n[0], n[1])
		}
	case "Tm":
		if len(n) == 6 {
			in.tlm = matrix{n[0], n[1], n[2], n[3], n[4], n[5]}
			in.tm = in.tlm
		}
	case "T*":
		in.moveText(0, -in.leading)
	case "Tj":
		in.show(index, strs(op.args), nil)
	case "'":
		in.moveText(0, -in.leading)
		in.show(index, strs(op.args), nil)
	case "\"":
		if len(n) >= 2 {
			in.wordSpace, in.charSpace = n[0], n[1]
		}
		in.moveText(0, -in.leading)
		in.show(index, strs(op.args), nil)
	case "TJ":
		in.show(index, strs(op.args), op.args)
	case "g":
		if len(n) == 1 {
			in.gs.fill = [3]float64{n[0], n[0], n[0]}
		}
	case "rg":
		if len(n) == 3 {
			in.gs.fill = [3]float64{n[0], n[1], n[2]}
		}
	case "k":
		if len(n) == 4 {
			in.gs.fill = cmykToRGB(n)
		}
	case "sc", "scn":
		switch len(n) {
		case 1:
			in.gs.fill = [3]float64{n[0], n[0], n[0]}
		case 3:
			in.gs.fill = [3]float64{n[0], n[1], n[2]}
		case 4:
			in.gs.fill = cmykToRGB(n)
		}
	case "Do":
		for _, a := range op.args {
			if a.kind == tokName {
				in.uses = append(in.uses, xobjectUse{name: string(a.value), bbox: in.unitSquare()})
			}
		}
	}
}

func (in *interpreter) moveText(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

// show 记录文本绘制起点并推进文本矩阵。
// 字形宽度取自文本提取库给出的宽度，查不到时按每字节 0.5em 估算。
func (in *interpreter) show(index int, parts [][]byte, tjArgs []token) {
	trm := matrix{in.hScale / 100, 0, 0, 1, 0, in.rise}.mul(in.tm).mul(in.gs.ctm)
	x, y := trm.apply(0, 0)
	scale := math.Hypot(trm[2], trm[3])

	in.shows = append(in.shows, textShow{
		opIndex: index,
		origin:  Point{X: x, Y: y},
		size:    in.fontSize * scale,
		color:   packRGB(in.gs.fill),
		text:    bytes.Join(parts, nil),
	})

	var advance float64
	if tjArgs != nil {
		for _, a := range tjArgs {
			switch a.kind {
			case tokString:
				advance += in.advance(a.value)
			case tokNumber:
				advance -= a.num / 1000 * in.fontSize * in.hScale / 100
			}
		}
	} else {
		for _, p := range parts {
			advance += in.advance(p)
		}
	}
	in.tm = translate(advance, 0).mul(in.tm)
}

func (in *interpreter) advance(s []byte) float64 {
	var w float64
	for _, c := range s {
		em, ok := in.widths.width(in.font, c)
		if !ok {
			em = 0.5
		}
		w += em*in.fontSize + in.charSpace
		if c == ' ' {
			w += in.wordSpace
		}
	}
	return w * in.hScale / 100
}

func (in *interpreter) unitSquare() Rect {
	x0, y0 := in.gs.ctm.apply(0, 0)
	x1, y1 := in.gs.ctm.apply(1, 1)
	x2, y2 := in.gs.ctm.apply(0, 1)
	x3, y3 := in.gs.ctm.apply(1, 0)
	return Rect{
		X0: min(x0, x1, x2, x3),
		Y0: min(y0, y1, y2, y3),
		X1: max(x0, x1, x2, x3),
		Y1: max(y0, y1, y2, y3),
	}
}

func cmykToRGB(n []float64) [3]float64 {
	c, m, y, k := n[0], n[1], n[2], n[3]
	return [3]float64{(1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)}
}

func packRGB(c [3]float64) int {
	ch := func(v float64) int {
		v = math.Max(0, math.Min(1, v))
		return int(math.Round(v * 255))
	}
	return ch(c[0])<<16 | ch(c[1])<<8 | ch(c[2])
}

// widthTable 由提取出的字形得到的宽度表。
// fonts 把页面字体资源名映射到 BaseFont，widths 按 BaseFont 和字符记录宽度（em）。
type widthTable struct {
	fonts  map[string]string
	widths map[string]map[rune]float64
}

// newWidthTable 只收录单字符且宽度为正的字形
func newWidthTable(glyphs []glyph, fonts map[string]string) *widthTable {
	t := &widthTable{fonts: fonts, widths: make(map[string]map[rune]float64)}
	for _, g := range glyphs {
		r := []rune(g.S)
		if len(r) != 1 || g.W <= 0 || g.FontSize <= 0 {
			continue
		}
		m := t.widths[g.Font]
		if m == nil {
			m = make(map[rune]float64)
			t.widths[g.Font] = m
		}
		m[r[0]] = g.W / g.FontSize
	}
	return t
}

func (t *widthTable) width(resource string, code byte) (float64, bool) {
	if t == nil {
		return 0, false
	}
	base, ok := t.fonts[resource]
	if !ok {
		return 0, false
	}
	w, ok := t.widths[base][rune(code)]
	return w, ok
}

// contentProgram 一页的全部内容流及其解释结果
type contentProgram struct {
	streams [][]byte
	ops     [][]operation
	shows   []textShow
	uses    []xobjectUse
}

// interpretPage 依次解释页面的多个内容流，字形宽度一律按估算处理
func interpretPage(streams [][]byte) (*contentProgram, error) {
	return interpretPageWidths(streams, nil)
}

// interpretPageWidths 同 interpretPage，widths 提供已知的字形宽度，可以为 nil
func interpretPageWidths(streams [][]byte, widths *widthTable) (*contentProgram, error) {
	prog := &contentProgram{streams: streams}
	in := newInterpreter(widths)
	base := 0
	for i, s := range streams {
		ops, err := parseContent(s)
		if err != nil {
			return nil, fmt.Errorf("解析第 %d 个内容流失败: %w", i, err)
		}
		prog.ops = append(prog.ops, ops)
		in.run(ops, base)
		base += len(ops)
	}
	prog.shows = in.shows
	prog.uses = in.uses
	return prog, nil
}

// redact 删除起点落在任一区域内的文本绘制操作，返回被修改的内容流下标及新内容。
// ' 和 " 含换行语义，删除时保留其换行与间距设置。
func (p *contentProgram) redact(areas []Rect, tolerance float64) map[int][]byte {
	drop := make(map[int]bool)
	for _, s := range p.shows {
		for _, a := range areas {
			if a.Contains(s.origin, tolerance) {
				drop[s.opIndex] = true
				break
			}
		}
	}
	if len(drop) == 0 {
		return nil
	}

	changed := make(map[int][]byte)
	base := 0
	for si, ops := range p.ops {
		src := p.streams[si]
		var out bytes.Buffer
		last := 0
		modified := false
		for i, op := range ops {
			if !drop[base+i] {
				continue
			}
			out.Write(src[last:op.start])
			out.WriteString(replacementFor(op))
			last = op.end
			modified = true
		}
		if modified {
			out.Write(src[last:])
			changed[si] = out.Bytes()
		}
		base += len(ops)
	}
	return changed
}

func replacementFor(op operation) string {
	switch op.op {
	case "'":
		return "T*"
	case "\"":
		n := numbers(op.args)
		if len(n) >= 2 {
			return fmt.Sprintf("%s Tw %s Tc T*", formatNumber(n[0]), formatNumber(n[1]))
		}
		return "T*"
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
