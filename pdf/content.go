package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// tokenKind 内容流词法单元类型
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokString
	tokArrayStart
	tokArrayEnd
	tokDictStart
	tokDictEnd
	tokKeyword
)

type token struct {
	kind  tokenKind
	num   float64
	value []byte // 名称、已解码的字符串或操作符
}

// operation 一个操作符及其操作数，start/end 为其在内容流中的字节区间
type operation struct {
	op    string
	args  []token
	start int
	end   int
}

func isWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// contentLexer 页面内容流的词法分析器
type contentLexer struct {
	buf []byte
	pos int
}

func (l *contentLexer) skipSpace() {
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next 返回下一个词法单元及其起始偏移，到达末尾时 ok 为 false
func (l *contentLexer) next() (tok token, start int, ok bool, err error) {
	l.skipSpace()
	if l.pos >= len(l.buf) {
		return token{}, l.pos, false, nil
	}
	start = l.pos
	c := l.buf[l.pos]

	switch {
	case c == '(':
		s, err := l.literalString()
		return token{kind: tokString, value: s}, start, true, err
	case c == '<' && l.peek(1) == '<':
		l.pos += 2
		return token{kind: tokDictStart}, start, true, nil
	case c == '>' && l.peek(1) == '>':
		l.pos += 2
		return token{kind: tokDictEnd}, start, true, nil
	case c == '<':
		s, err := l.hexString()
		return token{kind: tokString, value: s}, start, true, err
	case c == '[':
		l.pos++
		return token{kind: tokArrayStart}, start, true, nil
	case c == ']':
		l.pos++
		return token{kind: tokArrayEnd}, start, true, nil
	case c == '{' || c == '}':
		l.pos++
		return token{kind: tokKeyword, value: []byte{c}}, start, true, nil
	case c == '/':
		l.pos++
		return token{kind: tokName, value: l.name()}, start, true, nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		word := l.regular()
		n, perr := strconv.ParseFloat(string(word), 64)
		if perr != nil {
			return token{kind: tokKeyword, value: word}, start, true, nil
		}
		return token{kind: tokNumber, num: n, value: word}, start, true, nil
	case c == ')' || c == '>':
		return token{}, start, false, fmt.Errorf("内容流在偏移 %d 处出现孤立的 %q", start, c)
	default:
		return token{kind: tokKeyword, value: l.regular()}, start, true, nil
	}
}

func (l *contentLexer) peek(n int) byte {
	if l.pos+n < len(l.buf) {
		return l.buf[l.pos+n]
	}
	return 0
}

func (l *contentLexer) regular() []byte {
	start := l.pos
	for l.pos < len(l.buf) && !isWhite(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return l.buf[start:l.pos]
}

func (l *contentLexer) name() []byte {
	raw := l.regular()
	if bytes.IndexByte(raw, '#') < 0 {
		return raw
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return out
}

func (l *contentLexer) literalString() ([]byte, error) {
	start := l.pos
	l.pos++ // (
	depth := 1
	var out []byte
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.buf) {
				return out, nil
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.buf) && l.buf[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.buf) && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out, fmt.Errorf("偏移 %d 处的字符串未闭合", start)
}

func (l *contentLexer) hexString() ([]byte, error) {
	start := l.pos
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("偏移 %d 处的十六进制字符串非法: %w", start, err)
				}
				out[i] = byte(v)
			}
			return out, nil
		}
		if !isWhite(c) {
			digits = append(digits, c)
		}
	}
	return nil, fmt.Errorf("偏移 %d 处的十六进制字符串未闭合", start)
}

// skipInlineImage 跳过 BI ... ID <二进制数据> EI，返回 EI 之后的偏移
func (l *contentLexer) skipInlineImage() error {
	for {
		tok, _, ok, err := l.next()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("内联图片缺少 ID")
		}
		if tok.kind == tokKeyword && string(tok.value) == "ID" {
			break
		}
	}
	// ID 之后紧跟一个空白字符
	l.pos++
	for i := l.pos; i+2 <= len(l.buf); i++ {
		if l.buf[i] == 'E' && l.buf[i+1] == 'I' &&
			(i == 0 || isWhite(l.buf[i-1])) &&
			(i+2 == len(l.buf) || isWhite(l.buf[i+2])) {
			l.pos = i + 2
			return nil
		}
	}
	return fmt.Errorf("内联图片缺少 EI")
}

// parseContent 把内容流拆成操作序列
func parseContent(buf []byte) ([]operation, error) {
	l := &contentLexer{buf: buf}
	var ops []operation
	var args []token
	argStart := -1

	for {
		tok, start, ok, err := l.next()
		if err != nil {
			return ops, err
		}
		if !ok {
			break
		}
		if argStart < 0 {
			argStart = start
		}
		if tok.kind != tokKeyword {
			args = append(args, tok)
			continue
		}

		op := string(tok.value)
		switch op {
		case "true", "false", "null":
			args = append(args, tok)
			continue
		case "BI":
			if err := l.skipInlineImage(); err != nil {
				return ops, err
			}
		}
		ops = append(ops, operation{op: op, args: args, start: argStart, end: l.pos})
		args = nil
		argStart = -1
	}
	return ops, nil
}

// numbers 取出操作数中的全部数字
func numbers(args []token) []float64 {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		if a.kind == tokNumber {
			out = append(out, a.num)
		}
	}
	return out
}

// strs 取出操作数中的全部字符串
func strs(args []token) [][]byte {
	var out [][]byte
	for _, a := range args {
		if a.kind == tokString {
			out = append(out, a.value)
		}
	}
	return out
}
