// Package pdf 提供翻译流水线所需的 PDF 文档能力：
// 按页枚举文本块、按区域擦除文本、在指定位置插入文本、保存。
//
// 坐标统一使用左上角为原点、y 轴向下的页面坐标（与 MuPDF 一致），
// 与 PDF 用户空间（左下角原点）之间的换算只在本包内部完成。
package pdf

import "fmt"

// Rect 页面上的矩形区域 (x0,y0) 为左上角，(x1,y1) 为右下角
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width 宽度
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height 高度
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// TopLeft 左上角
func (r Rect) TopLeft() Point { return Point{X: r.X0, Y: r.Y0} }

// Contains 判断点是否落在矩形内（含 tolerance 容差）
func (r Rect) Contains(p Point, tolerance float64) bool {
	return p.X >= r.X0-tolerance && p.X <= r.X1+tolerance &&
		p.Y >= r.Y0-tolerance && p.Y <= r.Y1+tolerance
}

// Union 两个矩形的外包矩形
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.X0, r.Y0, r.X1, r.Y1)
}

// Point 页面坐标点
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BlockType 块类型标记
type BlockType int

const (
	// BlockText 文本块
	BlockText BlockType = iota
	// BlockImage 图片块
	BlockImage
)

func (t BlockType) String() string {
	switch t {
	case BlockText:
		return "text"
	case BlockImage:
		return "image"
	default:
		return "unknown"
	}
}

// Span 一段字体、字号、颜色一致的连续文本
type Span struct {
	BBox     Rect    `json:"bbox"`
	Font     string  `json:"font"`
	Size     float64 `json:"size"`
	Color    int     `json:"color"` // 24 位打包 RGB
	Text     string  `json:"text"`
	baseline float64
}

// Block 页面上的一个块，文本块带 Spans，图片块只有外框
type Block struct {
	Type  BlockType `json:"type"`
	BBox  Rect      `json:"bbox"`
	Spans []Span    `json:"spans,omitempty"`
}

// TextStyle 插入文本时使用的字体、字号、颜色
type TextStyle struct {
	FontName string
	FontFile string // 为空表示使用 PDF 内置字体
	FontSize float64
	Color    [3]float64 // 归一化到 [0,1] 的 RGB
}
