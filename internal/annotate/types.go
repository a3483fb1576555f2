package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tool 标注工具类型
type Tool int

const (
	ToolPen     Tool = iota // 自由画笔
	ToolLine                // 直线
	ToolArrow               // 箭头
	ToolRect                // 矩形
	ToolEllipse             // 椭圆
	ToolText                // 文本（未实现）
)

var toolNames = map[Tool]string{
	ToolPen:     "pen",
	ToolLine:    "line",
	ToolArrow:   "arrow",
	ToolRect:    "rectangle",
	ToolEllipse: "ellipse",
	ToolText:    "text",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ErrUnsupported 工具尚未实现
var ErrUnsupported = errors.New("annotation tool not supported")

// Stroke 单个标注笔画
type Stroke struct {
	Tool   Tool
	Points []image.Point // 直线/箭头/矩形/椭圆用前两个点，画笔用所有点
	Color  color.RGBA
	Width  int
	Text   string // 仅 ToolText 使用
}

// Bounds 获取笔画的边界矩形（含线宽）
func (s *Stroke) Bounds() image.Rectangle {
	if len(s.Points) == 0 {
		return image.Rectangle{}
	}

	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}

	pad := s.Width/2 + 1
	if s.Tool == ToolArrow {
		pad = max(pad, int(math.Ceil(arrowHeadLen(s.Width)/2))+1)
	}
	return image.Rect(minX-pad, minY-pad, maxX+pad, maxY+pad)
}

// ParseHexColor 解析 #RGB、#RRGGBB 或 #RRGGBBAA，返回预乘后的颜色
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, errors.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Errorf("invalid color %q", s)
	}
	nc := color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
	return color.RGBAModel.Convert(nc).(color.RGBA), nil
}

// FormatHexColor 输出 #RRGGBB（不透明时）或 #RRGGBBAA
func FormatHexColor(c color.RGBA) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", n.R, n.G, n.B, n.A)
}
