package capture

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
)

// Geometry 选区几何信息。Raw 是选区工具输出的原始字符串，
// 原样传给截图工具；能解析为 "<x>,<y> <w>x<h>" 时 Rect 非 nil
type Geometry struct {
	Raw  string
	Rect *image.Rectangle
}

var geometryRe = regexp.MustCompile(`^(-?\d+),(-?\d+) (\d+)x(\d+)$`)

// ParseGeometry 解析几何字符串，无法识别的格式只保留 Raw
func ParseGeometry(raw string) *Geometry {
	g := &Geometry{Raw: raw}

	m := geometryRe.FindStringSubmatch(raw)
	if m == nil {
		return g
	}

	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return g
		}
		v[i] = n
	}

	r := image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
	g.Rect = &r
	return g
}

// FormatGeometry 按选区工具的格式输出矩形
func FormatGeometry(r image.Rectangle) string {
	return fmt.Sprintf("%d,%d %dx%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// GeometryFromRect 从矩形构造几何信息
func GeometryFromRect(r image.Rectangle) *Geometry {
	return &Geometry{Raw: FormatGeometry(r), Rect: &r}
}

func (g *Geometry) String() string {
	return g.Raw
}
