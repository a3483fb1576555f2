package annotate

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/vector"
)

type renderFunc func(dst *image.RGBA, s *Stroke) error

// renderers 每种工具对应的渲染函数
var renderers = map[Tool]renderFunc{
	ToolPen:     renderPen,
	ToolLine:    renderLine,
	ToolArrow:   renderArrow,
	ToolRect:    renderRect,
	ToolEllipse: renderEllipse,
	ToolText:    renderText,
}

// Apply 将所有笔画渲染到基础图片的副本上，原图不变。
// 副本的原点固定为 (0,0)，笔画坐标相对于图片左上角。
func Apply(base image.Image, strokes []Stroke) (*image.RGBA, error) {
	b := base.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), base, b.Min, draw.Src)

	for i := range strokes {
		if err := Render(result, &strokes[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Render 将单个笔画渲染到图片上
func Render(dst *image.RGBA, s *Stroke) error {
	fn, ok := renderers[s.Tool]
	if !ok {
		return errors.Errorf("unknown annotation tool %d", int(s.Tool))
	}
	// 完全落在画布外的笔画不光栅化
	if s.Tool != ToolText && !s.Bounds().Overlaps(dst.Bounds()) {
		return nil
	}
	return fn(dst, s)
}

// ---------- 画笔 ----------

func renderPen(dst *image.RGBA, s *Stroke) error {
	strokePolyline(dst, toPts(s.Points), false, s.Color, s.Width)
	return nil
}

// ---------- 直线 ----------

func renderLine(dst *image.RGBA, s *Stroke) error {
	if len(s.Points) < 2 {
		return nil
	}
	strokePolyline(dst, toPts(s.Points[:2]), false, s.Color, s.Width)
	return nil
}

// ---------- 箭头 ----------

func renderArrow(dst *image.RGBA, s *Stroke) error {
	if len(s.Points) < 2 {
		return nil
	}
	p0, p1 := toPt(s.Points[0]), toPt(s.Points[1])
	strokePolyline(dst, []pt{p0, p1}, false, s.Color, s.Width)

	dx, dy := p1.x-p0.x, p1.y-p0.y
	length := math.Hypot(dx, dy)
	if length < 1 {
		return nil
	}

	arrowLen := arrowHeadLen(s.Width)
	arrowWidth := arrowLen * 0.5

	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux
	baseX, baseY := p1.x-ux*arrowLen, p1.y-uy*arrowLen

	fillPolygon(dst, []pt{
		p1,
		{baseX + nx*arrowWidth, baseY + ny*arrowWidth},
		{baseX - nx*arrowWidth, baseY - ny*arrowWidth},
	}, s.Color)
	return nil
}

// arrowHeadLen 箭头长度与线宽成比例，宽度为长度的一半
func arrowHeadLen(width int) float64 {
	return math.Max(float64(width)*5, 12)
}

// ---------- 矩形 ----------

func renderRect(dst *image.RGBA, s *Stroke) error {
	if len(s.Points) < 2 {
		return nil
	}
	r := canonicalRect(s.Points[0], s.Points[1])
	corners := []pt{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
	}
	strokePolyline(dst, corners, true, s.Color, s.Width)
	return nil
}

// ---------- 椭圆 ----------

const ellipseSegments = 72

func renderEllipse(dst *image.RGBA, s *Stroke) error {
	if len(s.Points) < 2 {
		return nil
	}
	r := canonicalRect(s.Points[0], s.Points[1])
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2
	if rx <= 0 || ry <= 0 {
		return nil
	}
	cx, cy := float64(r.Min.X)+rx, float64(r.Min.Y)+ry

	pts := make([]pt, ellipseSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		pts[i] = pt{cx + rx*math.Cos(a), cy + ry*math.Sin(a)}
	}
	strokePolyline(dst, pts, true, s.Color, s.Width)
	return nil
}

// ---------- 文本 ----------

func renderText(dst *image.RGBA, s *Stroke) error {
	return errors.Wrap(ErrUnsupported, ToolText.String())
}

// ---------- 光栅化 ----------

type pt struct{ x, y float64 }

func toPt(p image.Point) pt { return pt{float64(p.X), float64(p.Y)} }

func toPts(ps []image.Point) []pt {
	out := make([]pt, len(ps))
	for i, p := range ps {
		out[i] = toPt(p)
	}
	return out
}

// strokePolyline 以圆头圆角描边折线
func strokePolyline(dst *image.RGBA, pts []pt, closed bool, c color.RGBA, width int) {
	if len(pts) == 0 {
		return
	}
	halfW := math.Max(float64(width)/2, 0.5)

	for i := range pts {
		fillCircle(dst, pts[i], halfW, c)
		if i+1 < len(pts) {
			fillSegment(dst, pts[i], pts[i+1], halfW, c)
		}
	}
	if closed && len(pts) > 2 {
		fillSegment(dst, pts[len(pts)-1], pts[0], halfW, c)
	}
}

func fillSegment(dst *image.RGBA, a, b pt, halfW float64, c color.RGBA) {
	dx, dy := b.x-a.x, b.y-a.y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*halfW, dx/length*halfW
	fillPolygon(dst, []pt{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}, c)
}

const circleSegments = 16

func fillCircle(dst *image.RGBA, center pt, r float64, c color.RGBA) {
	pts := make([]pt, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = pt{center.x + r*math.Cos(a), center.y + r*math.Sin(a)}
	}
	fillPolygon(dst, pts, c)
}

// fillPolygon 在多边形包围盒内光栅化，避免每次分配整幅画布大小的缓冲
func fillPolygon(dst *image.RGBA, pts []pt, c color.RGBA) {
	if len(pts) < 3 {
		return
	}

	minX, minY := pts[0].x, pts[0].y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.x)
		minY = math.Min(minY, p.y)
		maxX = math.Max(maxX, p.x)
		maxY = math.Max(maxY, p.y)
	}

	box := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
	clip := box.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.MoveTo(float32(pts[0].x-ox), float32(pts[0].y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.x-ox), float32(p.y-oy))
	}
	z.ClosePath()

	// 先生成覆盖率蒙版，再由 draw 负责裁剪到画布
	mask := image.NewAlpha(box)
	z.Draw(mask, box, image.Opaque, image.Point{})
	draw.DrawMask(dst, clip, image.NewUniform(c), image.Point{}, mask, clip.Min, draw.Over)
}

// canonicalRect 两点确定的规范矩形
func canonicalRect(p1, p2 image.Point) image.Rectangle {
	return image.Rectangle{Min: p1, Max: p2}.Canon()
}
