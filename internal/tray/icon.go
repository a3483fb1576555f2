package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"snip/internal/annotate"
)

const iconSize = 22

var (
	iconBody = color.RGBA{0x33, 0x66, 0xcc, 0xff}
	iconLens = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Icon 生成托盘图标：蓝色相机，PNG 格式
func Icon() ([]byte, error) {
	strokes := []annotate.Stroke{
		// 机身
		{Tool: annotate.ToolRect, Points: []image.Point{{3, 8}, {19, 18}}, Color: iconBody, Width: 4},
		{Tool: annotate.ToolRect, Points: []image.Point{{5, 10}, {17, 16}}, Color: iconBody, Width: 6},
		// 取景器
		{Tool: annotate.ToolLine, Points: []image.Point{{8, 6}, {14, 6}}, Color: iconBody, Width: 3},
		// 镜头
		{Tool: annotate.ToolEllipse, Points: []image.Point{{8, 9}, {14, 15}}, Color: iconLens, Width: 2},
	}
	img, err := annotate.Apply(image.NewRGBA(image.Rect(0, 0, iconSize, iconSize)), strokes)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
