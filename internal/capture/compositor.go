package capture

import (
	"context"
	"encoding/json"
	"image"

	"github.com/pkg/errors"
)

// ErrNoCompositor 未配置合成器查询工具
var ErrNoCompositor = errors.New("compositor query tool not configured")

// Window 活动窗口信息（hyprctl activewindow -j）
type Window struct {
	Address string `json:"address"`
	At      [2]int `json:"at"`
	Size    [2]int `json:"size"`
	Class   string `json:"class"`
	Title   string `json:"title"`
}

// Bounds 窗口在全局坐标中的矩形
func (w *Window) Bounds() image.Rectangle {
	return image.Rect(w.At[0], w.At[1], w.At[0]+w.Size[0], w.At[1]+w.Size[1])
}

// Geometry 窗口对应的截图几何
func (w *Window) Geometry() *Geometry {
	return GeometryFromRect(w.Bounds())
}

// Monitor 显示器信息（hyprctl monitors -j）
type Monitor struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Scale   float64 `json:"scale"`
	Focused bool    `json:"focused"`
}

// ActiveWindow 查询活动窗口
func (d *Dispatcher) ActiveWindow(ctx context.Context) (*Window, error) {
	var win Window
	if err := d.query(ctx, &win, "activewindow", "-j"); err != nil {
		return nil, err
	}
	if win.Size[0] <= 0 || win.Size[1] <= 0 {
		return nil, errors.New("no active window")
	}
	return &win, nil
}

// Monitors 查询显示器列表
func (d *Dispatcher) Monitors(ctx context.Context) ([]Monitor, error) {
	var monitors []Monitor
	if err := d.query(ctx, &monitors, "monitors", "-j"); err != nil {
		return nil, err
	}
	return monitors, nil
}

// Outputs 返回显示器名称，可作为全屏截图的 output
func (d *Dispatcher) Outputs(ctx context.Context) ([]string, error) {
	monitors, err := d.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(monitors))
	for _, m := range monitors {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (d *Dispatcher) query(ctx context.Context, v interface{}, args ...string) error {
	if len(d.tools.Compositor) == 0 {
		return ErrNoCompositor
	}

	argv := append(append([]string{}, d.tools.Compositor...), args...)
	out, err := d.runner.Run(ctx, nil, argv)
	if err != nil {
		return errors.Wrapf(err, "query %s", args[0])
	}
	if err := json.Unmarshal(out, v); err != nil {
		return errors.Wrapf(err, "parse %s", args[0])
	}
	return nil
}
