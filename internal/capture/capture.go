package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"snip/internal/command"
)

// Kind 截图方式
type Kind int

const (
	KindRegion     Kind = iota // 交互选区
	KindFullscreen             // 全屏，可指定显示器
	KindWindow                 // 当前活动窗口
)

var kindNames = map[Kind]string{
	KindRegion:     "region",
	KindFullscreen: "fullscreen",
	KindWindow:     "window",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind 按名称解析截图方式
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown capture kind %q", name)
}

// Request 截图请求
type Request struct {
	Kind   Kind
	Output string // 仅全屏：显示器名称，空表示全部
}

// Result 截图结果，Image 在截图后不再修改
type Result struct {
	Image    image.Image
	Geometry *Geometry // 全屏截图为 nil
}

// Tools 外部工具命令行
type Tools struct {
	Selector   []string // 选区工具，如 slurp
	Grabber    []string // 截图工具，如 grim
	Compositor []string // 合成器查询工具，如 hyprctl，可为空
}

// Dispatcher 调用外部工具完成截图
type Dispatcher struct {
	runner command.Runner
	tools  Tools
	log    logrus.FieldLogger
}

// NewDispatcher 创建截图调度器
func NewDispatcher(runner command.Runner, tools Tools, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		runner: runner,
		tools:  tools,
		log:    log,
	}
}

// Capture 按请求类型截图
func (d *Dispatcher) Capture(ctx context.Context, req Request) (*Result, error) {
	switch req.Kind {
	case KindRegion:
		return d.CaptureRegion(ctx)
	case KindFullscreen:
		return d.CaptureFullscreen(ctx, req.Output)
	case KindWindow:
		return d.CaptureWindow(ctx)
	}
	return nil, errors.Errorf("unknown capture kind %d", int(req.Kind))
}

// CaptureRegion 交互选区截图。用户取消时返回 ErrCancelled
func (d *Dispatcher) CaptureRegion(ctx context.Context) (*Result, error) {
	geom, err := d.selectRegion(ctx)
	if err != nil {
		return nil, err
	}

	img, err := d.grab(ctx, geom.Raw, "")
	if err != nil {
		return nil, errors.Wrap(err, "capture region")
	}
	return &Result{Image: img, Geometry: geom}, nil
}

// CaptureFullscreen 全屏截图，output 非空时只截取该显示器
func (d *Dispatcher) CaptureFullscreen(ctx context.Context, output string) (*Result, error) {
	img, err := d.grab(ctx, "", output)
	if err != nil {
		return nil, errors.Wrap(err, "capture fullscreen")
	}
	return &Result{Image: img}, nil
}

// CaptureWindow 截取活动窗口。无法查询合成器时退回到交互选区
func (d *Dispatcher) CaptureWindow(ctx context.Context) (*Result, error) {
	win, err := d.ActiveWindow(ctx)
	if err != nil {
		d.log.WithError(err).Info("active window unavailable, using region selection")
		return d.CaptureRegion(ctx)
	}

	geom := win.Geometry()
	img, err := d.grab(ctx, geom.Raw, "")
	if err != nil {
		return nil, errors.Wrap(err, "capture window")
	}
	return &Result{Image: img, Geometry: geom}, nil
}

// Missing 返回不在 PATH 中的必需工具
func (d *Dispatcher) Missing() []string {
	return command.Missing(d.tools.Selector, d.tools.Grabber)
}

func (d *Dispatcher) selectRegion(ctx context.Context) (*Geometry, error) {
	out, err := d.runner.Run(ctx, nil, d.tools.Selector)
	if err != nil {
		// 选区工具缺失属于工具故障，其余非零退出视为用户取消
		if command.IsNotFound(err) {
			return nil, errors.Wrap(err, "select region")
		}
		d.log.WithError(err).Debug("region selection aborted")
		return nil, ErrCancelled
	}

	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return nil, ErrCancelled
	}

	geom := ParseGeometry(raw)
	if geom.Rect != nil && geom.Rect.Empty() {
		d.log.WithField("geometry", raw).Debug("empty selection")
		return nil, ErrCancelled
	}
	return geom, nil
}

func (d *Dispatcher) grab(ctx context.Context, geometry, output string) (image.Image, error) {
	argv := append([]string{}, d.tools.Grabber...)
	if geometry != "" {
		argv = append(argv, "-g", geometry)
	}
	if output != "" {
		argv = append(argv, "-o", output)
	}
	argv = append(argv, "-")

	d.log.WithFields(logrus.Fields{
		"geometry": geometry,
		"output":   output,
	}).Debug("grab")

	out, err := d.runner.Run(ctx, nil, argv)
	if err != nil {
		return nil, err
	}
	return decode(out)
}

func decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Size: len(data), Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Size: len(data), Err: errors.New("empty image")}
	}
	return img, nil
}
