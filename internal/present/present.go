package present

import (
	"context"
	"image"
	"image/draw"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"snip/internal/annotate"
	"snip/internal/command"
	"snip/internal/config"
	"snip/internal/policy"
	"snip/internal/storage"
)

// Options 展示层配置
type Options struct {
	Annotator  []string // 标注程序，{file} {color} {width} 会被替换
	Viewer     []string // 贴图程序，{file} 会被替换
	Annotation config.Annotation
	Pin        config.Pin
}

// Presenter 通过外部程序打开标注窗口和贴图窗口
type Presenter struct {
	launcher command.Launcher
	scratch  *storage.Storage
	session  *Session
	opts     Options
	log      logrus.FieldLogger
}

// NewPresenter 创建展示层，scratch 保存传给外部程序的临时图片
func NewPresenter(launcher command.Launcher, scratch *storage.Storage, session *Session, opts Options, log logrus.FieldLogger) *Presenter {
	return &Presenter{
		launcher: launcher,
		scratch:  scratch,
		session:  session,
		opts:     opts,
		log:      log,
	}
}

// Annotate 打开标注窗口
func (p *Presenter) Annotate(ctx context.Context, img image.Image) error {
	// 统一为 #RRGGBB，部分标注程序不接受 #RGB
	color := p.opts.Annotation.DefaultColor
	if c, err := annotate.ParseHexColor(color); err == nil {
		color = annotate.FormatHexColor(c)
	}
	vars := map[string]string{
		"{color}": color,
		"{width}": strconv.Itoa(p.opts.Annotation.DefaultLineWidth),
	}
	return p.open(policy.PresentAnnotate, img, p.opts.Annotator, vars)
}

// Pin 将截图贴在屏幕上，边框和缩放作用于副本
func (p *Presenter) Pin(ctx context.Context, img image.Image) error {
	pinned, err := DecoratePin(img, p.opts.Pin)
	if err != nil {
		return errors.Wrap(err, "decorate pin")
	}
	return p.open(policy.PresentPin, pinned, p.opts.Viewer, nil)
}

func (p *Presenter) open(kind policy.Presentation, img image.Image, tmpl []string, vars map[string]string) error {
	id := uuid.New()
	path, err := p.scratch.Save(img, kind.String()+"-"+id.String()+".png")
	if err != nil {
		return errors.Wrapf(err, "prepare %s image", kind)
	}

	if vars == nil {
		vars = make(map[string]string)
	}
	vars["{file}"] = path
	argv := expand(tmpl, vars)

	proc, err := p.launcher.Launch(argv)
	if err != nil {
		os.Remove(path)
		return errors.Wrapf(err, "open %s window", kind)
	}

	b := img.Bounds()
	p.session.track(&Window{
		ID:   id,
		Kind: kind,
		Path: path,
		Size: image.Pt(b.Dx(), b.Dy()),
		proc: proc,
	})

	p.log.WithFields(logrus.Fields{
		"id":      id,
		"kind":    kind,
		"command": command.Join(argv),
	}).Info("window opened")
	return nil
}

// expand 替换参数中的占位符
func expand(tmpl []string, vars map[string]string) []string {
	argv := make([]string, len(tmpl))
	for i, arg := range tmpl {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, k, v)
		}
		argv[i] = arg
	}
	return argv
}

// DecoratePin 生成贴图副本：先按 Scale 缩放，再在外侧加边框
func DecoratePin(img image.Image, cfg config.Pin) (image.Image, error) {
	src := img
	if cfg.Scale > 0 && cfg.Scale != 1 {
		b := img.Bounds()
		w := int(float64(b.Dx())*cfg.Scale + 0.5)
		h := int(float64(b.Dy())*cfg.Scale + 0.5)
		src = imaging.Resize(img, max(w, 1), max(h, 1), imaging.Lanczos)
	}

	bw := cfg.BorderWidth
	if bw <= 0 {
		return src, nil
	}

	c, err := annotate.ParseHexColor(cfg.BorderColor)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*bw, b.Dy()+2*bw))
	draw.Draw(canvas, image.Rect(bw, bw, bw+b.Dx(), bw+b.Dy()), src, b.Min, draw.Src)

	// 线宽取两倍边框并沿画布边缘描边，外侧一半被裁掉
	border := annotate.Stroke{
		Tool:   annotate.ToolRect,
		Points: []image.Point{{0, 0}, {canvas.Bounds().Dx(), canvas.Bounds().Dy()}},
		Color:  c,
		Width:  2 * bw,
	}
	if err := annotate.Render(canvas, &border); err != nil {
		return nil, err
	}
	return canvas, nil
}
