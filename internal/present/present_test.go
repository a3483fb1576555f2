package present

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snip/internal/command"
	"snip/internal/config"
	"snip/internal/policy"
	"snip/internal/storage"
)

type fakeProc struct {
	pid    int
	exit   chan struct{}
	once   sync.Once
	killed bool
}

func (p *fakeProc) Pid() int    { return p.pid }
func (p *fakeProc) Wait() error { <-p.exit; return nil }
func (p *fakeProc) Kill() error {
	p.killed = true
	p.quit()
	return nil
}
func (p *fakeProc) quit() { p.once.Do(func() { close(p.exit) }) }

type fakeLauncher struct {
	argvs [][]string
	procs []*fakeProc
	seen  []bool // 启动时 {file} 是否存在
	err   error
}

func (l *fakeLauncher) Launch(argv []string) (command.Process, error) {
	l.argvs = append(l.argvs, argv)
	if l.err != nil {
		return nil, l.err
	}
	_, statErr := os.Stat(argv[len(argv)-1])
	l.seen = append(l.seen, statErr == nil)
	p := &fakeProc{pid: 1000 + len(l.procs), exit: make(chan struct{})}
	l.procs = append(l.procs, p)
	return p, nil
}

var blue = color.RGBA{0, 0, 255, 255}

func assertColorNear(t *testing.T, want color.RGBA, got color.Color, msg string, args ...interface{}) {
	t.Helper()
	c := color.RGBAModel.Convert(got).(color.RGBA)
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	assert.True(t, d(want.R, c.R) <= 2 && d(want.G, c.G) <= 2 && d(want.B, c.B) <= 2 && d(want.A, c.A) <= 2,
		append([]interface{}{msg + ": expected %v, got %v"}, append(args, want, c)...)...)
}

func blueImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(blue), image.Point{}, draw.Src)
	return img
}

func testOptions() Options {
	cfg := config.DefaultConfig()
	return Options{
		Annotator:  []string{"swappy", "--color={color}", "--width={width}", "-f", "{file}"},
		Viewer:     []string{"imv", "{file}"},
		Annotation: cfg.Annotation,
		Pin:        config.Pin{BorderWidth: 2, BorderColor: "#00FF00", Scale: 1},
	}
}

func newTestPresenter(t *testing.T, l *fakeLauncher) (*Presenter, *Session, string) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	dir := t.TempDir()
	session := NewSession(logger)
	return NewPresenter(l, storage.NewStorage(dir, "unused.png"), session, testOptions(), logger), session, dir
}

func TestAnnotate_LaunchesEditor(t *testing.T) {
	l := &fakeLauncher{}
	p, session, dir := newTestPresenter(t, l)

	require.NoError(t, p.Annotate(context.Background(), blueImage(10, 8)))
	require.Len(t, l.argvs, 1)

	argv := l.argvs[0]
	assert.Equal(t, "swappy", argv[0])
	assert.Equal(t, "--color=#FF0000", argv[1])
	assert.Equal(t, "--width=3", argv[2])
	assert.Contains(t, argv[4], dir)
	assert.True(t, l.seen[0], "image must exist before launch")
	assert.Equal(t, 1, session.Len())
	assert.Empty(t, session.Pins())

	// 编辑器退出后清理临时文件
	l.procs[0].quit()
	session.Wait()
	assert.Equal(t, 0, session.Len())
	assert.NoFileExists(t, argv[4])
}

func TestPin_TracksDecoratedImage(t *testing.T) {
	l := &fakeLauncher{}
	p, session, _ := newTestPresenter(t, l)

	require.NoError(t, p.Pin(context.Background(), blueImage(20, 10)))
	require.NoError(t, p.Pin(context.Background(), blueImage(5, 5)))

	pins := session.Pins()
	require.Len(t, pins, 2)

	path := l.argvs[0][1]
	f, err := os.Open(path)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Width)
	assert.Equal(t, 14, cfg.Height)

	session.Close()
	assert.Equal(t, 0, session.Len())
	for _, proc := range l.procs {
		assert.True(t, proc.killed)
	}
	assert.NoFileExists(t, path)
}

func TestOpen_LaunchFailureCleansUp(t *testing.T) {
	l := &fakeLauncher{err: &command.Error{Tool: "imv", NotFound: true}}
	p, session, dir := newTestPresenter(t, l)

	err := p.Pin(context.Background(), blueImage(4, 4))
	require.Error(t, err)
	assert.True(t, command.IsNotFound(err))
	assert.Equal(t, 0, session.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecoratePin_Border(t *testing.T) {
	img := blueImage(20, 10)
	out, err := DecoratePin(img, config.Pin{BorderWidth: 3, BorderColor: "#00FF00", Scale: 1})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 26, 16), out.Bounds())
	green := color.RGBA{0, 255, 0, 255}
	for _, pt := range []image.Point{{13, 0}, {13, 2}, {0, 8}, {25, 8}, {13, 15}} {
		assertColorNear(t, green, out.At(pt.X, pt.Y), "border at %v", pt)
	}
	for _, pt := range []image.Point{{3, 3}, {13, 8}, {22, 12}} {
		assertColorNear(t, blue, out.At(pt.X, pt.Y), "content at %v", pt)
	}
	assert.Equal(t, blue, img.RGBAAt(0, 0), "input untouched")
}

func TestDecoratePin_ScaleWithoutBorder(t *testing.T) {
	out, err := DecoratePin(blueImage(20, 10), config.Pin{Scale: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 5, out.Bounds().Dy())

	img := blueImage(3, 3)
	out, err = DecoratePin(img, config.Pin{Scale: 1})
	require.NoError(t, err)
	assert.Same(t, img, out)
}

func TestDecoratePin_BadColor(t *testing.T) {
	_, err := DecoratePin(blueImage(3, 3), config.Pin{BorderWidth: 1, BorderColor: "nope", Scale: 1})
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	argv := expand([]string{"satty", "--filename", "{file}", "--init-color={color}"}, map[string]string{
		"{file}":  "/tmp/a.png",
		"{color}": "#FF0000",
	})
	assert.Equal(t, []string{"satty", "--filename", "/tmp/a.png", "--init-color=#FF0000"}, argv)
}

func TestSessionWait_Empty(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s := NewSession(logger)
	s.Wait()
	s.Close()
	assert.Zero(t, s.Len())
}

func TestAnnotate_NormalisesColor(t *testing.T) {
	l := &fakeLauncher{}
	logger, _ := logtest.NewNullLogger()
	opts := testOptions()
	opts.Annotation.DefaultColor = "#f80"
	p := NewPresenter(l, storage.NewStorage(t.TempDir(), "unused.png"), NewSession(logger), opts, logger)

	require.NoError(t, p.Annotate(context.Background(), blueImage(2, 2)))
	assert.Equal(t, "--color=#FF8800", l.argvs[0][1])
	l.procs[0].quit()
}

func TestSession_CloseKillsLiveWindows(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s := NewSession(logger)

	path := filepath.Join(t.TempDir(), "pin.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))
	proc := &fakeProc{pid: 42, exit: make(chan struct{})}
	s.track(&Window{ID: uuid.New(), Kind: policy.PresentPin, Path: path, Size: image.Pt(2, 2), proc: proc})
	require.Len(t, s.Pins(), 1)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, proc.killed)
	assert.Zero(t, s.Len())
	assert.NoFileExists(t, path)

	// 已关闭的会话上 Wait 立即返回
	s.Wait()
}
