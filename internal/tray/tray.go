package tray

import (
	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"snip/internal/capture"
)

// Tray 系统托盘，gui 模式的入口
type Tray struct {
	onCapture func(capture.Kind)
	onOpenDir func()
	onQuit    func()
	shortcuts map[capture.Kind]string
	log       logrus.FieldLogger
}

// NewTray 创建系统托盘
func NewTray(log logrus.FieldLogger) *Tray {
	return &Tray{
		shortcuts: make(map[capture.Kind]string),
		log:       log,
	}
}

// SetShortcut 设置菜单项上显示的快捷键文本
func (t *Tray) SetShortcut(kind capture.Kind, text string) {
	t.shortcuts[kind] = text
}

// SetOnCapture 设置截图回调
func (t *Tray) SetOnCapture(fn func(capture.Kind)) {
	t.onCapture = fn
}

// SetOnOpenDir 设置打开目录回调
func (t *Tray) SetOnOpenDir(fn func()) {
	t.onOpenDir = fn
}

// SetOnQuit 设置退出回调
func (t *Tray) SetOnQuit(fn func()) {
	t.onQuit = fn
}

// Run 运行系统托盘（阻塞）
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit 退出托盘，Run 随后返回
func (t *Tray) Quit() {
	systray.Quit()
}

var captureItems = []struct {
	kind    capture.Kind
	title   string
	tooltip string
}{
	{capture.KindRegion, "Capture region", "Select a region and capture it"},
	{capture.KindFullscreen, "Capture fullscreen", "Capture the whole output"},
	{capture.KindWindow, "Capture window", "Capture the active window"},
}

// menuTitle 菜单标题，带快捷键提示
func (t *Tray) menuTitle(kind capture.Kind, title string) string {
	if s := t.shortcuts[kind]; s != "" {
		return title + " (" + s + ")"
	}
	return title
}

func (t *Tray) onReady() {
	icon, err := Icon()
	if err != nil {
		t.log.WithError(err).Warn("render tray icon")
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle("snip")
	systray.SetTooltip("snip - screenshot utility")

	for _, it := range captureItems {
		item := systray.AddMenuItem(t.menuTitle(it.kind, it.title), it.tooltip)
		go func(kind capture.Kind, item *systray.MenuItem) {
			for range item.ClickedCh {
				if t.onCapture != nil {
					t.onCapture(kind)
				}
			}
		}(it.kind, item)
	}
	systray.AddSeparator()

	// 打开截图目录
	mOpenDir := systray.AddMenuItem("Open screenshot folder", "Open the save directory")

	systray.AddSeparator()

	// 退出
	mQuit := systray.AddMenuItem("Quit", "Quit snip")

	go func() {
		for {
			select {
			case <-mOpenDir.ClickedCh:
				if t.onOpenDir != nil {
					t.onOpenDir()
				}
			case <-mQuit.ClickedCh:
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.log.Debug("tray exited")
}
