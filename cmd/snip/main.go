package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kingpin"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"snip/internal/capture"
	"snip/internal/clipboard"
	"snip/internal/command"
	"snip/internal/config"
	"snip/internal/hotkey"
	"snip/internal/logging"
	"snip/internal/notify"
	"snip/internal/policy"
	"snip/internal/present"
	"snip/internal/storage"
	"snip/internal/tray"
)

const version = "1.0.0"

// 临时图片保留时间
const scratchTTL = 24 * time.Hour

var (
	app = kingpin.New("snip", "Screenshot utility for Wayland compositors.")

	actionArg = app.Arg("action", "Capture action; gui starts the tray menu.").
			Default("gui").Enum("region", "fullscreen", "window", "gui")
	annotateFlag = app.Flag("annotate", "Open the annotation editor after capture.").Bool()
	pinFlag      = app.Flag("pin", "Pin the capture on screen.").Bool()
	saveFlag     = app.Flag("save", "Save the capture to the screenshot directory.").Bool()
	outputFlag   = app.Flag("output", "Save the capture to this path (implies --save, so the annotation editor is not opened unless --annotate is given).").Short('o').String()
	monitorFlag  = app.Flag("monitor", "Output to capture in fullscreen mode.").Short('m').String()
	configFlag   = app.Flag("config", "Configuration file.").Envar("SNIP_CONFIG").String()
	debugFlag    = app.Flag("debug", "Enable debug logging.").Bool()
	printBinds   = app.Flag("print-binds", "Print Hyprland bind lines for the configured shortcuts and exit.").Bool()
)

var (
	cfg        *config.Config
	log        *logrus.Logger
	launcher   command.Launcher
	dispatcher *capture.Dispatcher
	executor   *policy.Executor
	session    *present.Session
	notifier   notify.Notifier
	store      *storage.Storage

	// 托盘菜单和热键可能同时触发，同一时间只做一次截图
	captureMu sync.Mutex
)

func main() {
	app.Version("snip " + version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	path := *configFlag
	if path == "" {
		path = config.GetConfigPath()
	}

	var err error
	cfg, err = config.Load(path)
	log = logging.New(logging.Options{
		Debug: *debugFlag,
		File:  filepath.Join(xdg.CacheHome, "snip", "snip.log"),
	})
	if err != nil {
		log.WithError(err).Warn("load config, using defaults")
	}
	log.WithField("path", cfg.Path()).Debug("config loaded")
	if keys := cfg.Fallbacks(); len(keys) > 0 {
		log.WithField("keys", strings.Join(keys, ",")).Debug("invalid config values replaced by defaults")
	}

	if *printBinds {
		if err := writeBinds(os.Stdout, cfg.Shortcuts); err != nil {
			log.WithError(err).Error("print binds")
			os.Exit(1)
		}
		return
	}

	setup()

	if *actionArg == "gui" {
		// 托盘和热键在主线程初始化
		hotkey.Run(runTray)
		return
	}

	kind, err := capture.ParseKind(*actionArg)
	if err != nil {
		app.Fatalf("%v", err)
	}
	os.Exit(runCLI(kind))
}

func setup() {
	exe := command.NewExec()

	scratch := storage.NewStorage(filepath.Join(xdg.CacheHome, "snip", "scratch"), "%Y%m%d_%H%M%S.png")
	if n, err := scratch.Cleanup(scratchTTL); err != nil {
		log.WithError(err).Debug("clean scratch directory")
	} else if n > 0 {
		log.WithField("count", n).Debug("removed stale scratch images")
	}

	wire(exe, exe, scratch)

	// 依赖检查只给出警告，缺失的工具在用到时才会失败
	missing := append(dispatcher.Missing(), command.Missing(
		config.Argv(cfg.Tools.Clipboard),
		config.Argv(cfg.Tools.Annotator),
		config.Argv(cfg.Tools.Viewer),
	)...)
	if len(missing) > 0 {
		log.WithField("tools", strings.Join(missing, ",")).Warn("required tools not found in PATH")
	}
}

// wire 按配置组装截图、剪贴板、保存和展示组件
func wire(r command.Runner, l command.Launcher, scratch *storage.Storage) {
	launcher = l

	dispatcher = capture.NewDispatcher(r, capture.Tools{
		Selector:   config.Argv(cfg.Tools.Selector),
		Grabber:    config.Argv(cfg.Tools.Grabber),
		Compositor: config.Argv(cfg.Tools.Compositor),
	}, log)

	session = present.NewSession(log)
	presenter := present.NewPresenter(l, scratch, session, present.Options{
		Annotator:  config.Argv(cfg.Tools.Annotator),
		Viewer:     config.Argv(cfg.Tools.Viewer),
		Annotation: cfg.Annotation,
		Pin:        cfg.Pin,
	}, log)

	store = storage.NewStorage(cfg.Screenshot.SaveDirectory, cfg.Screenshot.FilenameFormat)
	clip := clipboard.NewClipboard(r, config.Argv(cfg.Tools.Clipboard))
	executor = policy.NewExecutor(clip, store, presenter, log)
	notifier = notify.NewNotifier(r, config.Argv(cfg.Tools.Notifier))
}

// runCLI 执行一次截图，返回退出码
func runCLI(kind capture.Kind) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := capture.Request{Kind: kind}
	if *monitorFlag != "" {
		if kind != capture.KindFullscreen {
			log.WithField("monitor", *monitorFlag).Warn("--monitor only applies to fullscreen captures")
		} else {
			output, err := resolveOutput(ctx, *monitorFlag)
			if err != nil {
				log.WithError(err).Error("invalid monitor")
				return 1
			}
			req.Output = output
		}
	}

	flags := policy.Flags{
		Annotate: *annotateFlag,
		Pin:      *pinFlag,
		Save:     *saveFlag,
		Output:   *outputFlag,
	}

	_, err := captureAndDispatch(ctx, req, flags)
	code := exitCode(err)
	waitWindows(ctx)
	return code
}

// waitWindows 等待标注和贴图窗口关闭，ctx 结束时直接关闭
func waitWindows(ctx context.Context) {
	if n := session.Len(); n > 0 {
		log.WithFields(logrus.Fields{
			"windows": n,
			"pins":    len(session.Pins()),
		}).Info("waiting for windows to close")
	}

	done := make(chan struct{})
	go func() {
		session.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		session.Close()
	}
}

// exitCode 取消返回 0，截图失败返回 1；保存等后续步骤失败只记录日志
func exitCode(err error) int {
	switch f := capture.Classify(err); f {
	case capture.FailureNone:
		return 0
	case capture.FailureCancelled:
		log.Debug("capture cancelled")
		return 0
	default:
		log.WithError(err).WithField("failure", f).Error("capture failed")
		return 1
	}
}

// resolveOutput 校验显示器名称。查询失败时原样交给截图工具
func resolveOutput(ctx context.Context, name string) (string, error) {
	outputs, err := dispatcher.Outputs(ctx)
	if err != nil {
		log.WithError(err).Debug("list outputs")
		return name, nil
	}
	for _, o := range outputs {
		if o == name {
			return name, nil
		}
	}
	return "", errors.Errorf("unknown monitor %q (available: %s)", name, strings.Join(outputs, ", "))
}

// captureAndDispatch 截图并执行后续动作
func captureAndDispatch(ctx context.Context, req capture.Request, flags policy.Flags) (*policy.Report, error) {
	captureMu.Lock()
	defer captureMu.Unlock()

	res, err := dispatcher.Capture(ctx, req)
	if err != nil {
		return nil, err
	}

	b := res.Image.Bounds()
	entry := log.WithFields(logrus.Fields{
		"kind": req.Kind,
		"size": fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
	})
	if res.Geometry != nil {
		entry = entry.WithField("geometry", res.Geometry.Raw)
	}
	entry.Debug("captured")

	plan := policy.Resolve(cfg.Screenshot, flags)
	report := executor.Execute(ctx, res.Image, plan)

	if path := report.SavedPath(); path != "" {
		fields := logrus.Fields{"path": path}
		if info, err := os.Stat(path); err == nil {
			fields["size"] = humanize.Bytes(uint64(info.Size()))
		}
		log.WithFields(fields).Info("screenshot saved")
	}
	return report, nil
}

func runTray() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := tray.NewTray(log)
	shortcuts := shortcutsByKind(cfg.Shortcuts)
	for kind, sc := range shortcuts {
		t.SetShortcut(kind, sc)
	}

	onCapture := func(kind capture.Kind) {
		trayCapture(ctx, kind)
	}

	if cfg.Shortcuts.RegisterGlobal {
		hkMgr := hotkey.NewManager(log)
		for kind, sc := range shortcuts {
			kind := kind
			if err := hkMgr.Register(sc, func() { onCapture(kind) }); err != nil {
				log.WithError(err).WithField("shortcut", sc).Warn("register hotkey")
			}
		}
		hkMgr.ListenAsync()
		defer hkMgr.Unregister()
	}

	t.SetOnCapture(onCapture)
	t.SetOnOpenDir(openScreenshotDir)
	t.SetOnQuit(stop)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	log.WithFields(logrus.Fields{
		"version":   version,
		"directory": store.GetDirectory(),
	}).Info("snip started")

	// 运行托盘（阻塞）
	t.Run()
	if pins := session.Pins(); len(pins) > 0 {
		log.WithField("pins", len(pins)).Info("closing pinned screenshots")
	}
	session.Close()
}

// trayCapture 托盘模式下截图，失败时发送桌面通知
func trayCapture(ctx context.Context, kind capture.Kind) {
	report, err := captureAndDispatch(ctx, capture.Request{Kind: kind}, policy.Flags{})
	if capture.IsCancelled(err) {
		log.WithField("kind", kind).Debug("capture cancelled")
		return
	}
	if err != nil {
		log.WithError(err).WithField("failure", capture.Classify(err)).Error("capture failed")
		showNotification("Screenshot failed", err.Error())
		return
	}
	for _, o := range report.Failed() {
		showNotification("Screenshot "+string(o.Step)+" failed", o.Err.Error())
	}
}

func showNotification(title, message string) {
	if err := notifier.Show(title, message); err != nil {
		log.WithError(err).Debug("show notification")
	}
}

func openScreenshotDir() {
	dir := store.GetDirectory()
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).Warn("create screenshot directory")
		return
	}

	proc, err := launcher.Launch([]string{"xdg-open", dir})
	if err != nil {
		log.WithError(err).Warn("open screenshot directory")
		return
	}
	go proc.Wait()
}
