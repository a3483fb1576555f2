package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"

	"snip/internal/annotate"
	"snip/internal/command"
)

// Screenshot 截图配置
type Screenshot struct {
	SaveDirectory   string `json:"save_directory"`    // 保存目录
	FilenameFormat  string `json:"filename_format"`   // strftime 风格文件名
	CopyToClipboard bool   `json:"copy_to_clipboard"` // 截图后复制到剪贴板
	AutoSave        bool   `json:"auto_save"`         // 截图后自动保存
}

// Shortcuts 快捷键配置。默认仅用于生成合成器绑定，
// RegisterGlobal 为 true 时托盘模式会注册为全局热键
type Shortcuts struct {
	CaptureRegion     string `json:"capture_region"`
	CaptureFullscreen string `json:"capture_fullscreen"`
	CaptureWindow     string `json:"capture_window"`
	RegisterGlobal    bool   `json:"register_global"`
}

// Annotation 标注配置
type Annotation struct {
	DefaultColor     string `json:"default_color"`
	DefaultLineWidth int    `json:"default_line_width"`
	FontSize         int    `json:"font_size"`
	FontFamily       string `json:"font_family"`
}

// Pin 贴图配置
type Pin struct {
	BorderWidth int     `json:"border_width"`
	BorderColor string  `json:"border_color"`
	AlwaysOnTop bool    `json:"always_on_top"`
	Scale       float64 `json:"scale"` // 初始缩放
}

// Tools 外部工具命令行，按 shell 规则拆分。
// Annotator 和 Viewer 中的 {file} 会替换为图片路径
type Tools struct {
	Selector   string `json:"selector"`
	Grabber    string `json:"grabber"`
	Clipboard  string `json:"clipboard"`
	Compositor string `json:"compositor"`
	Annotator  string `json:"annotator"`
	Viewer     string `json:"viewer"`
	Notifier   string `json:"notifier"`
}

// Config 主配置结构
type Config struct {
	Screenshot Screenshot `json:"screenshot"`
	Shortcuts  Shortcuts  `json:"shortcuts"`
	Annotation Annotation `json:"annotation"`
	Pin        Pin        `json:"pin"`
	Tools      Tools      `json:"tools"`

	path      string                     // 配置文件路径
	extra     map[string]json.RawMessage // 未识别的顶层字段，保存时原样写回
	fallbacks []string                   // 回退到默认值的键
}

var knownSections = map[string]bool{
	"screenshot": true,
	"shortcuts":  true,
	"annotation": true,
	"pin":        true,
	"tools":      true,
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Screenshot: Screenshot{
			SaveDirectory:   filepath.Join(picturesDir(), "Snip"),
			FilenameFormat:  "snip_%Y%m%d_%H%M%S.png",
			CopyToClipboard: true,
			AutoSave:        false,
		},
		Shortcuts: Shortcuts{
			CaptureRegion:     "Super+Shift+A",
			CaptureFullscreen: "Super+Shift+S",
			CaptureWindow:     "Super+Shift+W",
		},
		Annotation: Annotation{
			DefaultColor:     "#FF0000",
			DefaultLineWidth: 3,
			FontSize:         14,
			FontFamily:       "Sans",
		},
		Pin: Pin{
			BorderWidth: 2,
			BorderColor: "#00FF00",
			AlwaysOnTop: true,
			Scale:       1.0,
		},
		Tools: Tools{
			Selector:   "slurp",
			Grabber:    "grim",
			Clipboard:  "wl-copy",
			Compositor: "hyprctl",
			Annotator:  "swappy -f {file}",
			Viewer:     "imv {file}",
			Notifier:   "notify-send",
		},
	}
}

func picturesDir() string {
	if xdg.UserDirs.Pictures != "" {
		return xdg.UserDirs.Pictures
	}
	return filepath.Join(xdg.Home, "Pictures")
}

// GetConfigPath 获取配置文件路径，SNIP_CONFIG 优先
func GetConfigPath() string {
	if p := os.Getenv("SNIP_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "snip", "config.json")
}

// Load 加载配置。文件不存在时写出默认配置；
// 解析失败时返回默认配置和错误
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		_ = cfg.Save()
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	// 缺失的键保留默认值；类型不对的键跳过，其余键照常生效
	if err := json.Unmarshal(data, cfg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			fallback := DefaultConfig()
			fallback.path = path
			return fallback, errors.Wrapf(err, "parse config %s", path)
		}
		cfg.fallback(typeErr.Field)
	}

	for k, v := range raw {
		if knownSections[k] {
			continue
		}
		if cfg.extra == nil {
			cfg.extra = make(map[string]json.RawMessage)
		}
		cfg.extra[k] = v
	}

	cfg.Validate()
	return cfg, nil
}

// Validate 验证并修正配置值，非法值静默回退到默认值
func (c *Config) Validate() {
	defaults := DefaultConfig()

	if strings.TrimSpace(c.Screenshot.SaveDirectory) == "" {
		c.Screenshot.SaveDirectory = defaults.Screenshot.SaveDirectory
		c.fallback("screenshot.save_directory")
	}
	c.Screenshot.SaveDirectory = ExpandHome(c.Screenshot.SaveDirectory)

	// 文件名不能包含目录
	format := c.Screenshot.FilenameFormat
	if strings.TrimSpace(format) == "" || strings.ContainsRune(format, filepath.Separator) {
		c.Screenshot.FilenameFormat = defaults.Screenshot.FilenameFormat
		c.fallback("screenshot.filename_format")
	}

	if _, err := annotate.ParseHexColor(c.Annotation.DefaultColor); err != nil {
		c.Annotation.DefaultColor = defaults.Annotation.DefaultColor
		c.fallback("annotation.default_color")
	}
	if c.Annotation.DefaultLineWidth <= 0 {
		c.Annotation.DefaultLineWidth = defaults.Annotation.DefaultLineWidth
		c.fallback("annotation.default_line_width")
	}
	if c.Annotation.FontSize <= 0 {
		c.Annotation.FontSize = defaults.Annotation.FontSize
		c.fallback("annotation.font_size")
	}
	if c.Annotation.FontFamily == "" {
		c.Annotation.FontFamily = defaults.Annotation.FontFamily
		c.fallback("annotation.font_family")
	}

	if c.Pin.BorderWidth < 0 {
		c.Pin.BorderWidth = defaults.Pin.BorderWidth
		c.fallback("pin.border_width")
	}
	if _, err := annotate.ParseHexColor(c.Pin.BorderColor); err != nil {
		c.Pin.BorderColor = defaults.Pin.BorderColor
		c.fallback("pin.border_color")
	}
	if c.Pin.Scale <= 0 || c.Pin.Scale > 8 {
		c.Pin.Scale = defaults.Pin.Scale
		c.fallback("pin.scale")
	}

	// optional 的工具可以置空以关闭对应功能
	validTool := func(key string, line *string, def string, optional bool) {
		if optional && strings.TrimSpace(*line) == "" {
			*line = ""
			return
		}
		if _, err := command.Split(*line); err != nil {
			*line = def
			c.fallback("tools." + key)
		}
	}
	validTool("selector", &c.Tools.Selector, defaults.Tools.Selector, false)
	validTool("grabber", &c.Tools.Grabber, defaults.Tools.Grabber, false)
	validTool("clipboard", &c.Tools.Clipboard, defaults.Tools.Clipboard, false)
	validTool("compositor", &c.Tools.Compositor, defaults.Tools.Compositor, true)
	validTool("annotator", &c.Tools.Annotator, defaults.Tools.Annotator, false)
	validTool("viewer", &c.Tools.Viewer, defaults.Tools.Viewer, false)
	validTool("notifier", &c.Tools.Notifier, defaults.Tools.Notifier, true)
}

func (c *Config) fallback(key string) {
	c.fallbacks = append(c.fallbacks, key)
}

// Fallbacks 返回加载时回退到默认值的键
func (c *Config) Fallbacks() []string {
	return c.fallbacks
}

// Save 保存配置，未识别的顶层字段原样保留
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config path not set")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	known, err := json.Marshal(c)
	if err != nil {
		return err
	}
	out := make(map[string]json.RawMessage, len(c.extra)+len(knownSections))
	if err := json.Unmarshal(known, &out); err != nil {
		return err
	}
	for k, v := range c.extra {
		out[k] = v
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// Path 配置文件路径
func (c *Config) Path() string {
	return c.path
}

// Argv 将工具命令行拆分为参数列表，Validate 之后不会失败
func Argv(line string) []string {
	argv, err := command.Split(line)
	if err != nil {
		return nil
	}
	return argv
}

// ExpandHome 展开 ~
func ExpandHome(dir string) string {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return dir
		}
		return filepath.Join(homeDir, dir[1:])
	}
	return dir
}
