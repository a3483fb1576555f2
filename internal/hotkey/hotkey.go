package hotkey

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"
)

// Binding 解析后的快捷键，如 "Super+Shift+A"
type Binding struct {
	Raw       string
	Modifiers []string // 规范化的修饰键名：CTRL ALT SHIFT SUPER
	Key       string   // 规范化的主键名

	mods []hotkey.Modifier
	key  hotkey.Key
}

var modifiers = map[string]struct {
	name string
	mod  hotkey.Modifier
}{
	"ctrl":    {"CTRL", hotkey.ModCtrl},
	"control": {"CTRL", hotkey.ModCtrl},
	"shift":   {"SHIFT", hotkey.ModShift},
	"alt":     {"ALT", hotkey.Mod1},
	"mod1":    {"ALT", hotkey.Mod1},
	"super":   {"SUPER", hotkey.Mod4},
	"win":     {"SUPER", hotkey.Mod4},
	"mod4":    {"SUPER", hotkey.Mod4},
}

var keys = map[string]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,

	"SPACE":  hotkey.KeySpace,
	"RETURN": hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"TAB":    hotkey.KeyTab,
	"DELETE": hotkey.KeyDelete,
	"UP":     hotkey.KeyUp,
	"DOWN":   hotkey.KeyDown,
	"LEFT":   hotkey.KeyLeft,
	"RIGHT":  hotkey.KeyRight,
}

var keyAliases = map[string]string{
	"ENTER": "RETURN",
	"ESC":   "ESCAPE",
	"DEL":   "DELETE",
}

// ParseBinding 解析 "Mod+Mod+Key" 形式的快捷键，大小写不敏感
func ParseBinding(s string) (*Binding, error) {
	parts := splitBinding(s)
	if len(parts) == 0 {
		return nil, errors.Errorf("empty shortcut %q", s)
	}

	b := &Binding{Raw: s}
	seen := make(map[string]bool)
	for _, part := range parts[:len(parts)-1] {
		m, ok := modifiers[strings.ToLower(part)]
		if !ok {
			return nil, errors.Errorf("unknown modifier %q in %q", part, s)
		}
		if seen[m.name] {
			continue
		}
		seen[m.name] = true
		b.Modifiers = append(b.Modifiers, m.name)
		b.mods = append(b.mods, m.mod)
	}

	name := strings.ToUpper(parts[len(parts)-1])
	if alias, ok := keyAliases[name]; ok {
		name = alias
	}
	k, ok := keys[name]
	if !ok {
		return nil, errors.Errorf("unknown key %q in %q", parts[len(parts)-1], s)
	}
	b.Key = name
	b.key = k
	return b, nil
}

// Hyprland 返回 hyprland.conf 中 bind 的前两个字段，如 "SUPER SHIFT, A"
func (b *Binding) Hyprland() string {
	return strings.Join(b.Modifiers, " ") + ", " + b.Key
}

func splitBinding(s string) []string {
	var result []string
	for _, part := range strings.Split(s, "+") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

type entry struct {
	binding  *Binding
	hk       *hotkey.Hotkey
	callback func()
}

// Manager 热键管理器，可同时注册多个快捷键
type Manager struct {
	mu      sync.Mutex
	entries []*entry
	log     logrus.FieldLogger
}

// NewManager 创建热键管理器
func NewManager(log logrus.FieldLogger) *Manager {
	return &Manager{log: log}
}

// Register 注册热键
func (m *Manager) Register(shortcut string, callback func()) error {
	b, err := ParseBinding(shortcut)
	if err != nil {
		return err
	}

	hk := hotkey.New(b.mods, b.key)
	if err := hk.Register(); err != nil {
		return errors.Wrapf(err, "register hotkey %s", shortcut)
	}

	m.mu.Lock()
	m.entries = append(m.entries, &entry{binding: b, hk: hk, callback: callback})
	m.mu.Unlock()

	m.log.WithField("shortcut", shortcut).Debug("hotkey registered")
	return nil
}

// Unregister 注销所有热键
func (m *Manager) Unregister() {
	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	m.mu.Unlock()

	for _, e := range entries {
		if err := e.hk.Unregister(); err != nil {
			m.log.WithError(err).WithField("shortcut", e.binding.Raw).Debug("unregister hotkey")
		}
	}
}

// ListenAsync 为每个热键启动监听
func (m *Manager) ListenAsync() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		go func(e *entry) {
			for range e.hk.Keydown() {
				if e.callback != nil {
					e.callback()
				}
			}
		}(e)
	}
}

// Run 在主线程中运行（X11 热键需要）
func Run(fn func()) {
	mainthread.Init(fn)
}
