package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"snip/internal/capture"
	"snip/internal/config"
	"snip/internal/hotkey"
)

var bindOrder = []capture.Kind{capture.KindRegion, capture.KindFullscreen, capture.KindWindow}

// shortcutsByKind 返回已配置的快捷键，空值跳过
func shortcutsByKind(s config.Shortcuts) map[capture.Kind]string {
	all := map[capture.Kind]string{
		capture.KindRegion:     s.CaptureRegion,
		capture.KindFullscreen: s.CaptureFullscreen,
		capture.KindWindow:     s.CaptureWindow,
	}
	out := make(map[capture.Kind]string, len(all))
	for kind, sc := range all {
		if sc != "" {
			out[kind] = sc
		}
	}
	return out
}

// writeBinds 输出 hyprland.conf 的 bind 行
func writeBinds(w io.Writer, s config.Shortcuts) error {
	shortcuts := shortcutsByKind(s)
	for _, kind := range bindOrder {
		sc, ok := shortcuts[kind]
		if !ok {
			continue
		}
		b, err := hotkey.ParseBinding(sc)
		if err != nil {
			return errors.Wrapf(err, "shortcut for %s", kind)
		}
		if _, err := fmt.Fprintf(w, "bind = %s, exec, snip %s\n", b.Hyprland(), kind); err != nil {
			return err
		}
	}
	return nil
}
