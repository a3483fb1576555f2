package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snip", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snip", "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Screenshot, cfg.Screenshot)
	assert.Equal(t, path, cfg.Path())
	assert.FileExists(t, path)
}

func TestLoad_PartialSectionKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"screenshot": {"auto_save": true}, "pin": {"border_width": 5}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.True(t, cfg.Screenshot.AutoSave)
	assert.True(t, cfg.Screenshot.CopyToClipboard)
	assert.Equal(t, defaults.Screenshot.SaveDirectory, cfg.Screenshot.SaveDirectory)
	assert.Equal(t, defaults.Screenshot.FilenameFormat, cfg.Screenshot.FilenameFormat)
	assert.Equal(t, 5, cfg.Pin.BorderWidth)
	assert.Equal(t, defaults.Pin.BorderColor, cfg.Pin.BorderColor)
	assert.Equal(t, defaults.Tools, cfg.Tools)
}

func TestLoad_ExplicitFalseOverridesDefault(t *testing.T) {
	path := writeConfig(t, `{"screenshot": {"copy_to_clipboard": false}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Screenshot.CopyToClipboard)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	path := writeConfig(t, `{
		"screenshot": {"save_directory": "", "filename_format": "a/b_%H.png"},
		"annotation": {"default_color": "blue", "default_line_width": -2, "font_size": 0},
		"pin": {"border_width": -1, "border_color": "#12", "scale": 0},
		"tools": {"grabber": "", "viewer": "imv \"{file}"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Screenshot.SaveDirectory, cfg.Screenshot.SaveDirectory)
	assert.Equal(t, defaults.Screenshot.FilenameFormat, cfg.Screenshot.FilenameFormat)
	assert.Equal(t, defaults.Annotation.DefaultColor, cfg.Annotation.DefaultColor)
	assert.Equal(t, defaults.Annotation.DefaultLineWidth, cfg.Annotation.DefaultLineWidth)
	assert.Equal(t, defaults.Annotation.FontSize, cfg.Annotation.FontSize)
	assert.Equal(t, defaults.Pin.BorderWidth, cfg.Pin.BorderWidth)
	assert.Equal(t, defaults.Pin.BorderColor, cfg.Pin.BorderColor)
	assert.Equal(t, defaults.Pin.Scale, cfg.Pin.Scale)
	assert.Equal(t, "grim", cfg.Tools.Grabber)
	assert.Equal(t, "imv {file}", cfg.Tools.Viewer)
	assert.Contains(t, cfg.Fallbacks(), "pin.scale")
	assert.Contains(t, cfg.Fallbacks(), "tools.grabber")
}

func TestLoad_BadJSONReturnsDefaults(t *testing.T) {
	path := writeConfig(t, `{"screenshot": `)

	cfg, err := Load(path)
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig().Screenshot, cfg.Screenshot)
}

func TestLoad_WrongTypeKeepsOtherKeys(t *testing.T) {
	path := writeConfig(t, `{
		"screenshot": {"save_directory": "/srv/shots", "copy_to_clipboard": false, "auto_save": "yes"},
		"tools": {"annotator": "satty -f {file}"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "/srv/shots", cfg.Screenshot.SaveDirectory)
	assert.False(t, cfg.Screenshot.CopyToClipboard)
	assert.False(t, cfg.Screenshot.AutoSave)
	assert.Equal(t, "satty -f {file}", cfg.Tools.Annotator)
	assert.Contains(t, strings.Join(cfg.Fallbacks(), ","), "auto_save")
}

func TestLoad_WrongTypeSection(t *testing.T) {
	path := writeConfig(t, `{"pin": [1, 2], "annotation": {"default_line_width": 6}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pin, cfg.Pin)
	assert.Equal(t, 6, cfg.Annotation.DefaultLineWidth)
}

func TestLoad_OptionalToolsCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `{"tools": {"compositor": "", "notifier": " ", "clipboard": ""}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Tools.Compositor)
	assert.Equal(t, "", cfg.Tools.Notifier)
	assert.Nil(t, Argv(cfg.Tools.Compositor))
	assert.Nil(t, Argv(cfg.Tools.Notifier))
	assert.Equal(t, "wl-copy", cfg.Tools.Clipboard)
	assert.Equal(t, []string{"tools.clipboard"}, cfg.Fallbacks())
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, `{"screenshot": {"save_directory": "~/shots"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shots"), cfg.Screenshot.SaveDirectory)
}

func TestSave_PreservesUnknownSections(t *testing.T) {
	path := writeConfig(t, `{"theme": {"dark": true}, "screenshot": {"auto_save": true}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Pin.BorderWidth = 7
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &out))
	assert.JSONEq(t, `{"dark": true}`, string(out["theme"]))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Pin.BorderWidth)
	assert.True(t, reloaded.Screenshot.AutoSave)
}

func TestSave_WithoutPath(t *testing.T) {
	assert.Error(t, DefaultConfig().Save())
}

func TestGetConfigPath_Env(t *testing.T) {
	t.Setenv("SNIP_CONFIG", "/tmp/snip-test.json")
	assert.Equal(t, "/tmp/snip-test.json", GetConfigPath())
}

func TestArgv(t *testing.T) {
	assert.Equal(t, []string{"swappy", "-f", "{file}"}, Argv(DefaultConfig().Tools.Annotator))
	assert.Nil(t, Argv(""))
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "Pictures"), ExpandHome("~/Pictures"))
	assert.Equal(t, "/srv/shots", ExpandHome("/srv/shots"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
