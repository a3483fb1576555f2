package clipboard

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"snip/internal/command"
	"snip/internal/storage"
)

// MimePNG 写入剪贴板的图片类型
const MimePNG = "image/png"

// Clipboard 剪贴板接口
type Clipboard interface {
	CopyImage(ctx context.Context, img image.Image) error
}

// WlClipboard 通过 wl-copy 写剪贴板，PNG 数据走标准输入
type WlClipboard struct {
	runner command.Runner
	argv   []string
}

// NewClipboard 创建剪贴板实例
func NewClipboard(runner command.Runner, argv []string) *WlClipboard {
	return &WlClipboard{
		runner: runner,
		argv:   argv,
	}
}

// CopyImage 以 PNG 格式复制图片，编码与保存到文件的字节一致
func (c *WlClipboard) CopyImage(ctx context.Context, img image.Image) error {
	data, err := storage.EncodePNG(img)
	if err != nil {
		return err
	}

	argv := append(append([]string{}, c.argv...), "--type", MimePNG)
	if _, err := c.runner.Run(ctx, data, argv); err != nil {
		return errors.Wrap(err, "copy to clipboard")
	}
	return nil
}
