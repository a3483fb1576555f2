package notify

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"snip/internal/command"
)

// AppName 通知来源
const AppName = "snip"

const timeout = 5 * time.Second

// Notifier 通知接口
type Notifier interface {
	Show(title, message string) error
}

// NotifySend 通过 notify-send 发送桌面通知
type NotifySend struct {
	runner command.Runner
	argv   []string
}

// NewNotifier 创建通知器，argv 为空时不发送任何通知
func NewNotifier(runner command.Runner, argv []string) *NotifySend {
	return &NotifySend{
		runner: runner,
		argv:   argv,
	}
}

// Show 显示通知
func (n *NotifySend) Show(title, message string) error {
	if len(n.argv) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	argv := append(append([]string{}, n.argv...), "--app-name="+AppName, title, message)
	if _, err := n.runner.Run(ctx, nil, argv); err != nil {
		return errors.Wrap(err, "show notification")
	}
	return nil
}
