package capture

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"snip/internal/command"
)

// ErrCancelled 用户取消选区，不是错误，不应提示
var ErrCancelled = errors.New("capture cancelled")

// DecodeError 截图工具输出的不是有效图片
type DecodeError struct {
	Size int // 输出字节数
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image (%d bytes): %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Failure 截图失败分类
type Failure int

const (
	FailureNone      Failure = iota
	FailureCancelled         // 用户取消，静默
	FailureTool              // 外部工具失败
	FailureDecode            // 图片解码失败，按工具失败处理
	FailureOther
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureCancelled:
		return "cancelled"
	case FailureTool:
		return "tool failure"
	case FailureDecode:
		return "decode failure"
	}
	return "failure"
}

// Reportable 是否需要提示用户
func (f Failure) Reportable() bool {
	return f != FailureNone && f != FailureCancelled
}

// Classify 对截图错误分类
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return FailureCancelled
	}

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return FailureDecode
	}
	var cmdErr *command.Error
	if errors.As(err, &cmdErr) {
		return FailureTool
	}
	return FailureOther
}

// IsCancelled 判断是否为用户取消
func IsCancelled(err error) bool {
	return Classify(err) == FailureCancelled
}
