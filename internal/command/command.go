package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// Runner 同步执行外部工具，返回标准输出
type Runner interface {
	// Run 执行 argv，stdin 非 nil 时写入子进程标准输入
	Run(ctx context.Context, stdin []byte, argv []string) ([]byte, error)
}

// Process 已启动的后台进程
type Process interface {
	Pid() int
	Wait() error
	Kill() error
}

// Launcher 启动不等待结束的外部程序（标注窗口、贴图窗口）
type Launcher interface {
	Launch(argv []string) (Process, error)
}

// Error 外部工具失败
type Error struct {
	Tool     string
	Args     []string
	ExitCode int    // -1 表示进程未正常退出
	Stderr   string // 截断后的标准错误
	NotFound bool   // 工具不在 PATH 中
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.NotFound:
		return fmt.Sprintf("%s: not found in PATH", e.Tool)
	case e.Stderr != "":
		return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
	default:
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound 判断错误是否因为工具不存在
func IsNotFound(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.NotFound
}

const maxStderr = 512

var waitDelay = 500 * time.Millisecond

// Exec 基于 os/exec 的 Runner 和 Launcher
type Exec struct{}

// NewExec 创建执行器
func NewExec() *Exec {
	return &Exec{}
}

// Run 执行并等待结束
func (x *Exec) Run(ctx context.Context, stdin []byte, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	// 工具退出后不再等待继承了输出管道的后台子进程（如 wl-copy）
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}
	if err != nil {
		return stdout.Bytes(), newError(argv, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Launch 启动后台程序，标准输出和错误继承当前进程
func (x *Exec) Launch(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, newError(argv, err, "")
	}
	return &process{cmd: cmd}, nil
}

type process struct {
	cmd *exec.Cmd
}

func (p *process) Pid() int    { return p.cmd.Process.Pid }
func (p *process) Wait() error { return p.cmd.Wait() }
func (p *process) Kill() error { return p.cmd.Process.Kill() }

func newError(argv []string, err error, stderr string) *Error {
	e := &Error{
		Tool:     argv[0],
		Args:     argv[1:],
		ExitCode: -1,
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		e.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		e.NotFound = true
	}

	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderr {
		stderr = stderr[:maxStderr] + "..."
	}
	e.Stderr = stderr
	return e
}

// Split 按 shell 规则拆分命令行字符串
func Split(line string) ([]string, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, errors.Wrapf(err, "parse command %q", line)
	}
	if len(argv) == 0 {
		return nil, errors.Errorf("empty command %q", line)
	}
	return argv, nil
}

// Join 与 Split 相反，用于日志和配置回写
func Join(argv []string) string {
	return shellquote.Join(argv...)
}

var lookPath = exec.LookPath

// Missing 返回不在 PATH 中的工具名
func Missing(argvs ...[]string) []string {
	var missing []string
	for _, argv := range argvs {
		if len(argv) == 0 {
			continue
		}
		if _, err := lookPath(argv[0]); err != nil {
			missing = append(missing, argv[0])
		}
	}
	return missing
}
