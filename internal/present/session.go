package present

import (
	"image"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snip/internal/command"
	"snip/internal/policy"
)

// Window 一个已打开的展示窗口（外部进程）
type Window struct {
	ID   uuid.UUID
	Kind policy.Presentation
	Path string      // 传给外部程序的临时图片
	Size image.Point // 展示图片的尺寸

	proc command.Process
	done chan struct{}
}

// Session 进程级会话状态：当前打开的标注和贴图窗口。
// 生命周期与程序运行一致
type Session struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*Window
	log     logrus.FieldLogger
}

// NewSession 创建会话
func NewSession(log logrus.FieldLogger) *Session {
	return &Session{
		windows: make(map[uuid.UUID]*Window),
		log:     log,
	}
}

// track 登记窗口，进程退出后自动移除并删除临时文件
func (s *Session) track(w *Window) {
	w.done = make(chan struct{})

	s.mu.Lock()
	s.windows[w.ID] = w
	s.mu.Unlock()

	go func() {
		err := w.proc.Wait()

		s.mu.Lock()
		delete(s.windows, w.ID)
		s.mu.Unlock()

		if rmErr := os.Remove(w.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.WithError(rmErr).WithField("path", w.Path).Debug("remove scratch image")
		}
		s.log.WithFields(logrus.Fields{
			"id":   w.ID,
			"kind": w.Kind,
		}).WithError(err).Debug("window closed")
		close(w.done)
	}()
}

func (s *Session) snapshot(kind *policy.Presentation) []*Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		if kind == nil || w.Kind == *kind {
			out = append(out, w)
		}
	}
	return out
}

// Pins 当前打开的贴图
func (s *Session) Pins() []Window {
	kind := policy.PresentPin
	var pins []Window
	for _, w := range s.snapshot(&kind) {
		pins = append(pins, Window{ID: w.ID, Kind: w.Kind, Path: w.Path, Size: w.Size})
	}
	return pins
}

// Len 当前打开的窗口数
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Wait 等待所有窗口关闭
func (s *Session) Wait() {
	for _, w := range s.snapshot(nil) {
		<-w.done
	}
}

// Close 关闭所有窗口并等待退出
func (s *Session) Close() {
	for _, w := range s.snapshot(nil) {
		if err := w.proc.Kill(); err != nil {
			s.log.WithError(err).WithField("id", w.ID).Debug("kill window")
		}
	}
	s.Wait()
}
