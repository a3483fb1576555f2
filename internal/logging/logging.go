package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志配置
type Options struct {
	Debug bool
	File  string // 为空时只写标准错误

	MaxSize    int // MB
	MaxBackups int
}

// New 创建日志记录器，同时写标准错误和滚动日志文件
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	log.Level = logrus.InfoLevel
	if opts.Debug {
		log.Level = logrus.DebugLevel
	}

	log.Out = os.Stderr
	if w := fileWriter(opts); w != nil {
		log.Out = io.MultiWriter(os.Stderr, w)
	}
	return log
}

func fileWriter(opts Options) io.Writer {
	if opts.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
}
