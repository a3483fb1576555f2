package storage

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/pkg/errors"

	"snip/internal/config"
)

// Storage 存储管理
type Storage struct {
	directory string
	pattern   string // strftime 风格文件名
	now       func() time.Time
}

// NewStorage 创建存储管理器
func NewStorage(directory, pattern string) *Storage {
	return &Storage{
		directory: config.ExpandHome(directory),
		pattern:   pattern,
		now:       time.Now,
	}
}

// Path 计算保存路径：绝对路径原样使用，相对路径位于保存目录下，
// 为空时按文件名模式生成
func (s *Storage) Path(explicit string) string {
	if explicit == "" {
		return filepath.Join(s.directory, strftime.Format(s.pattern, s.now()))
	}

	explicit = config.ExpandHome(explicit)
	if filepath.IsAbs(explicit) {
		return filepath.Clean(explicit)
	}
	return filepath.Join(s.directory, explicit)
}

// Save 以 PNG 保存图片，返回文件路径
func (s *Storage) Save(img image.Image, explicit string) (string, error) {
	path := s.Path(explicit)

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "create directory")
	}

	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "write image")
	}
	return path, nil
}

// Cleanup 清理目录中早于 olderThan 的文件，返回删除数量
func (s *Storage) Cleanup(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.directory)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.directory, entry.Name())) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// GetDirectory 获取保存目录
func (s *Storage) GetDirectory() string {
	return s.directory
}

// EncodePNG 编码为 PNG，同一图片的输出字节完全一致
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
