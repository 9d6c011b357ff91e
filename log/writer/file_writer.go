package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriterOptions 文件输出配置
type FileWriterOptions struct {
	// 文件路径
	Path string `cfg:"path" validate:"required"`
}

// FileWriter 追加写入的文件输出器，慢查询日志通常单独落盘
type FileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileWriterWithOptions 创建文件输出器
func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	dir := filepath.Dir(options.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", options.Path, err)
	}

	return &FileWriter{path: options.Path, file: file}, nil
}

func (f *FileWriter) Write(p []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, fmt.Errorf("file %s is closed", f.path)
	}
	return f.file.Write(p)
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
