package writer

import (
	"fmt"
	"io"
)

// MultiWriter 同时写入多个输出器
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter 从已有输出器创建多输出器
func NewMultiWriter(writers ...Writer) (*MultiWriter, error) {
	if len(writers) == 0 {
		return nil, fmt.Errorf("at least one writer is required")
	}
	return &MultiWriter{writers: writers}, nil
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for i, w := range m.writers {
		n, err = w.Write(p)
		if err != nil {
			return n, fmt.Errorf("writer %d failed: %w", i, err)
		}
		if n != len(p) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

// Close 关闭所有输出器，返回最后一个错误
func (m *MultiWriter) Close() error {
	var lastErr error
	for i, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close writer %d: %w", i, err)
		}
	}
	return lastErr
}
