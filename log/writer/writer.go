package writer

import (
	"fmt"
	"io"
)

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// Options 输出器配置，Type 取值 console, file, multi
type Options struct {
	Type    string                `cfg:"type" def:"console" validate:"omitempty,oneof=console file multi"`
	Console *ConsoleWriterOptions `cfg:"console"`
	File    *FileWriterOptions    `cfg:"file"`
	Multi   []*Options            `cfg:"multi"`
}

// NewWriterWithOptions 根据 Type 创建输出器
func NewWriterWithOptions(options *Options) (Writer, error) {
	if options == nil {
		return NewConsoleWriterWithOptions(nil)
	}

	switch options.Type {
	case "console", "":
		return NewConsoleWriterWithOptions(options.Console)
	case "file":
		return NewFileWriterWithOptions(options.File)
	case "multi":
		writers := make([]Writer, 0, len(options.Multi))
		for i, sub := range options.Multi {
			w, err := NewWriterWithOptions(sub)
			if err != nil {
				return nil, fmt.Errorf("failed to create writer %d: %w", i, err)
			}
			writers = append(writers, w)
		}
		return NewMultiWriter(writers...)
	}

	return nil, fmt.Errorf("unsupported writer type: %s", options.Type)
}
