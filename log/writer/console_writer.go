package writer

import (
	"io"
	"os"
)

// ConsoleWriterOptions 控制台输出配置
type ConsoleWriterOptions struct {
	// 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stderr" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	writer io.Writer
}

// NewConsoleWriterWithOptions 创建控制台输出器，默认输出到 stderr
func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	target := "stderr"
	if options != nil && options.Target != "" {
		target = options.Target
	}

	var w io.Writer = os.Stderr
	if target == "stdout" {
		w = os.Stdout
	}

	return &ConsoleWriter{writer: w}, nil
}

func (c *ConsoleWriter) Write(p []byte) (n int, err error) {
	return c.writer.Write(p)
}

// Close 控制台不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}
