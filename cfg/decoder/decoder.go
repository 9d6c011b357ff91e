package decoder

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Decoder 将配置文件内容解码为通用结构（map[string]any 及其嵌套值）
type Decoder interface {
	Decode(data []byte) (map[string]any, error)
}

// NewDecoderWithFormat 按格式名创建解码器：yaml, yml, toml, ini, json
func NewDecoderWithFormat(format string) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		return NewYamlDecoder(), nil
	case "toml":
		return NewTomlDecoder(), nil
	case "ini":
		return NewIniDecoder(), nil
	case "json":
		return NewJsonDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config format %q", format)
}

// NewDecoderForPath 根据文件扩展名选择解码器
func NewDecoderForPath(path string) (Decoder, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, errors.Errorf("config file %s has no extension", path)
	}
	return NewDecoderWithFormat(ext)
}
