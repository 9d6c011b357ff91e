package decoder

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YamlDecoder YAML 格式解码器
type YamlDecoder struct{}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{}
}

// Decode 空文档返回空 map
func (y *YamlDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return result, nil
}
