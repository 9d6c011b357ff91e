package decoder

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlDecoder TOML 格式解码器
type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

func (t *TomlDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	return result, nil
}
