package decoder

import (
	"encoding/json"
	"fmt"
)

// JsonDecoder JSON 格式解码器
type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

func (j *JsonDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return result, nil
}
