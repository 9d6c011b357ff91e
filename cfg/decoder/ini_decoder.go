package decoder

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// IniDecoder INI 格式解码器
//
// 默认 section 的键放在顶层，其他 section 展开为嵌套 map。"a.b" 形式的 section 名按层级嵌套，
// 例如 [logger.output] 对应 logger -> output
type IniDecoder struct {
	// AllowBoolKeys 允许无值的键，值为 true
	AllowBoolKeys bool
}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{AllowBoolKeys: true}
}

func (i *IniDecoder) Decode(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         i.AllowBoolKeys,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode INI: %w", err)
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				next, ok := target[part].(map[string]any)
				if !ok {
					next = map[string]any{}
					target[part] = next
				}
				target = next
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = parseIniValue(key.String())
		}
	}

	return result, nil
}

// parseIniValue INI 没有类型，尝试按布尔、整数、浮点数解析，失败时保留字符串
func parseIniValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
