package filter

import (
	"sort"

	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parse 解析 JSON 或 YAML 描述的过滤条件
//
//	{"bool": {"must": [{"term": {"Name": "Bob"}}, {"range": {"Score": {"gte": 1}}}]}}
func Parse(data []byte) (Filter, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal failed")
	}
	return Decode(v)
}

// Decode 从 {类型: 内容} 形式的 map 构造过滤条件
func Decode(v any) (Filter, error) {
	node, ok := v.(map[string]any)
	if !ok || len(node) != 1 {
		return nil, errs.Validationf("filter must be an object with exactly one key, got %v", v)
	}
	for key, body := range node {
		return decodeNode(Type(key), body)
	}
	return nil, nil
}

func decodeNode(typ Type, body any) (Filter, error) {
	switch typ {
	case TypeBool:
		return decodeBool(body)
	case TypeExists:
		m, ok := body.(map[string]any)
		field, _ := m["field"].(string)
		if !ok || field == "" {
			return nil, errs.Validationf("exists requires field")
		}
		return &Exists{Field: field}, nil
	}

	field, value, err := single(typ, body)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeTerm:
		return &Term{Field: field, Value: value}, nil
	case TypeMatch:
		return &Match{Field: field, Value: value}, nil
	case TypeRange:
		bounds, ok := value.(map[string]any)
		if !ok {
			return nil, errs.Validationf("range on %s requires an object of bounds", field)
		}
		for key := range bounds {
			switch key {
			case "gt", "gte", "lt", "lte":
			default:
				return nil, errs.Validationf("unknown range bound %q on %s", key, field)
			}
		}
		return &Range{Field: field, Gt: bounds["gt"], Gte: bounds["gte"], Lt: bounds["lt"], Lte: bounds["lte"]}, nil
	}

	s, ok := value.(string)
	if !ok {
		return nil, errs.Validationf("%s on %s requires a string, got %T", typ, field, value)
	}
	switch typ {
	case TypePrefix:
		return &Prefix{Field: field, Value: s}, nil
	case TypeWildcard:
		return &Wildcard{Field: field, Value: s}, nil
	case TypeRegexp:
		return &Regexp{Field: field, Value: s}, nil
	}
	return nil, errs.Validationf("unknown filter type %q", typ)
}

// single 解析 {field: value}
func single(typ Type, body any) (string, any, error) {
	m, ok := body.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, errs.Validationf("%s requires exactly one field", typ)
	}
	for field, value := range m {
		return field, value, nil
	}
	return "", nil, nil
}

func decodeBool(body any) (Filter, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, errs.Validationf("bool requires an object, got %T", body)
	}

	q := &Bool{}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "minimum_should_match" {
			n, ok := m[key].(int)
			if !ok {
				return nil, errs.Validationf("minimum_should_match must be an integer, got %T", m[key])
			}
			q.MinShouldMatch = &n
			continue
		}

		var target *[]Filter
		switch key {
		case "must":
			target = &q.Must
		case "should":
			target = &q.Should
		case "must_not":
			target = &q.MustNot
		case "filter":
			target = &q.Filter
		default:
			return nil, errs.Validationf("unknown bool clause %q", key)
		}

		items, ok := m[key].([]any)
		if !ok {
			items = []any{m[key]}
		}
		for i, item := range items {
			f, err := Decode(item)
			if err != nil {
				return nil, errors.WithMessagef(err, "bool.%s[%d]", key, i)
			}
			*target = append(*target, f)
		}
	}
	return q, nil
}
