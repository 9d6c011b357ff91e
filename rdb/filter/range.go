package filter

import (
	"strings"
)

// Range 范围条件，多个边界以 AND 连接，没有边界时恒为真
type Range struct {
	Field string `json:"field"`
	Gt    any    `json:"gt,omitempty"`
	Gte   any    `json:"gte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
}

func (q *Range) Type() Type {
	return TypeRange
}

func (q *Range) Condition() (string, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", err
	}

	var conditions []string
	for _, bound := range []struct {
		op    string
		value any
	}{
		{">", q.Gt},
		{">=", q.Gte},
		{"<", q.Lt},
		{"<=", q.Lte},
	} {
		if bound.value == nil {
			continue
		}
		lit, err := literal(bound.value)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, field+" "+bound.op+" "+lit)
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), nil
}
