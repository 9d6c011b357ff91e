package filter

import (
	"fmt"
	"strings"
)

// Bool 组合条件
//
// Must 与 Filter 以 AND 连接，Should 以 OR 连接，MinShouldMatch 大于 1 时改为计数满足的条件数
type Bool struct {
	Must           []Filter `json:"must,omitempty"`
	Should         []Filter `json:"should,omitempty"`
	MustNot        []Filter `json:"must_not,omitempty"`
	Filter         []Filter `json:"filter,omitempty"`
	MinShouldMatch *int     `json:"minimum_should_match,omitempty"`
}

func (q *Bool) Type() Type {
	return TypeBool
}

func conditionsOf(filters []Filter) ([]string, error) {
	conditions := make([]string, 0, len(filters))
	for _, f := range filters {
		condition, err := f.Condition()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

func (q *Bool) Condition() (string, error) {
	var conditions []string

	for _, group := range [][]Filter{q.Must, q.Filter} {
		if len(group) == 0 {
			continue
		}
		parts, err := conditionsOf(group)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, "("+strings.Join(parts, " AND ")+")")
	}

	if len(q.Should) > 0 {
		parts, err := conditionsOf(q.Should)
		if err != nil {
			return "", err
		}
		if q.MinShouldMatch != nil && *q.MinShouldMatch != 1 {
			cases := make([]string, len(parts))
			for i, part := range parts {
				cases[i] = fmt.Sprintf("CASE WHEN (%s) THEN 1 ELSE 0 END", part)
			}
			conditions = append(conditions, fmt.Sprintf("(%s) >= %d", strings.Join(cases, " + "), *q.MinShouldMatch))
		} else {
			conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
		}
	}

	if len(q.MustNot) > 0 {
		parts, err := conditionsOf(q.MustNot)
		if err != nil {
			return "", err
		}
		for i, part := range parts {
			parts[i] = "NOT (" + part + ")"
		}
		conditions = append(conditions, "("+strings.Join(parts, " AND ")+")")
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), nil
}
