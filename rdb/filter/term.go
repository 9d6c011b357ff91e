package filter

import (
	"reflect"
)

// Term 精确匹配，Value 为列表时渲染为 IN，为 nil 时渲染为 IS NULL
type Term struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *Term) Type() Type {
	return TypeTerm
}

func (q *Term) Condition() (string, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", err
	}
	if q.Value == nil {
		return field + " IS NULL", nil
	}
	if isList(q.Value) {
		if reflect.ValueOf(q.Value).Len() == 0 {
			return "1=0", nil
		}
		lit, err := literal(q.Value)
		if err != nil {
			return "", err
		}
		return field + " IN " + lit, nil
	}
	lit, err := literal(q.Value)
	if err != nil {
		return "", err
	}
	return field + " = " + lit, nil
}

func isList(value any) bool {
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// Exists 列不为 NULL
type Exists struct {
	Field string `json:"field"`
}

func (q *Exists) Type() Type {
	return TypeExists
}

func (q *Exists) Condition() (string, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", err
	}
	return field + " IS NOT NULL", nil
}
