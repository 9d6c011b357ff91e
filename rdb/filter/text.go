package filter

import (
	"fmt"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
)

// Match 包含匹配，渲染为 LIKE '%value%'
type Match struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *Match) Type() Type {
	return TypeMatch
}

func (q *Match) Condition() (string, error) {
	return like(q.Field, "*like*", fmt.Sprint(q.Value))
}

// Prefix 前缀匹配
type Prefix struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *Prefix) Type() Type {
	return TypePrefix
}

func (q *Prefix) Condition() (string, error) {
	return like(q.Field, "like*", q.Value)
}

func like(field, symbol, value string) (string, error) {
	quoted, err := quoteField(field)
	if err != nil {
		return "", err
	}
	lit, err := codec.ParseFormatSymbol(symbol, value)
	if err != nil {
		return "", err
	}
	return quoted + lit, nil
}

// Wildcard 通配符匹配，* 匹配任意数量字符，? 匹配单个字符，其他字符按字面匹配
type Wildcard struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *Wildcard) Type() Type {
	return TypeWildcard
}

var wildcardReplacer = strings.NewReplacer("*", "%", "?", "_")

func (q *Wildcard) Condition() (string, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", err
	}
	pattern := wildcardReplacer.Replace(codec.EscapeLikeString(q.Value))
	return field + " LIKE '" + pattern + "'", nil
}

// Regexp 正则匹配，使用 MySQL 的 REGEXP
type Regexp struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *Regexp) Type() Type {
	return TypeRegexp
}

func (q *Regexp) Condition() (string, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", err
	}
	if q.Value == "" {
		return "", errs.Validationf("empty regexp for %s", q.Field)
	}
	return field + " REGEXP " + codec.QuoteString(q.Value), nil
}
