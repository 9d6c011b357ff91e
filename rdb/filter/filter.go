package filter

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
)

// Type 过滤条件类型
type Type string

const (
	TypeBool     Type = "bool"
	TypeTerm     Type = "term"
	TypeMatch    Type = "match"
	TypeRange    Type = "range"
	TypeExists   Type = "exists"
	TypeWildcard Type = "wildcard"
	TypePrefix   Type = "prefix"
	TypeRegexp   Type = "regexp"
)

// Filter 过滤条件节点，渲染为可直接放入 WHERE 的 SQL 片段
type Filter interface {
	Type() Type
	// Condition 值已转义为字面量，结果不再经过格式符号替换
	Condition() (string, error)
}

var plainField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// quoteField a 输出为 `a`，a.b 输出为 `a`.`b`，其他表达式视为非法
func quoteField(field string) (string, error) {
	if !plainField.MatchString(field) {
		return "", errs.Validationf("invalid filter field %q", field)
	}
	table, column, ok := strings.Cut(field, ".")
	if !ok {
		return codec.QuoteIdentifier(field), nil
	}
	return codec.QuoteIdentifier(table) + "." + codec.QuoteIdentifier(column), nil
}

// literal 按值的类型选择格式符号，列表按第一个元素的类型选择 %s+ 或 %n+
func literal(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return codec.ParseFormatSymbol("s", v)
	case bool:
		return codec.ParseFormatSymbol("b", v)
	}
	if _, ok := codec.ToTime(value); ok {
		return codec.ParseFormatSymbol("dt", value)
	}
	if isList(value) {
		rv := reflect.ValueOf(value)
		if rv.Len() == 0 {
			return "", errs.Validationf("empty list in filter")
		}
		if _, ok := rv.Index(0).Interface().(string); ok {
			return codec.ParseFormatSymbol("s+", value)
		}
		return codec.ParseFormatSymbol("n+", value)
	}
	return codec.ParseFormatSymbol("n", value)
}
