package codec

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/hatlonely/recordx/rdb/errs"
)

// FormatRegex 条件字符串中的格式符号，按出现顺序与位置参数对应
var FormatRegex = regexp.MustCompile(`%(s\+|n\+|b|dt|d|n|p|s|t|\*?like\*?)`)

// ParseFormatSymbol 校验参数类型并将其渲染为对应的 SQL 片段
//
//	%b      布尔值      1/0
//	%d      日期        'YYYY-MM-DD'
//	%dt     日期时间    'YYYY-MM-DD HH:MM:SS.mmm'
//	%t      时间        HH:MM:SS.mmm（不加引号）
//	%n      有限数值    数值字面量
//	%s      字符串      转义后加引号
//	%s+     字符串列表  ('a','b')
//	%n+     数值列表    (1,2)
//	%like   LIKE 匹配   LIKE 'text'，*like / like* / *like* 在对应位置加 %
func ParseFormatSymbol(symbol string, value any) (string, error) {
	switch symbol {
	case "b":
		b, ok := value.(bool)
		if !ok {
			return "", errs.Validationf("%%b expects bool, got %T", value)
		}
		return boolLiteral(b), nil

	case "d", "dt", "t":
		t, ok := ToTime(value)
		if !ok {
			return "", errs.Validationf("%%%s expects a date, got %T", symbol, value)
		}
		switch symbol {
		case "d":
			return "'" + t.Format(DateLayout) + "'", nil
		case "dt":
			return "'" + t.Format(DatetimeLayout) + "'", nil
		}
		return t.Format(TimeLayout), nil

	case "n":
		return formatNumber(value)

	case "s":
		s, ok := value.(string)
		if !ok {
			return "", errs.Validationf("%%s expects string, got %T", value)
		}
		return QuoteString(s), nil

	case "s+":
		items, ok := toSlice(value)
		if !ok {
			return "", errs.Validationf("%%s+ expects a list of strings, got %T", value)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return "", errs.Validationf("%%s+ expects a list of strings, got element %T", item)
			}
			parts = append(parts, QuoteString(s))
		}
		return "(" + strings.Join(parts, ",") + ")", nil

	case "n+":
		items, ok := toSlice(value)
		if !ok {
			return "", errs.Validationf("%%n+ expects a list of numbers, got %T", value)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := formatNumber(item)
			if err != nil {
				return "", errs.Validationf("%%n+ expects a list of numbers, got element %v", item)
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, ",") + ")", nil

	case "like", "*like", "like*", "*like*":
		s, ok := value.(string)
		if !ok {
			return "", errs.Validationf("%%%s expects string, got %T", symbol, value)
		}
		var sb strings.Builder
		sb.WriteString(" LIKE '")
		if strings.HasPrefix(symbol, "*") {
			sb.WriteString("%")
		}
		sb.WriteString(EscapeLikeString(s))
		if strings.HasSuffix(symbol, "*") {
			sb.WriteString("%")
		}
		sb.WriteString("'")
		return sb.String(), nil
	}

	return "", errs.Parsef("unrecognized format symbol %%%s", symbol)
}

// FormatCondition 依次用参数替换 format 中的格式符号
func FormatCondition(format string, args ...any) (string, error) {
	var err error
	index := 0
	result := FormatRegex.ReplaceAllStringFunc(format, func(match string) string {
		if err != nil {
			return match
		}
		if index >= len(args) {
			err = errs.Validationf("missing argument for %s at position %d", match, index)
			return match
		}
		var s string
		s, err = ParseFormatSymbol(match[1:], args[index])
		index++
		return s
	})
	if err != nil {
		return "", err
	}
	if index < len(args) {
		return "", errs.Validationf("%d arguments given but only %d format symbols in %q", len(args), index, format)
	}
	return result, nil
}

func formatNumber(value any) (string, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return "", errs.Validationf("%%n expects a number, got nil")
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errs.Validationf("%%n expects a finite number, got %v", f)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", errs.Validationf("%%n expects a number, got %T", value)
}

func toSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
