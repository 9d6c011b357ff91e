package codec

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/recordx/rdb/errs"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.000"
	DatetimeLayout = "2006-01-02 15:04:05.000"
)

// 驱动以文本返回日期时可能出现的格式
var dateParseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	DateLayout,
}

// Timer 可转换为 time.Time 的领域日期类型
type Timer interface {
	Time() time.Time
}

// ToTime 将 time.Time、*time.Time 或 Timer 转换为本地时区的 time.Time
func ToTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.Local(), true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return v.Local(), true
	case Timer:
		return v.Time().Local(), true
	}
	return time.Time{}, false
}

// ValueToSQL 将 Go 值按目标列类型转换为 SQL 字面量
func ValueToSQL(value any, sqlType SQLType) (string, error) {
	if isNil(value) {
		return "NULL", nil
	}

	if valuer, ok := value.(driver.Valuer); ok {
		if _, isTimer := value.(Timer); !isTimer {
			v, err := valuer.Value()
			if err != nil {
				return "", errs.Validationf("driver.Valuer failed: %v", err)
			}
			return ValueToSQL(v, sqlType)
		}
	}

	switch sqlType {
	case TypeTiny:
		b, ok := value.(bool)
		if !ok {
			return "", errs.Validationf("type mismatch: %s requires bool, got %T", sqlType, value)
		}
		return boolLiteral(b), nil

	case TypeSet:
		switch v := value.(type) {
		case []string:
			return QuoteString(strings.Join(v, ",")), nil
		case string:
			return QuoteString(v), nil
		}
		return "", errs.Validationf("type mismatch: SET requires []string, got %T", value)

	case TypeTime, TypeDate, TypeDatetime, TypeTimestamp:
		if s, ok := value.(string); ok && sqlType == TypeTime {
			return QuoteString(s), nil
		}
		t, ok := ToTime(value)
		if !ok {
			return "", errs.Validationf("type mismatch: %s requires a date, got %T", sqlType, value)
		}
		return "'" + formatDate(t, sqlType) + "'", nil

	case TypeJSON:
		if _, ok := value.(string); !ok {
			if _, ok := value.([]byte); !ok {
				buf, err := json.Marshal(value)
				if err != nil {
					return "", errs.Validationf("json marshal failed: %v", err)
				}
				return QuoteString(string(buf)), nil
			}
		}
	}

	return literal(value)
}

func formatDate(t time.Time, sqlType SQLType) string {
	switch sqlType {
	case TypeTime:
		return t.Format(TimeLayout)
	case TypeDate:
		return t.Format(DateLayout)
	}
	return t.Format(DatetimeLayout)
}

func boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// literal 按值本身的 Go 类型生成字面量
func literal(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return QuoteString(v), nil
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'", nil
	case *big.Int:
		return v.String(), nil
	case time.Time, *time.Time, Timer:
		t, _ := ToTime(v)
		return "'" + t.Format(DatetimeLayout) + "'", nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return boolLiteral(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errs.Validationf("number must be finite, got %v", f)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case reflect.String:
		return QuoteString(rv.String()), nil
	case reflect.Ptr:
		return literal(rv.Elem().Interface())
	}
	return "", errs.Validationf("unsupported value type %T", value)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// SQLToValue 将驱动返回的值按列类型转换为 Go 值
// widen 为 true 时 LONGLONG 转换为 *big.Int
func SQLToValue(value any, sqlType SQLType, widen bool) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch sqlType {
	case TypeTiny:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v == 1, nil
		case []byte:
			return string(v) == "1", nil
		case string:
			return v == "1", nil
		}
		return toInt64(value) == 1, nil

	case TypeDate, TypeDatetime, TypeTimestamp:
		return parseDate(value)

	case TypeLongLong:
		n, err := parseInteger(value)
		if err != nil {
			return nil, err
		}
		if widen {
			return toBigInt(n), nil
		}
		return n, nil

	case TypeJSON:
		var raw []byte
		switch v := value.(type) {
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		default:
			return value, nil
		}
		var result any
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, errs.Validationf("invalid json column value: %v", err)
		}
		return result, nil

	case TypeShort, TypeLong, TypeInt24:
		return parseInteger(value)

	case TypeFloat, TypeDouble:
		if b, ok := value.([]byte); ok {
			f, err := strconv.ParseFloat(string(b), 64)
			if err != nil {
				return nil, errs.Validationf("invalid float column value %q", b)
			}
			return f, nil
		}
	}

	if b, ok := value.([]byte); ok && sqlType.IsText() {
		return string(b), nil
	}
	return value, nil
}

func parseDate(value any) (any, error) {
	var s string
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return value, nil
	}
	if strings.HasPrefix(s, "0000-00-00") {
		return nil, nil
	}
	for _, layout := range dateParseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return nil, errs.Validationf("invalid date column value %q", s)
}

// parseInteger 返回 int64，超出 int64 范围的无符号值返回 uint64
func parseInteger(value any) (any, error) {
	var s string
	switch v := value.(type) {
	case int64, uint64:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(rv.Uint()), nil
		}
		return value, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	return nil, errs.Validationf("invalid integer column value %q", s)
}

func toBigInt(n any) any {
	switch v := n.(type) {
	case int64:
		return big.NewInt(v)
	case uint64:
		return new(big.Int).SetUint64(v)
	}
	return n
}

func toInt64(value any) int64 {
	n, err := parseInteger(value)
	if err != nil {
		return 0
	}
	switch v := n.(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}
