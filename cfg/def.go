package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// SetDefaults 为结构体设置默认值，基于 def tag
//
// 只在字段为零值时生效。为空的指针字段保持为空，这样调用方可以用 nil 表示"未配置"
func SetDefaults(object any) error {
	if object == nil {
		return fmt.Errorf("object cannot be nil")
	}

	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("object must be a pointer")
	}
	if rv.IsNil() {
		return fmt.Errorf("object cannot be nil")
	}

	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return setDefaults(rv.Elem())
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		switch fieldValue.Kind() {
		case reflect.Struct, reflect.Ptr:
			if err := setDefaults(fieldValue); err != nil {
				return fmt.Errorf("failed to set defaults for field %s: %v", field.Name, err)
			}
		case reflect.Slice:
			// 结构体切片逐个元素处理
			for j := 0; j < fieldValue.Len(); j++ {
				if err := setDefaults(fieldValue.Index(j)); err != nil {
					return fmt.Errorf("failed to set defaults for field %s[%d]: %v", field.Name, j, err)
				}
			}
		}

		defTag, ok := field.Tag.Lookup("def")
		if !ok || !fieldValue.IsZero() || fieldValue.Kind() == reflect.Ptr {
			continue
		}
		if err := setScalar(fieldValue, defTag); err != nil {
			return fmt.Errorf("failed to set default value for field %s: %v", field.Name, err)
		}
	}

	return nil
}

// setScalar 将字符串解析为字段类型，def tag、环境变量与配置文件中的字符串值共用
func setScalar(rv reflect.Value, value string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(value)
		return nil

	case reflect.Bool:
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %v", value, err)
		}
		rv.SetBool(val)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			return setDuration(rv, value)
		}
		val, err := strconv.ParseInt(value, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q: %v", value, err)
		}
		rv.SetInt(val)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(value, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q: %v", value, err)
		}
		rv.SetUint(val)
		return nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(value, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q: %v", value, err)
		}
		rv.SetFloat(val)
		return nil

	case reflect.Slice:
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setScalar(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return fmt.Errorf("failed to set slice element %d: %v", i, err)
			}
		}
		rv.Set(slice)
		return nil
	}

	return fmt.Errorf("unsupported type %v", rv.Type())
}

// setDuration 支持 "1.5s" 形式，纯数字按纳秒处理
func setDuration(rv reflect.Value, value string) error {
	duration, err := time.ParseDuration(value)
	if err != nil {
		n, numErr := strconv.ParseInt(value, 10, 64)
		if numErr != nil {
			return fmt.Errorf("invalid duration value %q: %v", value, err)
		}
		duration = time.Duration(n)
	}
	rv.SetInt(int64(duration))
	return nil
}
