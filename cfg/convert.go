package cfg

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Convert 将解码后的通用数据（map/slice/标量）写入目标结构体
//
// 字段名取 cfg tag，没有 tag 时使用字段名，比较时忽略大小写。源数据中不存在的字段保持原值
func Convert(src any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer")
	}
	return convertValue(src, rv.Elem())
}

func convertValue(src any, dst reflect.Value) error {
	srcValue := reflect.ValueOf(src)
	if !srcValue.IsValid() {
		return nil
	}
	for srcValue.Kind() == reflect.Ptr || srcValue.Kind() == reflect.Interface {
		if srcValue.IsNil() {
			return nil
		}
		srcValue = srcValue.Elem()
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(srcValue.Interface(), dst.Elem())
	}

	switch dst.Type() {
	case durationType:
		return convertToDuration(srcValue, dst)
	case timeType:
		if t, ok := srcValue.Interface().(time.Time); ok {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		return convertToTime(srcValue, dst)
	}

	if srcValue.Type().AssignableTo(dst.Type()) {
		dst.Set(srcValue)
		return nil
	}

	switch dst.Kind() {
	case reflect.Map:
		return convertToMap(srcValue, dst)
	case reflect.Slice:
		if srcValue.Kind() == reflect.String {
			return setScalar(dst, srcValue.String())
		}
		return convertToSlice(srcValue, dst)
	case reflect.Struct:
		return convertToStruct(srcValue, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(srcValue)
			return nil
		}
	}

	if srcValue.Kind() == reflect.String {
		return setScalar(dst, srcValue.String())
	}
	if isNumber(srcValue.Kind()) && isNumber(dst.Kind()) {
		dst.Set(srcValue.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertToDuration 字符串按 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertToDuration(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		return setDuration(dst, src.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(src.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(src.Uint()))
		return nil
	case reflect.Float32, reflect.Float64:
		dst.SetInt(int64(src.Float() * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("cannot convert %v to time.Duration", src.Type())
}

func convertToTime(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, src.String(), time.Local); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("failed to parse time %q", src.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(src.Int(), 0)))
		return nil
	}
	return fmt.Errorf("cannot convert %v to time.Time", src.Type())
}

func convertToMap(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	keyType := dst.Type().Key()
	for _, key := range src.MapKeys() {
		dstValue := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), dstValue); err != nil {
			return fmt.Errorf("key %v: %w", key.Interface(), err)
		}

		dstKey := reflect.New(keyType).Elem()
		if err := convertValue(key.Interface(), dstKey); err != nil {
			return fmt.Errorf("cannot convert key %v to %v", key.Interface(), keyType)
		}
		dst.SetMapIndex(dstKey, dstValue)
	}

	return nil
}

func convertToSlice(src, dst reflect.Value) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return fmt.Errorf("source is not a slice or array")
	}

	length := src.Len()
	slice := reflect.MakeSlice(dst.Type(), length, length)
	for i := 0; i < length; i++ {
		if err := convertValue(src.Index(i).Interface(), slice.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(slice)

	return nil
}

func convertToStruct(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}

	values := make(map[string]reflect.Value, src.Len())
	for _, key := range src.MapKeys() {
		values[strings.ToLower(fmt.Sprint(key.Interface()))] = src.MapIndex(key)
	}

	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		name := fieldKey(field)
		if name == "-" {
			continue
		}
		srcFieldValue, ok := values[strings.ToLower(name)]
		if !ok {
			continue
		}
		if err := convertValue(srcFieldValue.Interface(), fieldValue); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}

	return nil
}

func fieldKey(field reflect.StructField) string {
	if tag := field.Tag.Get("cfg"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return field.Name
}
