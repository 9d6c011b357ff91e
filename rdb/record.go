package rdb

import (
	"math/big"
	"reflect"
	"strings"

	"github.com/hatlonely/recordx/rdb/errs"
)

// Record 一行结果，列名到值
type Record map[string]any

// Scan 将记录写入 dest 指向的结构体
//
// 字段名依次取 rdb 标签、json 标签、字段名。引用折叠得到的 []Record 可写入结构体切片
func (r Record) Scan(dest any) error {
	return mapToStruct(r, dest)
}

// Clone 浅拷贝
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// RecordOf 将结构体转换为 Record，map 原样转换
//
// 标签带 omitempty 的零值字段被跳过，适合作为 Row.SetValues 与 Batch.Add 的参数
func RecordOf(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	}
	return structToMap(v)
}

// fieldName 返回字段对应的列名与标签选项，标签为 "-" 时 ok 为 false
func fieldName(field reflect.StructField) (name string, opts string, ok bool) {
	for _, key := range []string{"rdb", "json"} {
		tag := field.Tag.Get(key)
		if tag == "-" {
			return "", "", false
		}
		if tag == "" {
			continue
		}
		name, opts, _ = strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		return name, opts, true
	}
	return field.Name, "", true
}

func structToMap(v any) Record {
	result := Record{}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return result
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, opts, ok := fieldName(field)
		if !ok {
			continue
		}
		fv := rv.Field(i)
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		result[name] = fv.Interface()
	}
	return result
}

func mapToStruct(data map[string]any, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errs.Validationf("dest must be a pointer to struct, got %T", dest)
	}
	return fillStruct(data, rv.Elem())
}

func fillStruct(data map[string]any, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, ok := fieldName(field)
		if !ok {
			continue
		}

		value, exists := data[name]
		if !exists || value == nil {
			continue
		}
		if err := setFieldValue(rv.Field(i), value); err != nil {
			return errs.Validationf("field %s: %v", name, err)
		}
	}
	return nil
}

func setFieldValue(fieldValue reflect.Value, value any) error {
	valueType := reflect.TypeOf(value)
	fieldType := fieldValue.Type()

	if valueType.AssignableTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value))
		return nil
	}

	switch v := value.(type) {
	case *big.Int:
		switch fieldType.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if !v.IsInt64() {
				return errs.Validationf("%s overflows %v", v, fieldType)
			}
			fieldValue.SetInt(v.Int64())
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if !v.IsUint64() {
				return errs.Validationf("%s overflows %v", v, fieldType)
			}
			fieldValue.SetUint(v.Uint64())
			return nil
		case reflect.String:
			fieldValue.SetString(v.String())
			return nil
		}
	case []byte:
		if fieldType.Kind() == reflect.String {
			fieldValue.SetString(string(v))
			return nil
		}
	case map[string]any:
		return setNested(fieldValue, v)
	case Record:
		return setNested(fieldValue, v)
	case []Record:
		if fieldType.Kind() != reflect.Slice {
			break
		}
		slice := reflect.MakeSlice(fieldType, len(v), len(v))
		for i, item := range v {
			if err := setNested(slice.Index(i), item); err != nil {
				return err
			}
		}
		fieldValue.Set(slice)
		return nil
	}

	if fieldType.Kind() == reflect.Ptr {
		elem := reflect.New(fieldType.Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(elem)
		return nil
	}

	// 整数转字符串在 Go 中得到的是字符，不做这种转换
	if fieldType.Kind() == reflect.String && valueType.Kind() != reflect.String {
		return errs.Validationf("cannot convert %v to %v", valueType, fieldType)
	}
	if valueType.ConvertibleTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value).Convert(fieldType))
		return nil
	}

	return errs.Validationf("cannot convert %v to %v", valueType, fieldType)
}

func setNested(fieldValue reflect.Value, data map[string]any) error {
	switch {
	case fieldValue.Kind() == reflect.Struct:
		return fillStruct(data, fieldValue)
	case fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct:
		elem := reflect.New(fieldValue.Type().Elem())
		if err := fillStruct(data, elem.Elem()); err != nil {
			return err
		}
		fieldValue.Set(elem)
		return nil
	case fieldValue.Kind() == reflect.Map && fieldValue.Type().Key().Kind() == reflect.String:
		m := reflect.MakeMapWithSize(fieldValue.Type(), len(data))
		for k, v := range data {
			if v == nil {
				continue
			}
			item := reflect.New(fieldValue.Type().Elem()).Elem()
			if err := setFieldValue(item, v); err != nil {
				return err
			}
			m.SetMapIndex(reflect.ValueOf(k).Convert(fieldValue.Type().Key()), item)
		}
		fieldValue.Set(m)
		return nil
	}
	return errs.Validationf("cannot convert record to %v", fieldValue.Type())
}
