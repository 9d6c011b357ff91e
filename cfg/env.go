package cfg

import (
	"fmt"
	"os"
	"reflect"
)

// LoadEnv 按 env tag 从环境变量覆盖字段，未设置的环境变量不影响原值
func LoadEnv(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer")
	}
	return loadEnv(rv.Elem(), os.LookupEnv)
}

func loadEnv(rv reflect.Value, lookup func(string) (string, bool)) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return loadEnv(rv.Elem(), lookup)
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

		key := field.Tag.Get("env")
		if key == "" {
			if err := loadEnv(fieldValue, lookup); err != nil {
				return err
			}
			continue
		}

		value, ok := lookup(key)
		if !ok {
			continue
		}
		if fieldValue.Kind() == reflect.Ptr {
			if fieldValue.IsNil() {
				fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
			}
			fieldValue = fieldValue.Elem()
		}
		if err := setScalar(fieldValue, value); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}

	return nil
}
