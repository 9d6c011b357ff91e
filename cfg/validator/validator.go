package validator

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct 使用 validate tag 校验结构体
//
// nil、空指针与非结构体直接通过，多级指针解引用到结构体后校验
func ValidateStruct(object any) error {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	return instance().Struct(rv.Interface())
}
