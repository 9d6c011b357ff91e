package errs

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

var (
	// ErrSchema 引用了不存在的表或列
	ErrSchema = errors.New("schema error")
	// ErrValidation 值类型不匹配或参数非法
	ErrValidation = errors.New("validation error")
	// ErrState 构造器状态不完整，例如缺少 FROM 或 SET
	ErrState = errors.New("state error")
	// ErrNotFound 按主键加载时记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrParse 无法识别的格式符号
	ErrParse = errors.New("parse error")
	// ErrDriver 底层 SQL 执行或连接失败
	ErrDriver = errors.New("driver error")
	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")
)

const mysqlDuplicateEntry = 1062

// Schemaf 构造 ErrSchema
func Schemaf(format string, args ...any) error {
	return errors.WithMessagef(ErrSchema, format, args...)
}

// Validationf 构造 ErrValidation
func Validationf(format string, args ...any) error {
	return errors.WithMessagef(ErrValidation, format, args...)
}

// Statef 构造 ErrState
func Statef(format string, args ...any) error {
	return errors.WithMessagef(ErrState, format, args...)
}

// NotFoundf 构造 ErrNotFound
func NotFoundf(format string, args ...any) error {
	return errors.WithMessagef(ErrNotFound, format, args...)
}

// Parsef 构造 ErrParse
func Parsef(format string, args ...any) error {
	return errors.WithMessagef(ErrParse, format, args...)
}

// DriverError 包装驱动返回的错误，并保留触发错误的 SQL
type DriverError struct {
	SQL string
	Err error
}

// NewDriverError 包装驱动错误，nil 原样返回
func NewDriverError(sql string, err error) error {
	if err == nil {
		return nil
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{SQL: sql, Err: err}
}

func (e *DriverError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("driver error: %v", e.Err)
	}
	return fmt.Sprintf("driver error: %v [sql: %s]", e.Err, e.SQL)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

func (e *DriverError) Is(target error) bool {
	switch target {
	case ErrDriver:
		return true
	case ErrDuplicateKey:
		var me *mysql.MySQLError
		return errors.As(e.Err, &me) && me.Number == mysqlDuplicateEntry
	}
	return false
}
