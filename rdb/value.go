package rdb

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"time"
)

// ValueState 列值的三种状态
type ValueState int8

const (
	// StateUnset 未赋值，INSERT 时不出现在列清单中
	StateUnset ValueState = iota
	// StateNull SQL NULL
	StateNull
	// StatePresent 有值
	StatePresent
)

func (s ValueState) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateNull:
		return "null"
	case StatePresent:
		return "present"
	}
	return fmt.Sprintf("ValueState(%d)", int8(s))
}

// Value Row 中的列值，零值为 Unset
type Value struct {
	state ValueState
	value any
}

// Unset 未赋值
func Unset() Value {
	return Value{}
}

// Null SQL NULL
func Null() Value {
	return Value{state: StateNull}
}

// ValueOf nil 与空指针得到 Null
func ValueOf(v any) Value {
	if v == nil {
		return Null()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return Null()
	}
	return Value{state: StatePresent, value: v}
}

func (v Value) State() ValueState {
	return v.state
}

func (v Value) IsUnset() bool {
	return v.state == StateUnset
}

func (v Value) IsNull() bool {
	return v.state == StateNull
}

func (v Value) IsPresent() bool {
	return v.state == StatePresent
}

// Interface 返回值，Unset 与 Null 返回 nil
func (v Value) Interface() any {
	return v.value
}

// Equal 状态相同且值相等
//
// time.Time 按时刻比较，*big.Int 按数值比较，整数忽略具体宽度
func (v Value) Equal(o Value) bool {
	if v.state != o.state {
		return false
	}
	if v.state != StatePresent {
		return true
	}
	return equalValues(v.value, o.value)
}

func (v Value) String() string {
	if v.state != StatePresent {
		return v.state.String()
	}
	return fmt.Sprint(v.value)
}

func equalValues(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case *big.Int:
		if y, ok := toBig(b); ok {
			return x.Cmp(y) == 0
		}
		return false
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}

	if _, ok := b.(*big.Int); ok {
		return equalValues(b, a)
	}
	if x, ok := toBig(a); ok {
		if y, ok := toBig(b); ok {
			return x.Cmp(y) == 0
		}
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// toBig 整数类型转换为 *big.Int
func toBig(v any) (*big.Int, bool) {
	if b, ok := v.(*big.Int); ok {
		return b, b != nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}
