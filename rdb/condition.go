package rdb

import (
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/filter"
)

// conditions WHERE / HAVING 片段的累积器，由 Recordset、RecordUpdater、RecordDeleter 共用
//
// 渲染失败只记录第一个错误，在 ToSQL / Fetch 时返回
type conditions struct {
	parts []string
	err   error
}

func (c *conditions) add(format string, args []any) {
	if c.err != nil || format == "" {
		return
	}
	part, err := codec.FormatCondition(format, args...)
	if err != nil {
		c.err = err
		return
	}
	c.parts = append(c.parts, part)
}

func (c *conditions) addRaw(raw string) {
	if raw == "" {
		return
	}
	c.parts = append(c.parts, raw)
}

func (c *conditions) addFilter(f filter.Filter) {
	if c.err != nil || f == nil {
		return
	}
	part, err := f.Condition()
	if err != nil {
		c.err = err
		return
	}
	c.parts = append(c.parts, part)
}

func (c *conditions) empty() bool {
	return len(c.parts) == 0
}

// String 返回 (a) AND (b)，没有条件时返回空字符串
func (c *conditions) String() string {
	if len(c.parts) == 0 {
		return ""
	}
	return "(" + strings.Join(c.parts, ") AND (") + ")"
}

// Where 追加一个 WHERE 条件，format 中的格式符号依次由 args 替换
func (r *Recordset) Where(format string, args ...any) *Recordset {
	r.where.add(format, args)
	return r
}

// WhereIf cond 为 false 时跳过
func (r *Recordset) WhereIf(cond bool, format string, args ...any) *Recordset {
	if cond {
		r.where.add(format, args)
	}
	return r
}

// WhereRaw 原样追加，不做格式化
func (r *Recordset) WhereRaw(raw string) *Recordset {
	r.where.addRaw(raw)
	return r
}

func (r *Recordset) WhereRawIf(cond bool, raw string) *Recordset {
	if cond {
		r.where.addRaw(raw)
	}
	return r
}

// WhereFilter 追加结构化的过滤条件，见 filter.Parse
func (r *Recordset) WhereFilter(f filter.Filter) *Recordset {
	r.where.addFilter(f)
	return r
}

// Having 追加一个 HAVING 条件
func (r *Recordset) Having(format string, args ...any) *Recordset {
	r.having.add(format, args)
	return r
}

func (r *Recordset) HavingIf(cond bool, format string, args ...any) *Recordset {
	if cond {
		r.having.add(format, args)
	}
	return r
}

func (r *Recordset) HavingRaw(raw string) *Recordset {
	r.having.addRaw(raw)
	return r
}

func (r *Recordset) HavingRawIf(cond bool, raw string) *Recordset {
	if cond {
		r.having.addRaw(raw)
	}
	return r
}

// ToCondition 返回已累积的 WHERE 条件
func (r *Recordset) ToCondition() (string, error) {
	if r.where.err != nil {
		return "", r.where.err
	}
	return r.where.String(), nil
}

// Where 追加一个 WHERE 条件
func (u *RecordUpdater) Where(format string, args ...any) *RecordUpdater {
	u.where.add(format, args)
	return u
}

func (u *RecordUpdater) WhereIf(cond bool, format string, args ...any) *RecordUpdater {
	if cond {
		u.where.add(format, args)
	}
	return u
}

func (u *RecordUpdater) WhereRaw(raw string) *RecordUpdater {
	u.where.addRaw(raw)
	return u
}

func (u *RecordUpdater) WhereRawIf(cond bool, raw string) *RecordUpdater {
	if cond {
		u.where.addRaw(raw)
	}
	return u
}

func (u *RecordUpdater) WhereFilter(f filter.Filter) *RecordUpdater {
	u.where.addFilter(f)
	return u
}

// Where 追加一个 WHERE 条件
func (d *RecordDeleter) Where(format string, args ...any) *RecordDeleter {
	d.where.add(format, args)
	return d
}

func (d *RecordDeleter) WhereIf(cond bool, format string, args ...any) *RecordDeleter {
	if cond {
		d.where.add(format, args)
	}
	return d
}

func (d *RecordDeleter) WhereRaw(raw string) *RecordDeleter {
	d.where.addRaw(raw)
	return d
}

func (d *RecordDeleter) WhereRawIf(cond bool, raw string) *RecordDeleter {
	if cond {
		d.where.addRaw(raw)
	}
	return d
}

func (d *RecordDeleter) WhereFilter(f filter.Filter) *RecordDeleter {
	d.where.addFilter(f)
	return d
}
