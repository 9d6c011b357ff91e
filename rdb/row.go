package rdb

import (
	"context"
	"sort"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/schema"
	"github.com/pkg/errors"
)

// Row 单行读写，记录加载时的值并在保存时只更新变化的列
type Row struct {
	query      *Query
	definition *schema.TableDefinition
	pkColumn   *schema.ColumnDefinition

	primaryKey     Value
	loaded         bool
	values         map[string]Value
	originalValues map[string]Value
}

// Row 创建绑定到一张表的 Row，表定义在此时解析
func (q *Query) Row(ctx context.Context, database, table string) (*Row, error) {
	def, err := q.GetDefinition(ctx, database, table)
	if err != nil {
		return nil, err
	}
	r := &Row{
		query:      q,
		definition: def,
		pkColumn:   def.PrimaryKey(),
	}
	r.Reset()
	return r, nil
}

// Reset 所有列恢复为 Unset，清除主键与加载状态
func (r *Row) Reset() {
	r.values = make(map[string]Value, len(r.definition.Columns))
	r.originalValues = make(map[string]Value, len(r.definition.Columns))
	for _, column := range r.definition.Columns {
		r.values[column.Name] = Unset()
		r.originalValues[column.Name] = Unset()
	}
	r.primaryKey = Unset()
	r.loaded = false
}

func (r *Row) requirePrimaryKeyColumn() error {
	if r.pkColumn == nil {
		return errs.Statef("table %s has no primary key", r.definition.Path)
	}
	return nil
}

func (r *Row) pkCondition(pk any) (string, error) {
	lit, err := codec.ValueToSQL(pk, r.pkColumn.Type)
	if err != nil {
		return "", errors.WithMessagef(err, "primary key %s", r.pkColumn.Name)
	}
	return "WHERE " + codec.QuoteIdentifier(r.pkColumn.Name) + " = " + lit, nil
}

// Load 按主键加载
//
// 记录不存在时，ignoreMissing 为 true 则只设置主键列，否则返回 ErrNotFound
func (r *Row) Load(ctx context.Context, pk any, ignoreMissing bool) error {
	if err := r.requirePrimaryKeyColumn(); err != nil {
		return err
	}
	key := ValueOf(pk)
	if !key.IsPresent() {
		return errs.Validationf("primary key must not be nil")
	}
	if !r.primaryKey.IsUnset() && !r.primaryKey.Equal(key) {
		r.Reset()
	}

	where, err := r.pkCondition(pk)
	if err != nil {
		return err
	}
	rs, err := r.query.runner.Raw(ctx, "SELECT * FROM "+r.definition.EscapedPath, where)
	if err != nil {
		return err
	}

	if rs.Len() == 0 {
		if !ignoreMissing {
			return errs.NotFoundf("%s with %s = %v", r.definition.Path, r.pkColumn.Name, pk)
		}
		r.primaryKey = key
		r.values[r.pkColumn.Name] = key
		return nil
	}

	row := rs.Rows[0]
	for _, column := range r.definition.Columns {
		v, err := codec.SQLToValue(row[column.Name], column.Type, false)
		if err != nil {
			return errors.WithMessagef(err, "column %s", column.Name)
		}
		r.values[column.Name] = ValueOf(v)
		r.originalValues[column.Name] = ValueOf(v)
	}
	r.primaryKey = r.values[r.pkColumn.Name]
	r.loaded = true
	return nil
}

type saveOptions struct {
	ignore bool
}

// SaveOption Save 选项
type SaveOption func(*saveOptions)

// WithIgnore 插入时使用 INSERT IGNORE
func WithIgnore() SaveOption {
	return func(o *saveOptions) {
		o.ignore = true
	}
}

// Save 已加载时更新变化的列，否则插入
//
// 没有变化时返回 false 且不执行任何 SQL
func (r *Row) Save(ctx context.Context, opts ...SaveOption) (bool, error) {
	options := &saveOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if r.primaryKey.IsPresent() && r.loaded {
		return r.update(ctx)
	}
	return r.insert(ctx, options)
}

func (r *Row) literal(column *schema.ColumnDefinition, v Value) (string, error) {
	if !v.IsPresent() {
		return "NULL", nil
	}
	lit, err := codec.ValueToSQL(v.Interface(), column.Type)
	if err != nil {
		return "", errors.WithMessagef(err, "column %s", column.Name)
	}
	return lit, nil
}

func (r *Row) update(ctx context.Context) (bool, error) {
	var changed []*schema.ColumnDefinition
	var sets []string
	for _, column := range r.definition.Columns {
		v := r.values[column.Name]
		if v.IsUnset() || v.Equal(r.originalValues[column.Name]) {
			continue
		}
		lit, err := r.literal(column, v)
		if err != nil {
			return false, err
		}
		changed = append(changed, column)
		sets = append(sets, codec.QuoteIdentifier(column.Name)+" = "+lit)
	}
	if len(changed) == 0 {
		return false, nil
	}

	where, err := r.pkCondition(r.primaryKey.Interface())
	if err != nil {
		return false, err
	}
	if _, err := r.query.runner.Send(ctx, "UPDATE "+r.definition.EscapedPath, "SET "+strings.Join(sets, ", "), where); err != nil {
		return false, err
	}

	for _, column := range changed {
		r.originalValues[column.Name] = r.values[column.Name]
	}
	if v := r.values[r.pkColumn.Name]; v.IsPresent() {
		r.primaryKey = v
	}
	return true, nil
}

func (r *Row) insert(ctx context.Context, options *saveOptions) (bool, error) {
	var columns, literals []string
	for _, column := range r.definition.Columns {
		v := r.values[column.Name]
		if v.IsUnset() {
			continue
		}
		lit, err := r.literal(column, v)
		if err != nil {
			return false, err
		}
		columns = append(columns, codec.QuoteIdentifier(column.Name))
		literals = append(literals, lit)
	}
	if len(columns) == 0 {
		return false, errs.Statef("no values to insert into %s", r.definition.Path)
	}

	verb := "INSERT INTO "
	if options.ignore {
		verb = "INSERT IGNORE INTO "
	}
	result, err := r.query.runner.Send(ctx,
		verb+r.definition.EscapedPath+" ("+strings.Join(columns, ", ")+")",
		"VALUES ("+strings.Join(literals, ", ")+")",
	)
	if err != nil {
		return false, err
	}

	if r.pkColumn == nil {
		return true, nil
	}
	var pk any
	if v := r.values[r.pkColumn.Name]; v.IsPresent() {
		pk = v.Interface()
	} else if result.LastInsertID != 0 {
		pk = result.LastInsertID
	}
	if pk == nil {
		return true, nil
	}

	r.primaryKey = ValueOf(pk)
	if err := r.Load(ctx, pk, false); err != nil {
		return true, errors.WithMessage(err, "reload after insert failed")
	}
	return true, nil
}

// Delete 按主键删除，之后 Row 处于未加载状态
func (r *Row) Delete(ctx context.Context) error {
	if err := r.requirePrimaryKeyColumn(); err != nil {
		return err
	}
	if !r.primaryKey.IsPresent() {
		return errs.Statef("cannot delete a row without primary key")
	}
	where, err := r.pkCondition(r.primaryKey.Interface())
	if err != nil {
		return err
	}
	if _, err := r.query.runner.Send(ctx, "DELETE FROM "+r.definition.EscapedPath, where); err != nil {
		return err
	}
	r.loaded = false
	return nil
}

func (r *Row) column(name string) (*schema.ColumnDefinition, error) {
	column, ok := r.definition.Column(name)
	if !ok {
		return nil, errs.Schemaf("column %q does not exist in %s", name, r.definition.Path)
	}
	return column, nil
}

// Get 返回列值，Unset 与 Null 都返回 nil，需要区分时使用 Value
func (r *Row) Get(name string) (any, error) {
	v, err := r.Value(name)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (r *Row) Value(name string) (Value, error) {
	if _, err := r.column(name); err != nil {
		return Value{}, err
	}
	return r.values[name], nil
}

// Set 设置列值，nil 表示 NULL
func (r *Row) Set(name string, value any) error {
	if _, err := r.column(name); err != nil {
		return err
	}
	r.values[name] = ValueOf(value)
	return nil
}

func (r *Row) SetNull(name string) error {
	return r.Set(name, nil)
}

// SetValues 批量设置，任一列不存在时不做任何修改
func (r *Row) SetValues(values Record) error {
	names := make([]string, 0, len(values))
	for name := range values {
		if _, err := r.column(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.values[name] = ValueOf(values[name])
	}
	return nil
}

// Has 表中是否存在该列
func (r *Row) Has(name string) bool {
	_, ok := r.definition.Column(name)
	return ok
}

func (r *Row) Loaded() bool {
	return r.loaded
}

// PrimaryKey 当前主键值，没有时返回 nil
func (r *Row) PrimaryKey() any {
	return r.primaryKey.Interface()
}

func (r *Row) Definition() *schema.TableDefinition {
	return r.definition
}

// Values 已赋值的列，Null 对应 nil
func (r *Row) Values() Record {
	record := make(Record, len(r.values))
	for name, v := range r.values {
		if !v.IsUnset() {
			record[name] = v.Interface()
		}
	}
	return record
}

// Scan 将已赋值的列写入结构体
func (r *Row) Scan(dest any) error {
	return r.Values().Scan(dest)
}
