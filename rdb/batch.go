package rdb

import (
	"context"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/schema"
	"github.com/pkg/errors"
)

// Batch 缓存多行记录，一次 INSERT 写入
type Batch struct {
	query      *Query
	definition *schema.TableDefinition
	columns    []*schema.ColumnDefinition
	records    []Record
}

// Batch 创建绑定到表和列的 Batch，列按表定义的顺序输出
func (q *Query) Batch(ctx context.Context, database, table string, columns ...string) (*Batch, error) {
	def, err := q.GetDefinition(ctx, database, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Validationf("batch for %s requires at least one column", def.Path)
	}

	wanted := make(map[string]bool, len(columns))
	for _, name := range columns {
		if _, ok := def.Column(name); !ok {
			return nil, errs.Schemaf("unrecognized batch column %q in %s", name, def.Path)
		}
		wanted[name] = true
	}

	b := &Batch{query: q, definition: def}
	for _, column := range def.Columns {
		if wanted[column.Name] {
			b.columns = append(b.columns, column)
		}
	}
	return b, nil
}

// Add 追加一条记录，返回其下标。缺少的列插入 NULL
func (b *Batch) Add(record Record) (int, error) {
	for name := range record {
		if !b.hasColumn(name) {
			return -1, errs.Schemaf("column %q is not part of the batch for %s", name, b.definition.Path)
		}
	}
	b.records = append(b.records, record)
	return len(b.records) - 1, nil
}

func (b *Batch) hasColumn(name string) bool {
	for _, column := range b.columns {
		if column.Name == name {
			return true
		}
	}
	return false
}

// Delete 按下标删除，之后的记录下标前移
func (b *Batch) Delete(index int) error {
	if index < 0 || index >= len(b.records) {
		return errs.Validationf("batch index %d out of range [0, %d)", index, len(b.records))
	}
	b.records = append(b.records[:index], b.records[index+1:]...)
	return nil
}

// Find 返回第一条满足 fn 的记录及其下标，没有时返回 nil, -1
func (b *Batch) Find(fn func(record Record) bool) (Record, int) {
	for i, record := range b.records {
		if fn(record) {
			return record, i
		}
	}
	return nil, -1
}

func (b *Batch) Clear() {
	b.records = nil
}

func (b *Batch) Len() int {
	return len(b.records)
}

func (b *Batch) Records() []Record {
	records := make([]Record, len(b.records))
	copy(records, b.records)
	return records
}

// Columns 按表定义顺序返回批量写入的列
func (b *Batch) Columns() []string {
	names := make([]string, len(b.columns))
	for i, column := range b.columns {
		names[i] = column.Name
	}
	return names
}

// DuplicateFunc 生成 ON DUPLICATE KEY UPDATE 子句，rows 为已渲染的字面量，columns 为已转义的列名
type DuplicateFunc func(rows [][]string, columns []string) string

type insertOptions struct {
	ignore    bool
	duplicate DuplicateFunc
	logErrors bool
}

// InsertOption Insert 选项
type InsertOption func(*insertOptions)

// WithInsertIgnore 使用 INSERT IGNORE，与 WithDuplicate 互斥
func WithInsertIgnore() InsertOption {
	return func(o *insertOptions) {
		o.ignore = true
	}
}

// WithDuplicate 追加 fn 生成的 ON DUPLICATE KEY 子句
func WithDuplicate(fn DuplicateFunc) InsertOption {
	return func(o *insertOptions) {
		o.duplicate = fn
	}
}

// WithLogErrors 执行失败时只记录日志，Insert 返回 nil
func WithLogErrors() InsertOption {
	return func(o *insertOptions) {
		o.logErrors = true
	}
}

// Insert 将缓存的记录写入一条多行 INSERT
//
// 缓存为空时不执行 SQL。语句发出后无论成功与否都会清空缓存
func (b *Batch) Insert(ctx context.Context, opts ...InsertOption) error {
	if len(b.records) == 0 {
		return nil
	}

	options := &insertOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.ignore && options.duplicate != nil {
		return errs.Validationf("cannot set ignore and duplicate at the same time")
	}

	columns := make([]string, len(b.columns))
	for i, column := range b.columns {
		columns[i] = codec.QuoteIdentifier(column.Name)
	}

	rows := make([][]string, len(b.records))
	values := make([]string, len(b.records))
	for i, record := range b.records {
		rows[i] = make([]string, len(b.columns))
		for j, column := range b.columns {
			lit, err := codec.ValueToSQL(record[column.Name], column.Type)
			if err != nil {
				return errors.WithMessagef(err, "record %d column %s", i, column.Name)
			}
			rows[i][j] = lit
		}
		values[i] = "(" + strings.Join(rows[i], ", ") + ")"
	}

	verb := "INSERT INTO "
	if options.ignore {
		verb = "INSERT IGNORE INTO "
	}
	sql := []string{
		verb + b.definition.EscapedPath + " (" + strings.Join(columns, ", ") + ")",
		"VALUES " + strings.Join(values, ", "),
	}
	if options.duplicate != nil {
		if clause := options.duplicate(rows, columns); clause != "" {
			sql = append(sql, clause)
		}
	}

	count := len(b.records)
	_, err := b.query.runner.Send(ctx, sql...)
	b.Clear()
	if err != nil {
		if options.logErrors {
			b.query.logger.ErrorContext(ctx, "batch insert failed", "table", b.definition.Path, "records", count, "error", err)
			return nil
		}
		return errors.WithMessagef(err, "batch insert into %s", b.definition.Path)
	}
	return nil
}
