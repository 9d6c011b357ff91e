package rdb

import (
	"context"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/executor"
	"github.com/pkg/errors"
)

// Priority UPDATE 优先级
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
)

// Field 原样输出的 SQL 表达式，用于 SET `Count` = Count + 1 这类引用自身列的赋值
type Field string

// UseField 将 raw 标记为 SQL 表达式，不做转义
func UseField(raw string) Field {
	return Field(raw)
}

type setClause struct {
	column string
	value  any
}

// RecordUpdater UPDATE 构造器
type RecordUpdater struct {
	query *Query

	target   tableRef
	sets     []setClause
	where    conditions
	priority Priority
	ignore   bool
}

// Update 指定更新的库和表
func (u *RecordUpdater) Update(database, table string) *RecordUpdater {
	u.target = tableRef{database: database, table: table}
	return u
}

// Set 设置列值，同一列多次设置时以最后一次为准
func (u *RecordUpdater) Set(column string, value any) *RecordUpdater {
	for i := range u.sets {
		if u.sets[i].column == column {
			u.sets[i].value = value
			return u
		}
	}
	u.sets = append(u.sets, setClause{column: column, value: value})
	return u
}

func (u *RecordUpdater) Priority(priority Priority) *RecordUpdater {
	u.priority = priority
	return u
}

// IgnoreDuplicates 使用 UPDATE IGNORE
func (u *RecordUpdater) IgnoreDuplicates() *RecordUpdater {
	u.ignore = true
	return u
}

// ToSQL 按表定义校验列并渲染值
func (u *RecordUpdater) ToSQL(ctx context.Context) ([]string, error) {
	if u.where.err != nil {
		return nil, u.where.err
	}
	if u.target.database == "" || u.target.table == "" {
		return nil, errs.Statef("no UPDATE database/table in record updater")
	}
	if len(u.sets) == 0 {
		return nil, errs.Statef("no SET in record updater")
	}

	def, err := u.query.GetDefinition(ctx, u.target.database, u.target.table)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(u.sets))
	for _, set := range u.sets {
		column, ok := def.Column(set.column)
		if !ok {
			return nil, errs.Schemaf("unrecognized column %q in %s", set.column, def.Path)
		}
		if field, ok := set.value.(Field); ok {
			sets = append(sets, codec.QuoteIdentifier(column.Name)+" = "+string(field))
			continue
		}
		v, err := codec.ValueToSQL(set.value, column.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "column %s", column.Name)
		}
		sets = append(sets, codec.QuoteIdentifier(column.Name)+" = "+v)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	if u.priority == PriorityLow {
		sb.WriteString("LOW_PRIORITY ")
	}
	if u.ignore {
		sb.WriteString("IGNORE ")
	}
	sb.WriteString(def.EscapedPath)

	sql := []string{sb.String(), "SET " + strings.Join(sets, ", ")}
	if !u.where.empty() {
		sql = append(sql, "WHERE "+u.where.String())
	}
	return sql, nil
}

// Fetch 执行 UPDATE
func (u *RecordUpdater) Fetch(ctx context.Context) (*executor.Result, error) {
	sql, err := u.ToSQL(ctx)
	if err != nil {
		return nil, err
	}
	return u.query.runner.Send(ctx, sql...)
}
