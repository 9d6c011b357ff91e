package rdb

import (
	"context"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/executor"
)

// RecordDeleter DELETE 构造器，没有条件的删除必须先 Confirm
type RecordDeleter struct {
	query *Query

	target    tableRef
	where     conditions
	confirmed bool
}

// Delete 指定删除的库和表
func (d *RecordDeleter) Delete(database, table string) *RecordDeleter {
	d.target = tableRef{database: database, table: table}
	return d
}

// Confirm 允许没有 WHERE 条件的整表删除
func (d *RecordDeleter) Confirm() *RecordDeleter {
	d.confirmed = true
	return d
}

func (d *RecordDeleter) ToSQL() ([]string, error) {
	if d.where.err != nil {
		return nil, d.where.err
	}
	if d.target.database == "" || d.target.table == "" {
		return nil, errs.Statef("no DELETE database/table in record deleter")
	}

	sql := []string{"DELETE FROM " + codec.QuotePath(d.target.database, d.target.table)}
	if !d.where.empty() {
		sql = append(sql, "WHERE "+d.where.String())
	} else if !d.confirmed {
		return nil, errs.Statef("unconfirmed full table deletion of %s.%s", d.target.database, d.target.table)
	}
	return sql, nil
}

// Fetch 执行 DELETE
func (d *RecordDeleter) Fetch(ctx context.Context) (*executor.Result, error) {
	sql, err := d.ToSQL()
	if err != nil {
		return nil, err
	}
	return d.query.runner.Send(ctx, sql...)
}
