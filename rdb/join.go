package rdb

import (
	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
)

// JoinTarget JOIN 的目标，取值为 TableTarget、JoinOptions 或 RawJoin
//
// 默认值在生成 SQL 时根据 FROM 计算，因此 Join 与 From 的调用顺序无关
type JoinTarget interface {
	render(from tableRef) (string, error)
}

type tableRef struct {
	database string
	table    string
}

// TableTarget 按约定连接：`From`.`Field` = `Table`.`ID`，Field 默认为表名
type TableTarget struct {
	Database string
	Table    string
	Field    string
}

// Table 按约定连接一张表，database 为空时只使用表名
func Table(database, table string) TableTarget {
	return TableTarget{Database: database, Table: table}
}

// Via 指定 FROM 表中引用目标表的字段
func (t TableTarget) Via(field string) TableTarget {
	t.Field = field
	return t
}

func (t TableTarget) render(from tableRef) (string, error) {
	if t.Table == "" {
		return "", errs.Validationf("join target table is empty")
	}
	if from.table == "" {
		return "", errs.Statef("join %s requires FROM", t.Table)
	}
	field := t.Field
	if field == "" {
		field = t.Table
	}
	path := codec.QuotePath(t.Database, t.Table)
	return "JOIN " + path + " ON " + codec.QuoteIdentifier(from.table) + "." + codec.QuoteIdentifier(field) +
		" = " + path + "." + codec.QuoteIdentifier("ID"), nil
}

// JoinOptions 显式描述连接条件
type JoinOptions struct {
	// FromDatabase 仅用于描述，连接条件中只使用 FromTable
	FromDatabase string
	// FromTable 默认为 FROM 表
	FromTable string
	FromField string
	// ToDatabase 默认为 FROM 库
	ToDatabase string
	ToTable    string
	ToField    string
	Alias      string
	// Condition 追加在默认连接条件之后，以 AND 连接
	Condition string
	// On 设置后替换默认连接条件
	On string
}

func (o JoinOptions) render(from tableRef) (string, error) {
	toDatabase := o.ToDatabase
	if toDatabase == "" {
		toDatabase = from.database
	}
	fromTable := o.FromTable
	if fromTable == "" {
		fromTable = from.table
	}
	if o.ToTable == "" || toDatabase == "" {
		return "", errs.Validationf("missing compulsory arguments for join: toDatabase=%q toTable=%q", toDatabase, o.ToTable)
	}

	sql := "JOIN " + codec.QuotePath(toDatabase, o.ToTable)
	if o.Alias != "" {
		sql += " AS " + codec.QuoteIdentifier(o.Alias)
	}
	if o.On != "" {
		return sql + " ON " + o.On, nil
	}

	if fromTable == "" || o.FromField == "" || o.ToField == "" {
		return "", errs.Validationf("join %s requires fromTable, fromField and toField when on is not set", o.ToTable)
	}
	target := o.ToTable
	if o.Alias != "" {
		target = o.Alias
	}
	sql += " ON " + codec.QuoteIdentifier(fromTable) + "." + codec.QuoteIdentifier(o.FromField) +
		" = " + codec.QuoteIdentifier(target) + "." + codec.QuoteIdentifier(o.ToField)
	if o.Condition != "" {
		sql += " AND " + o.Condition
	}
	return sql, nil
}

// RawJoin 原样输出在 JOIN 之后
type RawJoin string

func (r RawJoin) render(tableRef) (string, error) {
	if r == "" {
		return "", errs.Validationf("raw join is empty")
	}
	return "JOIN " + string(r), nil
}

type joinClause struct {
	left   bool
	target JoinTarget
}

func (j joinClause) render(from tableRef) (string, error) {
	sql, err := j.target.render(from)
	if err != nil {
		return "", err
	}
	if j.left {
		return "LEFT " + sql, nil
	}
	return sql, nil
}

// Join 追加 JOIN
func (r *Recordset) Join(target JoinTarget) *Recordset {
	return r.join(false, target)
}

// LeftJoin 追加 LEFT JOIN
func (r *Recordset) LeftJoin(target JoinTarget) *Recordset {
	return r.join(true, target)
}

func (r *Recordset) join(left bool, target JoinTarget) *Recordset {
	if target == nil {
		r.setErr(errs.Validationf("join target is nil"))
		return r
	}
	r.joins = append(r.joins, joinClause{left: left, target: target})
	return r
}
