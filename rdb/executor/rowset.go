package executor

import (
	"context"
	"database/sql"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
)

// Column 结果集的列元数据
type Column struct {
	Name         string        `json:"name"`
	DatabaseType string        `json:"databaseType"`
	Type         codec.SQLType `json:"type"`
	Unsigned     bool          `json:"unsigned"`
	// NotNull 仅在驱动能报告可空性时可靠
	NotNull bool `json:"notNull"`
}

// RowSet 查询结果，Rows 中保存驱动原始值
type RowSet struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Column 按名称查找列元数据
func (rs *RowSet) Column(name string) (Column, bool) {
	for _, column := range rs.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// Len 结果行数
func (rs *RowSet) Len() int {
	return len(rs.Rows)
}

// Result 非查询语句的执行结果
type Result struct {
	LastInsertID int64 `json:"lastInsertId"`
	RowsAffected int64 `json:"rowsAffected"`
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryRows(ctx context.Context, q queryer, sqlText string) (*RowSet, error) {
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, errs.NewDriverError(sqlText, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errs.NewDriverError(sqlText, err)
	}

	rs := &RowSet{Columns: make([]Column, len(types)), Rows: []map[string]any{}}
	for i, ct := range types {
		sqlType, unsigned := codec.TypeFromDatabaseTypeName(ct.DatabaseTypeName())
		nullable, ok := ct.Nullable()
		rs.Columns[i] = Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Type:         sqlType,
			Unsigned:     unsigned,
			NotNull:      ok && !nullable,
		}
	}

	for rows.Next() {
		values := make([]any, len(types))
		pointers := make([]any, len(types))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errs.NewDriverError(sqlText, err)
		}
		record := make(map[string]any, len(types))
		for i, column := range rs.Columns {
			record[column.Name] = values[i]
		}
		rs.Rows = append(rs.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDriverError(sqlText, err)
	}

	return rs, nil
}

func execStatement(ctx context.Context, q queryer, sqlText string) (*Result, error) {
	res, err := q.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, errs.NewDriverError(sqlText, err)
	}
	result := &Result{}
	// 部分驱动不支持其中之一，忽略错误
	result.LastInsertID, _ = res.LastInsertId()
	result.RowsAffected, _ = res.RowsAffected()
	return result, nil
}
