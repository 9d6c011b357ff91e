package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/executor"
)

// Querier 执行查询，*executor.Executor 与 *executor.Transaction 均满足
type Querier interface {
	Raw(ctx context.Context, fragments ...string) (*executor.RowSet, error)
}

// ColumnInfo 内省得到的列信息
type ColumnInfo struct {
	Name  string
	Type  codec.SQLType
	Flags Flag
}

// Introspector 读取一张表的列信息，每次调用只发出一条查询
type Introspector interface {
	Introspect(ctx context.Context, q Querier, database, table string) ([]ColumnInfo, error)
}

// InformationSchemaIntrospector 通过 INFORMATION_SCHEMA.COLUMNS 读取 MySQL/MariaDB 表结构
type InformationSchemaIntrospector struct{}

func (InformationSchemaIntrospector) Introspect(ctx context.Context, q Querier, database, table string) ([]ColumnInfo, error) {
	rs, err := q.Raw(ctx,
		"SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, COLUMN_DEFAULT, EXTRA",
		"FROM INFORMATION_SCHEMA.COLUMNS",
		fmt.Sprintf("WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s", codec.QuoteString(database), codec.QuoteString(table)),
		"ORDER BY ORDINAL_POSITION",
	)
	if err != nil {
		return nil, err
	}
	if rs.Len() == 0 {
		return nil, errs.Schemaf("table %s.%s does not exist", database, table)
	}

	columns := make([]ColumnInfo, 0, rs.Len())
	for _, row := range rs.Rows {
		dataType := strings.ToLower(text(row["DATA_TYPE"]))
		columnType := strings.ToLower(text(row["COLUMN_TYPE"]))
		extra := strings.ToLower(text(row["EXTRA"]))

		var flags Flag
		if strings.EqualFold(text(row["IS_NULLABLE"]), "NO") {
			flags |= FlagNotNull
		}
		switch strings.ToUpper(text(row["COLUMN_KEY"])) {
		case "PRI":
			flags |= FlagPrimaryKey
		case "UNI":
			flags |= FlagUniqueKey
		case "MUL":
			flags |= FlagMultipleKey
		}
		if strings.Contains(columnType, "unsigned") {
			flags |= FlagUnsigned
		}
		if strings.Contains(columnType, "zerofill") {
			flags |= FlagZerofill
		}
		switch dataType {
		case "enum":
			flags |= FlagEnum
		case "set":
			flags |= FlagSet
		case "timestamp":
			flags |= FlagTimestamp
		case "blob", "tinyblob", "mediumblob", "longblob", "text", "tinytext", "mediumtext", "longtext":
			flags |= FlagBlob
		}
		if strings.Contains(extra, "auto_increment") {
			flags |= FlagAutoIncrement
		}
		if strings.Contains(extra, "on update") {
			flags |= FlagOnUpdateNow
		}
		if row["COLUMN_DEFAULT"] == nil && flags.Has(FlagNotNull) && !flags.Has(FlagAutoIncrement) {
			flags |= FlagNoDefaultValue
		}

		sqlType := codec.TypeFromDataType(dataType)
		if sqlType.IsInteger() || sqlType == codec.TypeTiny || sqlType == codec.TypeFloat ||
			sqlType == codec.TypeDouble || sqlType == codec.TypeNewDecimal {
			flags |= FlagNumFlag
		}

		columns = append(columns, ColumnInfo{Name: text(row["COLUMN_NAME"]), Type: sqlType, Flags: flags})
	}

	return columns, nil
}

// SQLiteIntrospector 通过 PRAGMA table_info 读取 SQLite 表结构，database 对应 attach 的库名（默认 main）
type SQLiteIntrospector struct{}

func (SQLiteIntrospector) Introspect(ctx context.Context, q Querier, database, table string) ([]ColumnInfo, error) {
	if database == "" {
		database = "main"
	}
	rs, err := q.Raw(ctx, fmt.Sprintf(`PRAGMA "%s".table_info("%s")`,
		strings.ReplaceAll(database, `"`, `""`), strings.ReplaceAll(table, `"`, `""`)))
	if err != nil {
		return nil, err
	}
	if rs.Len() == 0 {
		return nil, errs.Schemaf("table %s.%s does not exist", database, table)
	}

	columns := make([]ColumnInfo, 0, rs.Len())
	for _, row := range rs.Rows {
		sqlType, unsigned := codec.TypeFromDatabaseTypeName(text(row["type"]))

		var flags Flag
		if number(row["notnull"]) != 0 {
			flags |= FlagNotNull
		}
		if number(row["pk"]) != 0 {
			flags |= FlagPrimaryKey
		}
		if unsigned {
			flags |= FlagUnsigned
		}

		columns = append(columns, ColumnInfo{Name: text(row["name"]), Type: sqlType, Flags: flags})
	}

	return columns, nil
}

// ResultSetIntrospector 通过空结果集的列元数据推断表结构，适用于无法访问 INFORMATION_SCHEMA 的账号
//
// 驱动不报告键信息，得到的定义没有主键
type ResultSetIntrospector struct{}

func (ResultSetIntrospector) Introspect(ctx context.Context, q Querier, database, table string) ([]ColumnInfo, error) {
	rs, err := q.Raw(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", codec.QuotePath(database, table)))
	if err != nil {
		return nil, errs.Schemaf("table %s.%s: %v", database, table, err)
	}

	columns := make([]ColumnInfo, 0, len(rs.Columns))
	for _, column := range rs.Columns {
		var flags Flag
		if column.NotNull {
			flags |= FlagNotNull
		}
		if column.Unsigned {
			flags |= FlagUnsigned
		}
		columns = append(columns, ColumnInfo{Name: column.Name, Type: column.Type, Flags: flags})
	}

	return columns, nil
}

// text 驱动可能返回 string 或 []byte
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

func number(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	}
	n, _ := strconv.ParseInt(text(v), 10, 64)
	return n
}
