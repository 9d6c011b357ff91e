package rdb

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
)

// OptionBigInt Use 选项：LONGLONG 列转换为 *big.Int
const OptionBigInt = "bigint"

// Recordset SELECT 构造器，构造一次、执行一次，不可并发使用
type Recordset struct {
	query *Query
	err   error

	fields     []string
	from       tableRef
	joins      []joinClause
	where      conditions
	having     conditions
	groupBy    []string
	orderBy    []string
	limit      *int
	offset     *int
	references []referenceDescriptor

	single  bool
	flat    string
	options map[string]any
}

// Result Fetch 的结果
//
// 设置 Flat 时结果在 Values 中，否则在 Records 中
type Result struct {
	Records []Record
	Values  []any
}

// Len 结果行数
func (r *Result) Len() int {
	if r.Values != nil {
		return len(r.Values)
	}
	return len(r.Records)
}

// First 第一条记录，没有时返回 nil
func (r *Result) First() Record {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// FirstValue Flat 模式下的第一个值
func (r *Result) FirstValue() any {
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[0]
}

func (r *Recordset) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Select 追加查询列
//
// 普通标识符加反引号，a.b 输出为 `a`.`b`，a.* 输出为 `a`.*，其他表达式原样输出
func (r *Recordset) Select(fields ...string) *Recordset {
	r.fields = append(r.fields, fields...)
	return r
}

// From 指定查询的库和表
func (r *Recordset) From(database, table string) *Recordset {
	if database == "" || table == "" {
		r.setErr(errs.Validationf("recordset: database and table must be provided, got %q.%q", database, table))
		return r
	}
	r.from = tableRef{database: database, table: table}
	return r
}

// GroupBy 追加 GROUP BY 表达式，原样输出
func (r *Recordset) GroupBy(fields ...string) *Recordset {
	r.groupBy = append(r.groupBy, fields...)
	return r
}

// OrderBy 追加 ORDER BY 表达式，原样输出
func (r *Recordset) OrderBy(fields ...string) *Recordset {
	r.orderBy = append(r.orderBy, fields...)
	return r
}

func (r *Recordset) Limit(n int) *Recordset {
	if n < 0 {
		r.setErr(errs.Validationf("limit must not be negative, got %d", n))
		return r
	}
	r.limit = &n
	return r
}

func (r *Recordset) Offset(n int) *Recordset {
	if n < 0 {
		r.setErr(errs.Validationf("offset must not be negative, got %d", n))
		return r
	}
	r.offset = &n
	return r
}

// Single 只返回第一行
func (r *Recordset) Single() *Recordset {
	r.single = true
	return r
}

// Flat 返回 column 列的值列表而不是记录
func (r *Recordset) Flat(column string) *Recordset {
	r.flat = column
	return r
}

// Use 设置本次查询的选项，见 OptionBigInt
func (r *Recordset) Use(option string, value any) *Recordset {
	if r.options == nil {
		r.options = map[string]any{}
	}
	r.options[option] = value
	return r
}

func (r *Recordset) option(name string) bool {
	v, _ := r.options[name].(bool)
	return v
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.([A-Za-z_][A-Za-z0-9_$]*|\*))?$`)

func escapeSelect(field string) string {
	if !plainIdentifier.MatchString(field) {
		return field
	}
	table, column, ok := strings.Cut(field, ".")
	if !ok {
		return codec.QuoteIdentifier(field)
	}
	if column == "*" {
		return codec.QuoteIdentifier(table) + ".*"
	}
	return codec.QuoteIdentifier(table) + "." + codec.QuoteIdentifier(column)
}

// ToSQL 生成 SQL 片段，按子句顺序排列
func (r *Recordset) ToSQL() ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.where.err != nil {
		return nil, r.where.err
	}
	if r.having.err != nil {
		return nil, r.having.err
	}
	if len(r.fields) == 0 {
		return nil, errs.Statef("no SELECT in recordset")
	}

	fields := make([]string, len(r.fields))
	for i, field := range r.fields {
		fields[i] = escapeSelect(field)
	}

	sql := []string{"SELECT " + strings.Join(fields, ", ")}
	if r.from.table != "" {
		sql = append(sql, "FROM "+codec.QuotePath(r.from.database, r.from.table))
	}
	if len(r.joins) != 0 {
		joins := make([]string, 0, len(r.joins))
		for _, join := range r.joins {
			s, err := join.render(r.from)
			if err != nil {
				return nil, err
			}
			joins = append(joins, s)
		}
		sql = append(sql, strings.Join(joins, " "))
	}
	if !r.where.empty() {
		sql = append(sql, "WHERE "+r.where.String())
	}
	if len(r.groupBy) != 0 {
		sql = append(sql, "GROUP BY "+strings.Join(r.groupBy, ", "))
	}
	if !r.having.empty() {
		sql = append(sql, "HAVING "+r.having.String())
	}
	if len(r.orderBy) != 0 {
		sql = append(sql, "ORDER BY "+strings.Join(r.orderBy, ", "))
	}
	if r.limit != nil {
		sql = append(sql, "LIMIT "+strconv.Itoa(*r.limit))
	}
	if r.offset != nil {
		sql = append(sql, "OFFSET "+strconv.Itoa(*r.offset))
	}

	return sql, nil
}

// Fetch 执行查询，按列类型转换每个值，然后依次折叠引用、Flat、Single
func (r *Recordset) Fetch(ctx context.Context) (*Result, error) {
	sql, err := r.ToSQL()
	if err != nil {
		return nil, err
	}

	rs, err := r.query.runner.Raw(ctx, sql...)
	if err != nil {
		return nil, err
	}
	if r.flat != "" {
		if _, ok := rs.Column(r.flat); !ok {
			return nil, errs.Statef("column %s is not included in the result", r.flat)
		}
	}

	widen := r.option(OptionBigInt)
	records := make([]Record, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		record := make(Record, len(rs.Columns))
		for _, column := range rs.Columns {
			v, err := codec.SQLToValue(row[column.Name], column.Type, widen)
			if err != nil {
				return nil, errors.WithMessagef(err, "column %s", column.Name)
			}
			record[column.Name] = v
		}
		records = append(records, record)
	}

	records = r.collapse(records)

	result := &Result{}
	if r.flat != "" {
		result.Values = make([]any, 0, len(records))
		for _, record := range records {
			result.Values = append(result.Values, record[r.flat])
		}
		if r.single && len(result.Values) > 1 {
			result.Values = result.Values[:1]
		}
		return result, nil
	}

	result.Records = records
	if r.single && len(result.Records) > 1 {
		result.Records = result.Records[:1]
	}
	return result, nil
}

func (r *Recordset) collapse(records []Record) []Record {
	redundant := make([]bool, len(records))
	collapsed := false
	for _, ref := range r.references {
		if ref.collapseOn == "" {
			continue
		}
		collapseReferences(records, ref, redundant)
		collapsed = true
	}
	if !collapsed {
		return records
	}

	result := records[:0]
	for i, record := range records {
		if !redundant[i] {
			result = append(result, record)
		}
	}
	return result
}
