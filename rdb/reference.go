package rdb

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/recordx/rdb/errs"
)

// ReferenceOptions 一对多关联
//
// 设置 ReferenceTable 时通过中间表连接两次：source -> reference -> target，否则直接连接 source -> target。
// 结果中 Fields 列出的列按 CollapseOn 分组，折叠为挂在 TargetAlias（默认 TargetTable）下的 []Record
type ReferenceOptions struct {
	// SourceDatabase / SourceTable 默认为 FROM
	SourceDatabase string
	SourceTable    string
	// SourceField 默认 ID
	SourceField string

	// TargetDatabase 默认为 FROM 库
	TargetDatabase string
	TargetTable    string
	// TargetField 默认 ID
	TargetField string
	TargetAlias string

	// ReferenceDatabase 默认为 FROM 库
	ReferenceDatabase string
	ReferenceTable    string
	// ReferenceFieldSource 中间表中指向 source 的列，默认为 SourceTable
	ReferenceFieldSource string
	// ReferenceFieldTarget 中间表中指向 target 的列，默认为 TargetTable
	ReferenceFieldTarget string

	Condition          string
	ReferenceCondition string
	TargetCondition    string

	// Fields 折叠进嵌套记录的列，可以写 Target_x 或 x
	Fields []string
	// CollapseOn 分组列，为空时只连接不折叠
	CollapseOn string
	// Inner 使用 JOIN，默认 LEFT JOIN
	Inner bool
}

type referenceDescriptor struct {
	collapseOn string
	target     string
	fields     []string
}

// Reference 声明一对多关联
func (r *Recordset) Reference(options ReferenceOptions) *Recordset {
	if options.TargetTable == "" {
		r.setErr(errs.Validationf("reference requires targetTable"))
		return r
	}
	target := options.TargetTable
	if options.TargetAlias != "" {
		target = options.TargetAlias
	}
	r.joins = append(r.joins, joinClause{left: !options.Inner, target: referenceJoin(options)})
	r.references = append(r.references, referenceDescriptor{
		collapseOn: options.CollapseOn,
		target:     target,
		fields:     options.Fields,
	})
	return r
}

// referenceJoin 展开为一到两个 JOIN，默认值依赖 FROM，在生成 SQL 时计算
type referenceJoin ReferenceOptions

func (o referenceJoin) render(from tableRef) (string, error) {
	opts := ReferenceOptions(o)
	defaults(&opts.SourceDatabase, from.database)
	defaults(&opts.SourceTable, from.table)
	defaults(&opts.SourceField, "ID")
	defaults(&opts.TargetDatabase, from.database)
	defaults(&opts.TargetField, "ID")
	defaults(&opts.ReferenceDatabase, from.database)
	defaults(&opts.ReferenceFieldSource, opts.SourceTable)
	defaults(&opts.ReferenceFieldTarget, opts.TargetTable)

	prefix := ""
	if !opts.Inner {
		prefix = "LEFT "
	}

	if opts.ReferenceTable == "" {
		return JoinOptions{
			FromDatabase: opts.SourceDatabase,
			FromTable:    opts.SourceTable,
			FromField:    opts.SourceField,
			ToDatabase:   opts.TargetDatabase,
			ToTable:      opts.TargetTable,
			ToField:      opts.TargetField,
			Alias:        opts.TargetAlias,
			Condition:    opts.Condition,
		}.render(from)
	}

	first, err := JoinOptions{
		FromDatabase: opts.SourceDatabase,
		FromTable:    opts.SourceTable,
		FromField:    opts.SourceField,
		ToDatabase:   opts.ReferenceDatabase,
		ToTable:      opts.ReferenceTable,
		ToField:      opts.ReferenceFieldSource,
		Condition:    opts.ReferenceCondition,
	}.render(from)
	if err != nil {
		return "", err
	}
	second, err := JoinOptions{
		FromDatabase: opts.ReferenceDatabase,
		FromTable:    opts.ReferenceTable,
		FromField:    opts.ReferenceFieldTarget,
		ToDatabase:   opts.TargetDatabase,
		ToTable:      opts.TargetTable,
		ToField:      opts.TargetField,
		Alias:        opts.TargetAlias,
		Condition:    opts.TargetCondition,
	}.render(from)
	if err != nil {
		return "", err
	}
	// joinClause 只为第一段加 LEFT
	return first + " " + prefix + second, nil
}

func defaults(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

type collapseGroup struct {
	first int
	items []Record
}

type collapseKey struct {
	kind  string
	value any
}

// collapseReferences 将 records 按 collapseOn 分组，每组第一行挂上去重后的嵌套记录列表，其余行标记在 redundant 中
func collapseReferences(records []Record, ref referenceDescriptor, redundant []bool) {
	prefix := ref.target + "_"
	groups := map[collapseKey]*collapseGroup{}
	var order []*collapseGroup

	for i, row := range records {
		nested := make(Record, len(ref.fields))
		for _, field := range ref.fields {
			column := field
			if !strings.HasPrefix(field, prefix) {
				if _, ok := row[prefix+field]; ok {
					column = prefix + field
				}
			}
			nested[strings.TrimPrefix(field, prefix)] = row[column]
			delete(row, column)
		}

		key := normalizeKey(row[ref.collapseOn])
		group, ok := groups[key]
		if !ok {
			group = &collapseGroup{first: i}
			groups[key] = group
			order = append(order, group)
		} else {
			redundant[i] = true
		}

		if !containsRecord(group.items, nested) {
			group.items = append(group.items, nested)
		}
	}

	for _, group := range order {
		items := group.items
		if len(items) == 1 && allFalsy(items[0]) {
			items = []Record{}
		}
		records[group.first][ref.target] = items
	}
}

// normalizeKey 将不可比较或按指针比较的值转换为可作为 map 键的形式
func normalizeKey(v any) collapseKey {
	switch t := v.(type) {
	case nil:
		return collapseKey{kind: "#nil"}
	case []byte:
		return collapseKey{kind: "#bytes", value: string(t)}
	case *big.Int:
		return collapseKey{kind: "#integer", value: t.String()}
	case int64:
		return collapseKey{kind: "#integer", value: strconv.FormatInt(t, 10)}
	case time.Time:
		return collapseKey{kind: "#time", value: t.UnixNano()}
	}
	rt := reflect.TypeOf(v)
	if !rt.Comparable() {
		return collapseKey{kind: rt.String(), value: fmt.Sprintf("%#v", v)}
	}
	return collapseKey{kind: rt.String(), value: v}
}

func containsRecord(items []Record, record Record) bool {
	for _, item := range items {
		if reflect.DeepEqual(item, record) {
			return true
		}
	}
	return false
}

func allFalsy(record Record) bool {
	for _, v := range record {
		if !falsy(v) {
			return false
		}
	}
	return true
}

func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *big.Int:
		return t == nil || t.Sign() == 0
	case time.Time:
		return t.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || f != f
	case reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
