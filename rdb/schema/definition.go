package schema

import (
	"github.com/hatlonely/recordx/rdb/codec"
)

// ColumnDefinition 列定义
type ColumnDefinition struct {
	Name       string        `json:"name"`
	Type       codec.SQLType `json:"type"`
	NotNull    bool          `json:"notNull"`
	PrimaryKey bool          `json:"primaryKey"`
	Unsigned   bool          `json:"unsigned"`
}

// NewColumnDefinition 根据列类型与标志位构造列定义，SET 标志覆盖列类型
func NewColumnDefinition(name string, sqlType codec.SQLType, flags Flag) *ColumnDefinition {
	column := &ColumnDefinition{
		Name:       name,
		Type:       sqlType,
		NotNull:    flags.Has(FlagNotNull),
		PrimaryKey: flags.Has(FlagPrimaryKey),
		Unsigned:   flags.Has(FlagUnsigned),
	}
	if flags.Has(FlagSet) {
		column.Type = codec.TypeSet
	}
	return column
}

// TableDefinition 表结构快照，创建后不再修改
type TableDefinition struct {
	Database    string              `json:"database"`
	Name        string              `json:"name"`
	Path        string              `json:"path"`
	EscapedPath string              `json:"escapedPath"`
	Columns     []*ColumnDefinition `json:"columns"`

	index map[string]*ColumnDefinition
}

// NewTableDefinition 构造表定义
func NewTableDefinition(database, table string, columns []*ColumnDefinition) *TableDefinition {
	def := &TableDefinition{
		Database:    database,
		Name:        table,
		Path:        database + "." + table,
		EscapedPath: codec.QuotePath(database, table),
		Columns:     columns,
		index:       make(map[string]*ColumnDefinition, len(columns)),
	}
	for _, column := range columns {
		def.index[column.Name] = column
	}
	return def
}

// Column 按名称查找列
func (d *TableDefinition) Column(name string) (*ColumnDefinition, bool) {
	column, ok := d.index[name]
	return column, ok
}

// PrimaryKey 返回主键列，复合主键取第一列
func (d *TableDefinition) PrimaryKey() *ColumnDefinition {
	for _, column := range d.Columns {
		if column.PrimaryKey {
			return column
		}
	}
	return nil
}

// ColumnNames 按定义顺序返回列名
func (d *TableDefinition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, column := range d.Columns {
		names[i] = column.Name
	}
	return names
}
