package codec

import (
	"strings"
)

// SQLType 列的 SQL 类型，沿用 MariaDB 协议中的类型名
type SQLType string

const (
	TypeDecimal    SQLType = "DECIMAL"
	TypeTiny       SQLType = "TINY"
	TypeShort      SQLType = "SHORT"
	TypeLong       SQLType = "LONG"
	TypeFloat      SQLType = "FLOAT"
	TypeDouble     SQLType = "DOUBLE"
	TypeNull       SQLType = "NULL"
	TypeTimestamp  SQLType = "TIMESTAMP"
	TypeLongLong   SQLType = "LONGLONG"
	TypeInt24      SQLType = "INT24"
	TypeDate       SQLType = "DATE"
	TypeTime       SQLType = "TIME"
	TypeDatetime   SQLType = "DATETIME"
	TypeYear       SQLType = "YEAR"
	TypeVarchar    SQLType = "VARCHAR"
	TypeBit        SQLType = "BIT"
	TypeJSON       SQLType = "JSON"
	TypeNewDecimal SQLType = "NEWDECIMAL"
	TypeEnum       SQLType = "ENUM"
	TypeSet        SQLType = "SET"
	TypeBlob       SQLType = "BLOB"
	TypeVarString  SQLType = "VAR_STRING"
	TypeString     SQLType = "STRING"
	TypeGeometry   SQLType = "GEOMETRY"
)

// IsDate 是否为日期/时间类型
func (t SQLType) IsDate() bool {
	switch t {
	case TypeDate, TypeDatetime, TypeTimestamp, TypeTime:
		return true
	}
	return false
}

// IsText 驱动返回 []byte 时是否应转换为字符串
func (t SQLType) IsText() bool {
	switch t {
	case TypeVarchar, TypeVarString, TypeString, TypeEnum, TypeSet, TypeTime, TypeYear,
		TypeDecimal, TypeNewDecimal:
		return true
	}
	return false
}

// IsInteger 是否为整数类型
func (t SQLType) IsInteger() bool {
	switch t {
	case TypeShort, TypeLong, TypeInt24, TypeLongLong, TypeYear:
		return true
	}
	return false
}

// dataTypes INFORMATION_SCHEMA.COLUMNS.DATA_TYPE 以及常见声明类型到 SQLType 的映射
var dataTypes = map[string]SQLType{
	"tinyint":    TypeTiny,
	"bool":       TypeTiny,
	"boolean":    TypeTiny,
	"smallint":   TypeShort,
	"mediumint":  TypeInt24,
	"int":        TypeLong,
	"integer":    TypeLongLong,
	"bigint":     TypeLongLong,
	"decimal":    TypeNewDecimal,
	"numeric":    TypeNewDecimal,
	"float":      TypeFloat,
	"double":     TypeDouble,
	"real":       TypeDouble,
	"bit":        TypeBit,
	"date":       TypeDate,
	"datetime":   TypeDatetime,
	"timestamp":  TypeTimestamp,
	"time":       TypeTime,
	"year":       TypeYear,
	"char":       TypeString,
	"varchar":    TypeVarString,
	"text":       TypeVarString,
	"tinytext":   TypeVarString,
	"mediumtext": TypeVarString,
	"longtext":   TypeVarString,
	"binary":     TypeString,
	"varbinary":  TypeVarString,
	"blob":       TypeBlob,
	"tinyblob":   TypeBlob,
	"mediumblob": TypeBlob,
	"longblob":   TypeBlob,
	"enum":       TypeEnum,
	"set":        TypeSet,
	"json":       TypeJSON,
	"geometry":   TypeGeometry,
	"null":       TypeNull,
}

// TypeFromDataType 将 INFORMATION_SCHEMA 的 DATA_TYPE（或 SQLite 声明类型）转换为 SQLType
func TypeFromDataType(dataType string) SQLType {
	name := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexAny(name, "( "); i >= 0 {
		name = name[:i]
	}
	if t, ok := dataTypes[name]; ok {
		return t
	}
	return TypeVarString
}

// TypeFromDatabaseTypeName 将 database/sql ColumnType.DatabaseTypeName() 转换为 SQLType
// go-sql-driver/mysql 返回如 "TINYINT"、"UNSIGNED BIGINT"，SQLite 返回列的声明类型
func TypeFromDatabaseTypeName(name string) (SQLType, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	unsigned := false
	if strings.HasPrefix(upper, "UNSIGNED ") {
		unsigned = true
		upper = strings.TrimPrefix(upper, "UNSIGNED ")
	}
	if strings.HasSuffix(upper, " UNSIGNED") {
		unsigned = true
		upper = strings.TrimSuffix(upper, " UNSIGNED")
	}
	if upper == "" {
		return TypeVarString, unsigned
	}
	return TypeFromDataType(upper), unsigned
}
