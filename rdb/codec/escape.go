package codec

import (
	"strings"
)

var stringEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
)

var likeEscaper = strings.NewReplacer(
	"%", "\\%",
	"_", "\\_",
)

// EscapeString 转义字符串字面量中的特殊字符，不包含外层引号
func EscapeString(s string) string {
	return stringEscaper.Replace(s)
}

// EscapeLikeString 在 EscapeString 的基础上转义 LIKE 通配符 % 和 _
func EscapeLikeString(s string) string {
	return likeEscaper.Replace(EscapeString(s))
}

// EscapeIdentifier 转义标识符中的反引号，不包含外层反引号
func EscapeIdentifier(s string) string {
	return strings.ReplaceAll(s, "`", "``")
}

// QuoteString 转义并加单引号
func QuoteString(s string) string {
	return "'" + EscapeString(s) + "'"
}

// QuoteIdentifier 转义并加反引号
func QuoteIdentifier(s string) string {
	return "`" + EscapeIdentifier(s) + "`"
}

// QuotePath 返回 `database`.`table`
func QuotePath(database, table string) string {
	if database == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(database) + "." + QuoteIdentifier(table)
}
