package database

import "strings"

// QuoteIdentifier quotes an ANSI SQL identifier (PostgreSQL, SQLite)
// by wrapping in double-quotes and doubling any internal double-quotes.
//
//	QuoteIdentifier(`my"db`) → `"my""db"`
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteMSSQLIdentifier quotes a SQL Server identifier with brackets,
// doubling any closing bracket.
//
//	QuoteMSSQLIdentifier("my]db") → "[my]]db]"
func QuoteMSSQLIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// EscapeLiteral escapes a string literal value by doubling single-quotes.
// The result should be placed inside single-quotes in a SQL statement.
//
//	"BACKUP DATABASE x TO DISK = N'" + EscapeLiteral(path) + "'"
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
