// Package sqldocs embeds the DDL applied by the SQL snapshot sinks.
package sqldocs

import (
	"bufio"
	_ "embed"
	"strings"
)

// SQLite contains the SQLite DDL for the snapshot state table.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL for the snapshot state table.
//
//go:embed postgres.sql
var Postgres string

// SplitStatements splits a semicolon-terminated DDL script into executable
// statements, dropping blank lines and "--" comment lines.
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(trimmed)
		if strings.HasSuffix(trimmed, ";") {
			flush()
			continue
		}
		current.WriteByte(' ')
	}
	flush()
	return stmts
}
