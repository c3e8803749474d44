package remote

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the statements whose syntax differs between remote
// backends.
type Dialect interface {
	Name() string
	// Upsert returns an insert-or-replace keyed on id for the given columns,
	// with "?" placeholders.
	Upsert(table string, columns []string) string
	// Rebind rewrites "?" placeholders into the backend's native form.
	Rebind(query string) string
}

// SQLiteDialect serves libSQL/Turso and plain SQLite files.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Upsert(table string, columns []string) string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders(len(columns)))
}

func (SQLiteDialect) Rebind(query string) string { return query }

type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (d PostgresDialect) Upsert(table string, columns []string) string {
	set := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "id" {
			continue
		}
		set = append(set, c+" = EXCLUDED."+c)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) ",
		table, strings.Join(columns, ", "), placeholders(len(columns)))
	if len(set) == 0 {
		return q + "DO NOTHING"
	}
	return q + "DO UPDATE SET " + strings.Join(set, ", ")
}

// Rebind numbers placeholders as $1, $2, ... Question marks inside single
// quoted literals are left alone.
func (PostgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
