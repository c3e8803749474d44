// Package remote talks to the shared cloud database that every device of an
// organization pushes to and pulls from. The contract is a plain SQL
// endpoint: batches of parameterized upserts executed in one transaction,
// and parameterized SELECTs.
package remote

import (
	"context"
	"strings"
)

// Statement is one parameterized SQL statement. Placeholders are written as
// "?" and rebound by the store's Dialect.
type Statement struct {
	SQL  string
	Args []any
}

// Rows is a fully read query result.
type Rows struct {
	Columns []string
	Values  [][]any
}

func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Map returns row i keyed by lower-cased column name.
func (r *Rows) Map(i int) map[string]any {
	m := make(map[string]any, len(r.Columns))
	for j, c := range r.Columns {
		m[strings.ToLower(c)] = r.Values[i][j]
	}
	return m
}

type Store interface {
	// Batch runs stmts in a single write transaction; either all apply or none.
	Batch(ctx context.Context, stmts []Statement) error
	Query(ctx context.Context, st Statement) (*Rows, error)
	Ping(ctx context.Context) error
	Dialect() Dialect
}
