package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/localdb"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
	"github.com/stretchr/testify/require"
)

const ts = "2024-05-01T09:00:00.000Z"

func openLocal(t *testing.T) *sql.DB {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func openRemote(t *testing.T) *remote.SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = remote.Migrate(context.Background(), db, remote.SQLiteDialect{})
	require.NoError(t, err)
	return remote.NewSQLStore(db, remote.SQLiteDialect{}, time.Second)
}

func exec(t *testing.T, db *sql.DB, q string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), q, args...)
	require.NoError(t, err)
}

// seed writes one dirty row of every pushed table for org-1.
func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	exec(t, db, `INSERT INTO organizations (id, name, phone, subscription_plan, created_at) VALUES ('org-1', 'Acme', '0700', 'free', ?)`, ts)
	exec(t, db, `INSERT INTO users (id, organization_id, username, full_name, password_hash, role, created_at, updated_at)
		VALUES ('u1', 'org-1', 'olive', 'Olive Owner', 'hash', 'owner', ?, ?)`, ts, ts)
	exec(t, db, `INSERT INTO clients (id, organization_id, full_name, phone, created_at, updated_at)
		VALUES ('c1', 'org-1', 'Jane Doe', '0711000111', ?, ?)`, ts, ts)
	exec(t, db, `INSERT INTO repairs (id, organization_id, client_id, assigned_to, ticket_no, device_type, status,
		final_price, amount_paid, created_at, updated_at)
		VALUES ('r1', 'org-1', 'c1', 'u1', 'T-0001', 'Phone', 'Received', 1500, 500, ?, ?)`, ts, ts)
	exec(t, db, `INSERT INTO audit_logs (id, organization_id, user_id, action, entity, entity_id, details, timestamp)
		VALUES ('a1', 'org-1', 'u1', 'CREATE', 'client', 'c1', 'created Jane Doe', ?)`, ts)
}

func dirty(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_synced = 0", table)).Scan(&n))
	return n
}

// dump reads a table's sync columns ordered by id.
func dump(t *testing.T, db *sql.DB, tb Table) []map[string]any {
	t.Helper()
	rs, err := db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(tb.Push, ", "), tb.Name))
	require.NoError(t, err)
	defer rs.Close()

	var out []map[string]any
	for rs.Next() {
		vals := make([]any, len(tb.Push))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rs.Scan(ptrs...))
		m := make(map[string]any, len(vals))
		for i, c := range tb.Push {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	require.NoError(t, rs.Err())
	return out
}

// recordingStore wraps a Store and records the table of each upsert batch.
type recordingStore struct {
	remote.Store

	mu      sync.Mutex
	batches []string
	failOn  string
	before  func(table string)
}

func (s *recordingStore) Batch(ctx context.Context, stmts []remote.Statement) error {
	table := tableOf(stmts[0].SQL)
	s.mu.Lock()
	s.batches = append(s.batches, table)
	hook := s.before
	s.mu.Unlock()

	if hook != nil {
		hook(table)
	}
	if table == s.failOn {
		return fmt.Errorf("%s unavailable", table)
	}
	return s.Store.Batch(ctx, stmts)
}

func (s *recordingStore) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.batches...)
}

func tableOf(q string) string {
	f := strings.Fields(q)
	for i, w := range f {
		if strings.EqualFold(w, "INTO") && i+1 < len(f) {
			return strings.TrimSuffix(f[i+1], "(")
		}
	}
	return ""
}

// remoteValue reads one column of one remote row; nil when the row is missing.
func remoteValue(t *testing.T, store remote.Store, table, col, id string) any {
	t.Helper()
	rows, err := store.Query(context.Background(), remote.Statement{
		SQL:  fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", col, table),
		Args: []any{id},
	})
	require.NoError(t, err)
	if rows.Len() == 0 {
		return nil
	}
	return rows.Map(0)[col]
}
