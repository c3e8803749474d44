package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/cryptox"
	"github.com/dmitrijs2005/repairdesk/internal/localdb"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/organizations"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	cryptox.Cost = bcrypt.MinCost
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances by one second on every read so consecutive mutations
// get strictly increasing timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

type fixture struct {
	db    *sql.DB
	deps  Deps
	clock *stepClock
	org   *models.Organization
	owner *models.User
}

func newBareFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &stepClock{now: t0}
	deps := Deps{DB: db, Clock: clock, IDs: &seqIDs{}}.withDefaults()
	return &fixture{db: db, deps: deps, clock: clock}
}

// newFixture has an organization and a signed-in owner.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newBareFixture(t)
	ctx := context.Background()

	f.org = &models.Organization{ID: "org-1", Name: "Acme", SubscriptionPlan: models.PlanFree, CreatedAt: t0}
	require.NoError(t, organizations.NewSQLiteRepository(f.db).Insert(ctx, f.org))

	hash, err := cryptox.HashPassword([]byte("owner-pass"))
	require.NoError(t, err)
	f.owner = &models.User{Username: "olive", FullName: "Olive Owner", PasswordHash: hash, Role: models.RoleOwner, IsActive: true}
	f.owner.Stamp("owner-1", "org-1", t0)
	require.NoError(t, users.NewSQLiteRepository(f.db).Insert(ctx, f.owner))

	f.deps.Session.Login(f.owner)
	return f
}

func (f *fixture) count(t *testing.T, q string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(q, args...).Scan(&n))
	return n
}

func (f *fixture) flags(t *testing.T, table, id string) (synced, deleted int) {
	t.Helper()
	require.NoError(t, f.db.QueryRow(`SELECT is_synced, is_deleted FROM `+table+` WHERE id = ?`, id).Scan(&synced, &deleted))
	return synced, deleted
}
