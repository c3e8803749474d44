package organizations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/localdb"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func acme(created time.Time) *models.Organization {
	return &models.Organization{
		ID:               "org-1",
		Name:             "Acme",
		Phone:            "0700000000",
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        created,
	}
}

func TestGetCurrent_EmptyStore(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.GetCurrent(context.Background())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestInsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	require.NoError(t, r.Insert(ctx, acme(created)))

	got, err := r.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, acme(created), got)

	byID, err := r.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, got, byID)

	_, err = r.Get(ctx, "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate_MarksDirty(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	o := acme(time.Now().UTC())
	o.IsSynced = true
	require.NoError(t, r.Insert(ctx, o))

	require.NoError(t, r.Update(ctx, "org-1", models.OrganizationPatch{Terms: models.Ptr("No refunds")}))

	got, err := r.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "No refunds", got.Terms)
	assert.Equal(t, "Acme", got.Name)
	assert.False(t, got.IsSynced)

	err = r.Update(ctx, "missing", models.OrganizationPatch{Name: models.Ptr("x")})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsert_InsertsThenOverwrites(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	o := acme(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	o.IsSynced = true

	require.NoError(t, r.Upsert(ctx, o))
	o.Name = "Acme Repairs"
	require.NoError(t, r.Upsert(ctx, o))

	got, err := r.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme Repairs", got.Name)
	assert.True(t, got.IsSynced)
}
