package repairs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/localdb"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/clients"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	c := &models.Client{FullName: "Jane Wanjiku", Phone: "0711000111", Location: "Westlands"}
	c.Stamp("c1", "org-1", t0)
	require.NoError(t, clients.NewSQLiteRepository(db).Insert(ctx, c))

	u := &models.User{Username: "tech", FullName: "Tom Tech", PasswordHash: "x", Role: models.RoleTechnician, IsActive: true}
	u.Stamp("u1", "org-1", t0)
	require.NoError(t, users.NewSQLiteRepository(db).Insert(ctx, u))
	return db
}

func newRepair(id, ticket string, created time.Time) *models.Repair {
	r := &models.Repair{
		ClientID:   "c1",
		TicketNo:   ticket,
		DeviceType: "Phone",
		Brand:      "Samsung",
		Status:     models.StatusReceived,
		ImagePaths: []string{},
	}
	r.Stamp(id, "org-1", created)
	return r
}

func TestInsertAndGetByID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.AssignedTo = "u1"
	rp.ImagePaths = []string{"a.jpg", "b.jpg"}
	rp.FinalPrice = 2500
	fixed := t0.Add(time.Hour)
	rp.DateFixed = &fixed
	require.NoError(t, r.Insert(ctx, rp))

	got, err := r.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, rp, got)
}

func TestInsert_NilImagesStoredAsEmptyArray(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.ImagePaths = nil
	require.NoError(t, r.Insert(ctx, rp))

	var raw string
	require.NoError(t, db.QueryRow(`SELECT image_paths FROM repairs WHERE id = 'r1'`).Scan(&raw))
	assert.Equal(t, "[]", raw)

	got, err := r.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.ImagePaths)
}

func TestGetView_JoinsClientAndTechnician(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.AssignedTo = "u1"
	require.NoError(t, r.Insert(ctx, rp))

	v, err := r.GetView(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Wanjiku", v.ClientName)
	assert.Equal(t, "0711000111", v.ClientPhone)
	assert.Equal(t, "Westlands", v.ClientLocation)
	assert.Equal(t, "Tom Tech", v.AssignedToName)

	_, err = r.GetView(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate_PatchesAndMarksDirty(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.IsSynced = true
	require.NoError(t, r.Insert(ctx, rp))

	later := t0.Add(2 * time.Hour)
	status := models.StatusFixed
	images := []string{"x.png"}
	require.NoError(t, r.Update(ctx, "r1", models.RepairPatch{
		Status:     &status,
		Diagnosis:  models.Ptr("Broken screen"),
		FinalPrice: models.Ptr(3000.0),
		ImagePaths: &images,
		DateFixed:  &later,
	}, later))

	got, err := r.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFixed, got.Status)
	assert.Equal(t, "Broken screen", got.Diagnosis)
	assert.Equal(t, 3000.0, got.FinalPrice)
	assert.Equal(t, []string{"x.png"}, got.ImagePaths)
	require.NotNil(t, got.DateFixed)
	assert.True(t, later.Equal(*got.DateFixed))
	assert.True(t, later.Equal(got.UpdatedAt))
	assert.False(t, got.IsSynced)
	assert.Equal(t, "Samsung", got.Brand)
}

func TestUpdate_ClearAssignee(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.AssignedTo = "u1"
	require.NoError(t, r.Insert(ctx, rp))

	require.NoError(t, r.Update(ctx, "r1", models.RepairPatch{AssignedTo: models.Ptr("")}, t0))

	var assigned sql.NullString
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT assigned_to FROM repairs WHERE id = 'r1'`).Scan(&assigned))
	assert.False(t, assigned.Valid)
}

func TestUpdateAndDelete_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, r.Update(ctx, "nope", models.RepairPatch{}, t0), common.ErrNotFound)
	assert.ErrorIs(t, r.SoftDelete(ctx, "nope", t0), common.ErrNotFound)
}

func TestSoftDelete_HidesRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rp := newRepair("r1", "T-0001", t0)
	rp.IsSynced = true
	require.NoError(t, r.Insert(ctx, rp))
	require.NoError(t, r.SoftDelete(ctx, "r1", t0.Add(time.Minute)))

	_, err := r.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	var synced, deleted int
	require.NoError(t, db.QueryRow(`SELECT is_synced, is_deleted FROM repairs WHERE id = 'r1'`).Scan(&synced, &deleted))
	assert.Equal(t, 0, synced)
	assert.Equal(t, 1, deleted)

	// tickets stay reserved after deletion
	exists, err := r.TicketExists(ctx, "org-1", "T-0001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestList_Filters(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := newRepair("r1", "T-0001", t0)
	b := newRepair("r2", "T-0002", t0.Add(time.Hour))
	b.Status = models.StatusCollected
	c := newRepair("r3", "T-0003", t0.Add(2*time.Hour))
	c.Status = models.StatusFixed
	other := newRepair("r4", "T-0004", t0)
	other.OrganizationID = "org-2"
	for _, rp := range []*models.Repair{a, b, c, other} {
		require.NoError(t, r.Insert(ctx, rp))
	}

	all, err := r.List(ctx, "org-1", models.RepairFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)
	assert.Equal(t, "r1", all[2].ID)

	active, err := r.List(ctx, "org-1", models.RepairFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	fixed, err := r.List(ctx, "org-1", models.RepairFilter{Status: models.StatusFixed})
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, "r3", fixed[0].ID)

	limited, err := r.List(ctx, "org-1", models.RepairFilter{Limit: 1, ClientID: "c1"})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearch(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := newRepair("r1", "T-0001", t0)
	a.SerialNo = "SN-ABC"
	b := newRepair("r2", "T-0777", t0)
	require.NoError(t, r.Insert(ctx, a))
	require.NoError(t, r.Insert(ctx, b))

	cases := []struct {
		query string
		want  int
	}{
		{"T-0777", 1},
		{"abc", 1},
		{"wanjiku", 2},
		{"0711", 2},
		{"%", 0},
		{"nothing", 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got, err := r.Search(ctx, "org-1", tc.query, 50)
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestOverstayed(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	old := t0.AddDate(0, 0, -45)
	recent := t0.AddDate(0, 0, -3)

	a := newRepair("r1", "T-0001", old)
	a.Status = models.StatusFixed
	a.DateFixed = &old
	b := newRepair("r2", "T-0002", recent)
	b.Status = models.StatusFixed
	b.DateFixed = &recent
	c := newRepair("r3", "T-0003", old)
	c.Status = models.StatusCollected
	c.DateFixed = &old
	for _, rp := range []*models.Repair{a, b, c} {
		require.NoError(t, r.Insert(ctx, rp))
	}

	got, err := r.Overstayed(ctx, "org-1", t0.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestRevenueStats(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	paid := newRepair("r1", "T-0001", t0)
	paid.Status = models.StatusCollected
	paid.FinalPrice, paid.InternalCost, paid.AmountPaid = 3000, 1000, 3000

	owing := newRepair("r2", "T-0002", t0.Add(time.Hour))
	owing.Status = models.StatusCollected
	owing.FinalPrice, owing.InternalCost, owing.AmountPaid = 2000, 500, 1500

	open := newRepair("r3", "T-0003", t0.Add(2*time.Hour))
	open.Status = models.StatusFixed
	open.FinalPrice, open.InternalCost = 1000, 200

	nextMonth := newRepair("r4", "T-0004", t0.AddDate(0, 1, 0))
	nextMonth.FinalPrice = 9999

	for _, rp := range []*models.Repair{paid, owing, open, nextMonth} {
		require.NoError(t, r.Insert(ctx, rp))
	}

	got, err := r.RevenueStats(ctx, "org-1", "2024-05")
	require.NoError(t, err)
	assert.Equal(t, &models.RevenueStats{
		Month:           "2024-05",
		Revenue:         6000,
		Profit:          4300,
		OutstandingDebt: 500,
		Collected:       2,
	}, got)

	empty, err := r.RevenueStats(ctx, "org-1", "2023-01")
	require.NoError(t, err)
	assert.Zero(t, empty.Revenue)
}

func TestGetByTicketAndListByClient(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newRepair("r1", "T-0001", t0)))
	require.NoError(t, r.Insert(ctx, newRepair("r2", "T-0002", t0.Add(time.Hour))))

	v, err := r.GetByTicket(ctx, "org-1", "T-0002")
	require.NoError(t, err)
	assert.Equal(t, "r2", v.ID)
	assert.Equal(t, "Jane Wanjiku", v.ClientName)

	_, err = r.GetByTicket(ctx, "org-2", "T-0002")
	assert.ErrorIs(t, err, common.ErrNotFound)

	history, err := r.ListByClient(ctx, "org-1", "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "r2", history[0].ID)
}
