package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreate_StampsSyncMetadata(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, ClientInput{FullName: " Jane ", Phone: "0711000111"})
	require.NoError(t, err)

	c, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane", c.FullName)
	assert.Equal(t, "org-1", c.OrganizationID)
	assert.False(t, c.IsSynced)
	assert.False(t, c.IsDeleted)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestClientCreate_RequiresOrganization(t *testing.T) {
	f := newBareFixture(t)
	svc := NewClientService(f.deps)

	_, err := svc.Create(context.Background(), ClientInput{FullName: "Jane", Phone: "0711000111"})
	assert.ErrorIs(t, err, common.ErrOrganizationNotConfigured)
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM clients`))
}

func TestClientCreate_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)

	_, err := svc.Create(context.Background(), ClientInput{Phone: "0711000111"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = svc.Create(context.Background(), ClientInput{FullName: "Jane"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestClientCreate_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	firstID, err := svc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	before, err := svc.GetByID(ctx, firstID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, ClientInput{FullName: "John", Phone: "0711000111"})
	require.ErrorIs(t, err, common.ErrDuplicateEntity)
	var dup *common.DuplicateEntityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone", dup.Field)

	after, err := svc.GetByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM clients`))
}

func TestClientCreate_PhoneOfDeletedClientIsFree(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, id))

	_, err = svc.Create(ctx, ClientInput{FullName: "Jane Again", Phone: "0711000111"})
	assert.NoError(t, err)
}

func TestClientUpdate_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	_, err := svc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	id, err := svc.Create(ctx, ClientInput{FullName: "John", Phone: "0722000222"})
	require.NoError(t, err)

	err = svc.Update(ctx, id, models.ClientPatch{Phone: models.Ptr("0711000111")})
	assert.ErrorIs(t, err, common.ErrDuplicateEntity)

	// keeping its own phone is fine
	assert.NoError(t, svc.Update(ctx, id, models.ClientPatch{Phone: models.Ptr("0722000222")}))
}

func TestClientMutations_KeepRowDirtyAndAdvanceUpdatedAt(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE clients SET is_synced = 1 WHERE id = ?`, id)
	require.NoError(t, err)

	c, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	prev := c.UpdatedAt

	require.NoError(t, svc.Update(ctx, id, models.ClientPatch{Location: models.Ptr("Westlands")}))
	c, err = svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, c.IsSynced)
	assert.True(t, c.UpdatedAt.After(prev))
	prev = c.UpdatedAt

	require.NoError(t, svc.SoftDelete(ctx, id))
	_, err = svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	synced, deleted := f.flags(t, "clients", id)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 1, deleted)

	var updated string
	require.NoError(t, f.db.QueryRow(`SELECT updated_at FROM clients WHERE id = ?`, id).Scan(&updated))
	ts, err := common.ParseTimestamp(updated)
	require.NoError(t, err)
	assert.True(t, ts.After(prev))
}

func TestClientSoftDelete_DoesNotCascadeToRepairs(t *testing.T) {
	f := newFixture(t)
	clientsSvc := NewClientService(f.deps)
	repairsSvc := NewRepairService(f.deps)
	ctx := context.Background()

	id, err := clientsSvc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	r, err := repairsSvc.Create(ctx, RepairInput{ClientID: id, DeviceType: "Laptop"})
	require.NoError(t, err)

	require.NoError(t, clientsSvc.SoftDelete(ctx, id))

	got, err := repairsSvc.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	_, deleted := f.flags(t, "repairs", r.ID)
	assert.Equal(t, 0, deleted)
}

func TestClientSearchListHistory(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.deps)
	ctx := context.Background()

	janeID, err := svc.Create(ctx, ClientInput{FullName: "Jane Wanjiku", Phone: "0711000111"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ClientInput{FullName: "John Otieno", Phone: "0722000222"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "wanj", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, janeID, found[0].ID)

	empty, err := svc.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byPhone, err := svc.GetByPhone(ctx, "0722000222")
	require.NoError(t, err)
	assert.Equal(t, "John Otieno", byPhone.FullName)

	_, err = NewRepairService(f.deps).Create(ctx, RepairInput{ClientID: janeID})
	require.NoError(t, err)
	history, err := svc.History(ctx, janeID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestClientMutations_EmitEvents(t *testing.T) {
	f := newFixture(t)
	var got []events.Event
	f.deps.Bus.Subscribe(func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	svc := NewClientService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, ClientInput{FullName: "Jane", Phone: "0711000111"})
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, id, models.ClientPatch{Email: models.Ptr("j@example.com")}))
	require.NoError(t, svc.SoftDelete(ctx, id))
	_, err = svc.Create(ctx, ClientInput{FullName: "Dup", Phone: "0711000111"})
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, events.ActionCreate, got[0].Action)
	assert.Equal(t, events.ActionUpdate, got[1].Action)
	assert.Equal(t, events.ActionDelete, got[2].Action)
	for _, e := range got {
		assert.Equal(t, "org-1", e.OrganizationID)
		assert.Equal(t, "owner-1", e.UserID)
		assert.Equal(t, events.EntityClient, e.Entity)
	}
}

func TestClientFailedMutation_EmitsNothing(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.deps.Bus.Subscribe(func(ctx context.Context, e events.Event) error {
		calls++
		return nil
	})
	svc := NewClientService(f.deps)

	assert.ErrorIs(t, svc.Update(context.Background(), "missing", models.ClientPatch{}), common.ErrNotFound)
	assert.ErrorIs(t, svc.SoftDelete(context.Background(), "missing"), common.ErrNotFound)
	assert.Zero(t, calls)
}
