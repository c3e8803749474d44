package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, UserInput{Username: "tom", FullName: "Tom Tech", Password: "pw", Role: models.RoleTechnician})
	require.NoError(t, err)

	u, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSynced)

	got, err := svc.Authenticate(ctx, "tom", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = svc.Authenticate(ctx, "tom", []byte("nope"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "ghost", []byte("pw"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUserCreate_Rules(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	_, err := svc.Create(ctx, UserInput{Username: "olive", FullName: "Other", Password: "pw", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, common.ErrDuplicateEntity)

	_, err = svc.Create(ctx, UserInput{Username: "x", FullName: "X", Password: "pw", Role: "janitor"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Create(ctx, UserInput{Username: "x", FullName: "X", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUserAdministration_RequiresManager(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	techID, err := svc.Create(ctx, UserInput{Username: "tom", FullName: "Tom", Password: "pw", Role: models.RoleTechnician})
	require.NoError(t, err)
	tech, err := svc.GetByID(ctx, techID)
	require.NoError(t, err)

	f.deps.Session.Login(tech)
	_, err = svc.Create(ctx, UserInput{Username: "eve", FullName: "Eve", Password: "pw", Role: models.RoleOwner})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.ErrorIs(t, svc.SoftDelete(ctx, "owner-1"), common.ErrUnauthorized)

	f.deps.Session.Logout()
	_, err = svc.Create(ctx, UserInput{Username: "eve", FullName: "Eve", Password: "pw", Role: models.RoleOwner})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUserUpdate_RehashesPasswordAndDeactivates(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	id, err := svc.Create(ctx, UserInput{Username: "tom", FullName: "Tom", Password: "old", Role: models.RoleTechnician})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, models.UserPatch{Password: models.Ptr("new")}))
	_, err = svc.Authenticate(ctx, "tom", []byte("old"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "tom", []byte("new"))
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, models.UserPatch{IsActive: models.Ptr(false)}))
	_, err = svc.Authenticate(ctx, "tom", []byte("new"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUserSoftDelete(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SoftDelete(ctx, "owner-1"), common.ErrInvalidInput)

	id, err := svc.Create(ctx, UserInput{Username: "tom", FullName: "Tom", Password: "pw", Role: models.RoleFrontDesk})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, id))

	_, err = svc.Authenticate(ctx, "tom", []byte("pw"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "owner-1", list[0].ID)

	synced, deleted := f.flags(t, "users", id)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 1, deleted)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	token, err := svc.RequestPasswordReset(ctx, "olive")
	require.NoError(t, err)
	assert.Len(t, token, 32)

	var stored string
	require.NoError(t, f.db.QueryRow(`SELECT reset_token FROM users WHERE id = 'owner-1'`).Scan(&stored))
	assert.NotEqual(t, token, stored)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "fresh"), common.ErrUnauthorized)
	require.NoError(t, svc.ResetPassword(ctx, token, "fresh"))

	_, err = svc.Authenticate(ctx, "olive", []byte("fresh"))
	require.NoError(t, err)

	// single use
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "again"), common.ErrUnauthorized)
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.deps)
	ctx := context.Background()

	token, err := svc.RequestPasswordReset(ctx, "olive")
	require.NoError(t, err)

	f.clock.Set(t0.Add(2 * time.Hour))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "fresh"), common.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "olive", []byte("owner-pass"))
	assert.NoError(t, err)
}
