package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func createUser(t *testing.T, db *DB, email string, role model.Role) model.User {
	t.Helper()
	ctx := context.Background()
	user, err := NewUserRepository(db).Create(ctx, model.User{Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = NewProfileRepository(db).Create(ctx, model.Profile{ID: user.ID, Role: role})
	require.NoError(t, err)
	return user
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestUserRepo(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.Create(ctx, model.User{Email: " Ana@Exemplo.com ", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana@exemplo.com", user.Email)

	got, err := repo.GetByEmail(ctx, "ANA@exemplo.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "h", got.PasswordHash)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = repo.Create(ctx, model.User{Email: "ana@exemplo.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, err = repo.GetByID(ctx, "nao-existe")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	var se *storage.Error
	assert.ErrorAs(t, err, &se)
}

func TestProfileRepo_InstanceName(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com", model.RoleUser)

	p, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, p.InstanceName)
	assert.Equal(t, model.RoleUser, p.Role)

	p, err = repo.SetInstanceName(ctx, user.ID, "inst123")
	require.NoError(t, err)
	assert.Equal(t, "inst123", p.Instance())

	other := createUser(t, db, "b@x.com", model.RoleUser)
	_, err = repo.SetInstanceName(ctx, other.ID, "inst123")
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, repo.ClearInstanceName(ctx, user.ID))
	p, err = repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Instance())

	assert.ErrorIs(t, repo.ClearInstanceName(ctx, "nao-existe"), storage.ErrNotFound)
}

func TestProfileRepo_AdminProcedures(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	admin := createUser(t, db, "admin@x.com", model.RoleAdmin)
	user := createUser(t, db, "user@x.com", model.RoleUser)
	_, err := repo.SetInstanceName(ctx, user.ID, "inst-u")
	require.NoError(t, err)

	list, err := repo.ListUsersWithProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byEmail := map[string]model.UserProfile{}
	for _, u := range list {
		byEmail[u.Email] = u
	}
	assert.Equal(t, model.RoleAdmin, byEmail["admin@x.com"].Role)
	assert.Equal(t, "inst-u", byEmail["user@x.com"].Instance())

	require.NoError(t, repo.UpdateRole(ctx, user.ID, model.RoleAdmin))
	p, _ := repo.Get(ctx, user.ID)
	assert.Equal(t, model.RoleAdmin, p.Role)

	require.NoError(t, repo.AdminClearInstanceName(ctx, user.ID))
	p, _ = repo.Get(ctx, user.ID)
	assert.Nil(t, p.InstanceName)

	require.NoError(t, repo.DeleteUserByAdmin(ctx, user.ID))
	_, err = repo.Get(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = NewUserRepository(db).GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteUserByAdmin(ctx, user.ID), storage.ErrNotFound)

	list, err = repo.ListUsersWithProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, admin.ID, list[0].ID)
}
