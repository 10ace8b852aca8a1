package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(NewMemoryStore())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	user := &model.User{
		Email:        "Editor@Example.com",
		Username:     "editor",
		PasswordHash: "hash",
		Role:         rbac.RoleContributor,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	require.NotEmpty(t, user.ID)

	dup := *user
	dup.ID = ""
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), ErrDuplicate)

	got, err := repo.GetUserByEmail(ctx, "editor@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, rbac.RoleContributor, got.Role)
	assert.True(t, now.Equal(got.CreatedAt))

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", byID.Username)

	missing, err := repo.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))
	got, _ = repo.GetUserByID(ctx, user.ID)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.NoError(t, repo.UpdateUserStatus(ctx, user.ID, model.UserStatusDisabled))
	got, _ = repo.GetUserByID(ctx, user.ID)
	assert.Equal(t, model.UserStatusDisabled, got.Status)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
