package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/shared/rbac"
)

func TestContentStatusValid(t *testing.T) {
	for _, s := range []ContentStatus{StatusDraft, StatusPublished, StatusArchived} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ContentStatus("").Valid())
	assert.False(t, ContentStatus("deleted").Valid())
}

func TestResultConstructors(t *testing.T) {
	assert.Equal(t, Result{Success: true, ID: "p1"}, OK("p1"))
	assert.Equal(t, CodeInternal, Fail("boom").Code)
	assert.Equal(t, CodeInvalid, Invalid("bad").Code)
	assert.Equal(t, CodeNotFound, NotFound("gone").Code)
	assert.Equal(t, CodeUnavailable, Unavailable("down").Code)
	assert.False(t, Fail("boom").Success)
}

// 成功结果序列化时不带 error 和 code
func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(OK("p1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"id":"p1"}`, string(data))

	data, err = json.Marshal(NotFound("post not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"post not found","code":"not_found"}`, string(data))
}

func TestUserPublic(t *testing.T) {
	var nilUser *User
	assert.Nil(t, nilUser.Public())

	u := &User{ID: "u1", Email: "a@example.com", PasswordHash: "hash", Role: rbac.RoleBanned}
	p := u.Public()
	assert.Equal(t, "u1", p.ID)
	assert.NotNil(t, p.Permissions)
	assert.Empty(t, p.Permissions)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
	assert.Contains(t, string(data), `"permissions":[]`)

	u.Role = rbac.RoleContributor
	assert.Equal(t, rbac.Permissions(rbac.RoleContributor), u.Public().Permissions)
}
