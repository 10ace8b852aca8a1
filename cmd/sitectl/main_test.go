package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/apiserver/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "", "hash-password", "hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("hunter22", strings.TrimSpace(out)))

	out, err = run(t, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("from-stdin", strings.TrimSpace(out)))

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	out, err := run(t, "", "roles")
	require.NoError(t, err)
	for _, r := range []string{"super_admin", "admin", "moderator", "contributor", "user", "banned"} {
		assert.Contains(t, out, r)
	}

	out, err = run(t, "", "roles", "contributor")
	require.NoError(t, err)
	assert.Contains(t, out, "manage_docs")
	assert.NotContains(t, out, "ban_users")

	_, err = run(t, "", "roles", "owner")
	assert.Error(t, err)
}

func TestSessionIssueInspect(t *testing.T) {
	out, err := run(t, "", "session", "issue", "user-42", "--secret", "test-secret", "--ttl", "1h")
	require.NoError(t, err)
	token := strings.SplitN(out, "\n", 2)[0]
	require.NotEmpty(t, token)

	out, err = run(t, "", "session", "inspect", token, "--secret", "test-secret")
	require.NoError(t, err)
	assert.Contains(t, out, "user:    user-42")

	_, err = run(t, "", "session", "inspect", token, "--secret", "other-secret")
	assert.EqualError(t, err, "invalid session")
}

func TestSessionSecretFromEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "env-secret")
	out, err := run(t, "", "session", "issue", "u1")
	require.NoError(t, err)
	token := strings.SplitN(out, "\n", 2)[0]

	codec, err := auth.NewCodec("env-secret", auth.DefaultSessionTTL)
	require.NoError(t, err)
	claims := codec.Decrypt(token)
	require.NotNil(t, claims)
	assert.Equal(t, "u1", claims.UserID)
}

func TestUserCreate(t *testing.T) {
	dir := t.TempDir()
	yaml := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "site.db") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(yaml), 0644))
	t.Setenv("APP_ENV", "test")
	t.Setenv("CONFIG_DIR", dir)
	for _, k := range []string{"DB_DRIVER", "SQLITE_PATH", "MONGO_URI", "BACKEND_ENDPOINT"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_URL", "")

	out, err := run(t, "", "user", "create", "--email", "Ed@Example.com", "--password", "pw123456", "--role", "moderator")
	require.NoError(t, err)
	assert.Contains(t, out, "created ed@example.com")
	assert.Contains(t, out, "role=moderator")

	_, err = run(t, "", "user", "create", "--email", "ed@example.com", "--password", "pw123456")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "", "user", "create", "--email", "x@example.com", "--password", "pw", "--role", "owner")
	assert.ErrorContains(t, err, "unknown role")
}

func TestPostsAndVote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "p1", "title": "Hello Go", "slug": "hello-go", "likes": 3, "dislikes": 1},
		})
	})
	mux.HandleFunc("GET /api/posts/p1/votes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"likes": 3, "dislikes": 1})
	})
	mux.HandleFunc("POST /api/posts/p1/vote", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"likes": 4, "dislikes": 1, "user_vote": "like"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := run(t, "", "posts", "--url", srv.URL, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "hello-go")
	assert.Contains(t, out, "Hello Go")

	out, err = run(t, "", "vote", "p1", "like", "--url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "likes=4 dislikes=1 mine=like\n", out)

	_, err = run(t, "", "vote", "p1", "meh", "--url", srv.URL)
	assert.Error(t, err)
}
