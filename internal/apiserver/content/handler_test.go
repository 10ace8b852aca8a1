package content

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
)

type apiFixture struct {
	*fixture
	mux      *http.ServeMux
	sessions *auth.SessionManager
	users    *storage.UserRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := newFixture(t)
	codec, err := auth.NewCodec("content-test-secret", time.Hour)
	require.NoError(t, err)
	sessions := auth.NewSessionManager(codec, false)
	// 用户与内容共用同一个内存存储
	users := storage.NewUserRepository(f.docs)
	perms := auth.NewPermissionChecker(sessions, users, nil)

	mux := http.NewServeMux()
	NewHandler(f.actions, perms, sessions, nil).RegisterRoutes(mux)
	return &apiFixture{fixture: f, mux: mux, sessions: sessions, users: users}
}

// login 创建指定角色的用户并返回其会话 Cookie
func (f *apiFixture) login(t *testing.T, role rbac.Role) *http.Cookie {
	t.Helper()
	u := &model.User{Email: string(role) + "@example.com", Role: role, Status: model.UserStatusActive}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	rec := httptest.NewRecorder()
	_, err := f.sessions.CreateSession(rec, u.ID)
	require.NoError(t, err)
	return rec.Result().Cookies()[0]
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) model.Result {
	t.Helper()
	var res model.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestAdminPostsRequirePermission(t *testing.T) {
	f := newAPIFixture(t)
	userCookie := f.login(t, rbac.RoleUser)
	contributor := f.login(t, rbac.RoleContributor)

	rec := f.do(t, http.MethodPost, "/api/admin/posts", model.Post{Title: "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/posts", model.Post{Title: "x"}, userCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/posts", model.Post{Title: "Contributor Post"}, contributor)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ID)

	// contributor 没有 manage_pages 与 manage_settings
	rec = f.do(t, http.MethodPost, "/api/admin/pages", model.Page{Title: "About"}, contributor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodPut, "/api/admin/settings/site_name", valueRequest{Value: "x"}, contributor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, rbac.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/admin/posts", model.Post{Title: "Launch"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeResult(t, rec).ID

	// 草稿不公开
	rec = f.do(t, http.MethodGet, "/api/posts/launch", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/posts", nil, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/admin/posts/"+id+"/publish", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/posts/launch", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var post model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, id, post.ID)

	rec = f.do(t, http.MethodGet, "/api/posts?limit=5", nil, nil)
	var posts []model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 1)

	rec = f.do(t, http.MethodGet, "/api/posts?status=draft", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/admin/posts/"+id, map[string]any{"slug": "Not Valid"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/admin/posts/"+id, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/admin/posts/"+id, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/posts", "not an object", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	root := f.login(t, rbac.RoleSuperAdmin)

	rec := f.do(t, http.MethodPut, "/api/admin/settings/site_name", valueRequest{Value: "CodeFix"}, root)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/settings", nil, root)
	assert.JSONEq(t, `{"site_name":"CodeFix"}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/admin/homepage/hero/title", valueRequest{Value: "Hi"}, root)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/admin/homepage", nil, root)
	assert.JSONEq(t, `{"hero.title":"Hi"}`, rec.Body.String())
}

func TestCommentsEnterModeration(t *testing.T) {
	f := newAPIFixture(t)
	mod := f.login(t, rbac.RoleModerator)
	user := f.login(t, rbac.RoleUser)

	res := f.actions.CreatePost(context.Background(), "a", model.Post{Title: "Open", Status: model.StatusPublished})
	require.True(t, res.Success)

	rec := f.do(t, http.MethodPost, "/api/posts/"+res.ID+"/comments", commentRequest{Content: "hi"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/posts/"+res.ID+"/comments", commentRequest{Content: "great post"}, user)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/posts/missing/comments", commentRequest{Content: "x"}, user)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/moderation", nil, mod)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []model.ModerationItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, res.ID, queue[0].TargetID)

	rec = f.do(t, http.MethodPost, "/api/admin/moderation/"+queue[0].ID+"/reject", rejectRequest{Reason: "off topic"}, mod)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/admin/moderation/"+queue[0].ID+"/approve", nil, mod)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, rbac.RoleAdmin)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "shot.txt")
	require.NoError(t, err)
	part.Write([]byte("hello media"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/admin/media", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(admin)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	items := f.actions.ListMedia(context.Background())
	require.Len(t, items, 1)

	rec = f.do(t, http.MethodGet, "/media/"+items[0].ObjectKey, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello media", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/media/uploads/none/x.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/admin/media", nil)
	r.AddCookie(admin)
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
