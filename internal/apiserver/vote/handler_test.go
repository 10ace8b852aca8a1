package vote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/apiserver/content"
	"codefix-admin/internal/shared/cache"
	cacheredis "codefix-admin/internal/shared/cache/redis"
	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
)

type voteFixture struct {
	handler  *Handler
	actions  *content.Actions
	sessions *auth.SessionManager
	users    *storage.UserRepository
	mux      *http.ServeMux
}

func newVoteFixture(t *testing.T, votes cache.VoteStore) *voteFixture {
	t.Helper()
	docs := storage.NewMemoryStore()
	actions := content.NewActions(docs, cache.NewNoOpCache(), eventbus.NewRecordingBus(), nil)
	codec, err := auth.NewCodec("vote-test-secret", time.Hour)
	require.NoError(t, err)
	sessions := auth.NewSessionManager(codec, false)

	h := NewHandler(votes, actions, sessions, false, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &voteFixture{handler: h, actions: actions, sessions: sessions, users: storage.NewUserRepository(docs), mux: mux}
}

func newRedisVotes(t *testing.T) cache.VoteStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cacheredis.NewStoreFromClient(client)
}

func (f *voteFixture) publishedPost(t *testing.T) string {
	t.Helper()
	res := f.actions.CreatePost(context.Background(), "", model.Post{Title: "Hello", Status: model.StatusPublished})
	require.True(t, res.Success, res.Error)
	return res.ID
}

func (f *voteFixture) userCookie(t *testing.T) *http.Cookie {
	t.Helper()
	u := &model.User{Email: "reader@example.com", Role: rbac.RoleUser, Status: model.UserStatusActive}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	rec := httptest.NewRecorder()
	_, err := f.sessions.CreateSession(rec, u.ID)
	require.NoError(t, err)
	return rec.Result().Cookies()[0]
}

func (f *voteFixture) vote(t *testing.T, postID, typ string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"type": typ})
	r := httptest.NewRequest(http.MethodPost, "/api/posts/"+postID+"/vote", bytes.NewReader(body))
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, r)
	return rec
}

func decodeVote(t *testing.T, rec *httptest.ResponseRecorder) cache.VoteResult {
	t.Helper()
	var res cache.VoteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestVoteToggleAndSwitch(t *testing.T) {
	f := newVoteFixture(t, newRedisVotes(t))
	id := f.publishedPost(t)
	user := f.userCookie(t)

	rec := f.vote(t, id, "like", user)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeVote(t, rec)
	assert.Equal(t, int64(1), res.Likes)
	assert.Equal(t, cache.VoteLike, res.UserVote)

	// 改投：计数从 like 移到 dislike
	res = decodeVote(t, f.vote(t, id, "dislike", user))
	assert.Equal(t, int64(0), res.Likes)
	assert.Equal(t, int64(1), res.Dislikes)
	assert.Equal(t, cache.VoteDislike, res.UserVote)

	// 同票再投：撤销
	res = decodeVote(t, f.vote(t, id, "dislike", user))
	assert.Equal(t, int64(0), res.Likes)
	assert.Equal(t, int64(0), res.Dislikes)
	assert.Equal(t, cache.VoteNone, res.UserVote)
}

func TestVoteCountsSyncedToPost(t *testing.T) {
	f := newVoteFixture(t, newRedisVotes(t))
	id := f.publishedPost(t)

	f.vote(t, id, "like", f.userCookie(t))
	post := f.actions.GetPost(context.Background(), id)
	require.NotNil(t, post)
	assert.Equal(t, int64(1), post.Likes)
	assert.Equal(t, int64(0), post.Dislikes)
}

func TestAnonymousVoterCookie(t *testing.T) {
	f := newVoteFixture(t, newRedisVotes(t))
	id := f.publishedPost(t)

	rec := f.vote(t, id, "like")
	require.Equal(t, http.StatusOK, rec.Code)
	var voter *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == VoterCookie {
			voter = c
		}
	}
	require.NotNil(t, voter)
	assert.True(t, voter.HttpOnly)

	// 同一匿名访客再投同票即撤销
	rec = f.vote(t, id, "like", voter)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decodeVote(t, rec).Likes)
	assert.Empty(t, rec.Result().Cookies(), "existing voter cookie is reused")

	// 另一个匿名访客计数独立
	res := decodeVote(t, f.vote(t, id, "like"))
	assert.Equal(t, int64(1), res.Likes)

	r := httptest.NewRequest(http.MethodGet, "/api/posts/"+id+"/votes", nil)
	r.AddCookie(voter)
	get := httptest.NewRecorder()
	f.mux.ServeHTTP(get, r)
	require.Equal(t, http.StatusOK, get.Code)
	res = decodeVote(t, get)
	assert.Equal(t, int64(1), res.Likes)
	assert.Equal(t, cache.VoteNone, res.UserVote)
}

func TestVoteRejectsBadInput(t *testing.T) {
	f := newVoteFixture(t, newRedisVotes(t))
	id := f.publishedPost(t)

	assert.Equal(t, http.StatusBadRequest, f.vote(t, id, "love").Code)
	assert.Equal(t, http.StatusBadRequest, f.vote(t, id, "").Code)
	assert.Equal(t, http.StatusNotFound, f.vote(t, "missing", "like").Code)

	draft := f.actions.CreatePost(context.Background(), "", model.Post{Title: "Draft"})
	require.True(t, draft.Success)
	assert.Equal(t, http.StatusNotFound, f.vote(t, draft.ID, "like").Code)
}

func TestVoteUnavailableWithoutRedis(t *testing.T) {
	f := newVoteFixture(t, cache.NewNoOpCache())
	id := f.publishedPost(t)

	var observed []bool
	f.handler.OnVote = func(_ cache.VoteType, ok bool) { observed = append(observed, ok) }

	assert.Equal(t, http.StatusServiceUnavailable, f.vote(t, id, "like").Code)
	assert.Equal(t, []bool{false}, observed)

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/"+id+"/votes", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
