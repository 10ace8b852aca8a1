package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/pkg/optimistic"
)

func TestToggle(t *testing.T) {
	s := VoteState{}
	s = s.Toggle("like")
	assert.Equal(t, VoteState{Likes: 1, UserVote: "like"}, s)
	s = s.Toggle("dislike")
	assert.Equal(t, VoteState{Dislikes: 1, UserVote: "dislike"}, s)
	s = s.Toggle("dislike")
	assert.Equal(t, VoteState{}, s)
}

// fakeAPI 模拟投票接口；fail 为 true 时返回 503
type fakeAPI struct {
	mu    sync.Mutex
	state VoteState
	fail  bool
	calls int
	// seen 请求到达时客户端本地看到的状态
	seen func()
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/posts/p1/votes":
		json.NewEncoder(w).Encode(f.state)
	case r.Method == http.MethodPost && r.URL.Path == "/api/posts/p1/vote":
		f.calls++
		if f.seen != nil {
			f.seen()
		}
		if f.fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "voting is unavailable"})
			return
		}
		var req struct {
			Type string `json:"type"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.state = f.state.Toggle(req.Type)
		json.NewEncoder(w).Encode(f.state)
	case r.Method == http.MethodGet && r.URL.Path == "/api/posts":
		json.NewEncoder(w).Encode([]Post{{ID: "p1", Title: "Hello", Slug: "hello"}})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestVoteCommits(t *testing.T) {
	api := &fakeAPI{state: VoteState{Likes: 3}}
	c := newTestClient(t, api)

	_, err := c.Votes(context.Background(), "p1")
	require.NoError(t, err)

	api.seen = func() {
		// 请求进行中时本地已经是预测值
		s, st := c.LocalVotes("p1")
		assert.Equal(t, int64(4), s.Likes)
		assert.Equal(t, optimistic.StatePending, st)
	}
	s, err := c.Vote(context.Background(), "p1", "like")
	require.NoError(t, err)
	assert.Equal(t, VoteState{Likes: 4, UserVote: "like"}, s)

	local, st := c.LocalVotes("p1")
	assert.Equal(t, s, local)
	assert.Equal(t, optimistic.StateCommitted, st)
}

func TestVoteRevertsOnErrorStatus(t *testing.T) {
	api := &fakeAPI{state: VoteState{Likes: 3}, fail: true}
	c := newTestClient(t, api)
	_, err := c.Votes(context.Background(), "p1")
	require.NoError(t, err)

	s, err := c.Vote(context.Background(), "p1", "like")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "voting is unavailable", apiErr.Message)

	assert.Equal(t, VoteState{Likes: 3}, s)
	local, st := c.LocalVotes("p1")
	assert.Equal(t, VoteState{Likes: 3}, local)
	assert.Equal(t, optimistic.StateReverted, st)
	// 不重试
	assert.Equal(t, 1, api.callCount())
}

func TestVoteRevertsOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base)
	s, err := c.Vote(context.Background(), "p1", "dislike")
	require.Error(t, err)
	assert.Equal(t, VoteState{}, s)
	_, st := c.LocalVotes("p1")
	assert.Equal(t, optimistic.StateReverted, st)
}

func TestListPosts(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	posts, err := c.ListPosts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Slug)
}
