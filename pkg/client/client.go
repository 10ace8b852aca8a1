// Package client 站点公开 API 的 Go 客户端
//
// 投票使用乐观更新：本地计数先变，请求失败或返回非 2xx 时回滚，不重试。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"codefix-admin/pkg/optimistic"
)

// APIError 服务端返回非 2xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// VoteState 文章投票状态
type VoteState struct {
	Likes    int64  `json:"likes"`
	Dislikes int64  `json:"dislikes"`
	UserVote string `json:"user_vote"`
}

// Toggle 本地预测投票结果（与服务端的切换语义一致）
func (s VoteState) Toggle(vote string) VoteState {
	adjust := func(v string, delta int64) {
		switch v {
		case "like":
			s.Likes += delta
		case "dislike":
			s.Dislikes += delta
		}
	}
	if s.UserVote == vote {
		adjust(vote, -1)
		s.UserVote = ""
		return s
	}
	adjust(s.UserVote, -1)
	adjust(vote, 1)
	s.UserVote = vote
	return s
}

// Post 公开文章
type Post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Likes       int64      `json:"likes"`
	Dislikes    int64      `json:"dislikes"`
	PublishedAt *time.Time `json:"published_at"`
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client 公开 API 客户端
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	votes map[string]*optimistic.Update[VoteState]
}

// New 创建客户端；默认带 Cookie Jar 以保持匿名 voter_id
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second, Jar: jar},
		votes:   make(map[string]*optimistic.Update[VoteState]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) voteState(postID string) *optimistic.Update[VoteState] {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.votes[postID]
	if !ok {
		u = optimistic.New(VoteState{})
		c.votes[postID] = u
	}
	return u
}

// LocalVotes 本地投票状态与更新状态
func (c *Client) LocalVotes(postID string) (VoteState, optimistic.State) {
	u := c.voteState(postID)
	return u.Value(), u.State()
}

// Votes 从服务端读取投票并刷新本地状态
func (c *Client) Votes(ctx context.Context, postID string) (VoteState, error) {
	var s VoteState
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID)+"/votes", nil, &s); err != nil {
		return VoteState{}, err
	}
	c.voteState(postID).Reset(s)
	return s, nil
}

// Vote 乐观投票：立即更新本地计数，失败时回滚并返回错误
func (c *Client) Vote(ctx context.Context, postID, vote string) (VoteState, error) {
	u := c.voteState(postID)
	return optimistic.Do(ctx, u,
		func(s VoteState) VoteState { return s.Toggle(vote) },
		func(ctx context.Context, _ VoteState) (VoteState, error) {
			var s VoteState
			err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/vote", map[string]string{"type": vote}, &s)
			return s, err
		})
}

// ListPosts 列出已发布文章
func (c *Client) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	path := "/api/posts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var posts []Post
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
