// Package cache 缓存层类型定义
package cache

import "errors"

// VoteType 投票类型
type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
	VoteNone    VoteType = ""
)

// Valid 是否为可投的票型
func (v VoteType) Valid() bool {
	return v == VoteLike || v == VoteDislike
}

// VoteResult 投票后的计数与投票者当前状态
type VoteResult struct {
	PostID   string   `json:"post_id"`
	Likes    int64    `json:"likes"`
	Dislikes int64    `json:"dislikes"`
	UserVote VoteType `json:"user_vote"`
}

// ============================================================================
// Key 前缀和常量
// ============================================================================

const (
	// KeyRender 渲染缓存 render:{path}
	KeyRender = "render:"
	// KeyRenderIndex 所有渲染缓存键的索引集合
	KeyRenderIndex = "render:index"
	// KeyVoteCounts votes:{postID}:counts（hash: likes/dislikes）
	KeyVoteCounts = "votes:%s:counts"
	// KeyVoteVoters votes:{postID}:voters（hash: voterID → vote）
	KeyVoteVoters = "votes:%s:voters"
)

// ErrUnavailable 缓存后端未配置
var ErrUnavailable = errors.New("cache backend unavailable")
