// Package redis 投票计数操作
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"codefix-admin/internal/shared/cache"
)

// castVoteScript 切换投票：同票撤销，异票改投
//
// KEYS[1] 计数 hash，KEYS[2] 投票者 hash；ARGV[1] 投票者，ARGV[2] 票型
var castVoteScript = redis.NewScript(`
local fields = {like = "likes", dislike = "dislikes"}
local prev = redis.call("HGET", KEYS[2], ARGV[1])
local current = ""
if prev == ARGV[2] then
	redis.call("HDEL", KEYS[2], ARGV[1])
	redis.call("HINCRBY", KEYS[1], fields[prev], -1)
else
	if prev and fields[prev] then
		redis.call("HINCRBY", KEYS[1], fields[prev], -1)
	end
	redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
	redis.call("HINCRBY", KEYS[1], fields[ARGV[2]], 1)
	current = ARGV[2]
end
local likes = tonumber(redis.call("HGET", KEYS[1], "likes") or "0")
local dislikes = tonumber(redis.call("HGET", KEYS[1], "dislikes") or "0")
return {likes, dislikes, current}
`)

func voteKeys(postID string) []string {
	return []string{
		fmt.Sprintf(cache.KeyVoteCounts, postID),
		fmt.Sprintf(cache.KeyVoteVoters, postID),
	}
}

// CastVote 原子地切换投票
func (s *Store) CastVote(ctx context.Context, postID, voterID string, vote cache.VoteType) (*cache.VoteResult, error) {
	if !vote.Valid() {
		return nil, fmt.Errorf("invalid vote type %q", vote)
	}
	res, err := castVoteScript.Run(ctx, s.client, voteKeys(postID), voterID, string(vote)).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected vote script result: %v", res)
	}
	likes, _ := res[0].(int64)
	dislikes, _ := res[1].(int64)
	current, _ := res[2].(string)
	return &cache.VoteResult{
		PostID:   postID,
		Likes:    likes,
		Dislikes: dislikes,
		UserVote: cache.VoteType(current),
	}, nil
}

// GetVotes 读取计数与投票者当前状态（voterID 为空时不查询）
func (s *Store) GetVotes(ctx context.Context, postID, voterID string) (*cache.VoteResult, error) {
	keys := voteKeys(postID)
	counts, err := s.client.HGetAll(ctx, keys[0]).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get votes: %w", err)
	}
	result := &cache.VoteResult{PostID: postID}
	fmt.Sscan(counts["likes"], &result.Likes)
	fmt.Sscan(counts["dislikes"], &result.Dislikes)

	if voterID != "" {
		v, err := s.client.HGet(ctx, keys[1], voterID).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to get voter: %w", err)
		}
		result.UserVote = cache.VoteType(v)
	}
	return result, nil
}
