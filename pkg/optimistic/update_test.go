package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inc(n int) int { return n + 1 }

func TestDoCommits(t *testing.T) {
	u := New(1)
	assert.Equal(t, StateIdle, u.State())

	got, err := Do(context.Background(), u, inc, func(ctx context.Context, predicted int) (int, error) {
		assert.Equal(t, 2, predicted)
		assert.Equal(t, StatePending, u.State())
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	assert.Equal(t, 5, u.Value())
	assert.Equal(t, StateCommitted, u.State())
}

func TestDoRevertsOnFailure(t *testing.T) {
	u := New(1)
	boom := errors.New("boom")

	got, err := Do(context.Background(), u, inc, func(ctx context.Context, predicted int) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, u.Value())
	assert.Equal(t, StateReverted, u.State())
	assert.ErrorIs(t, u.Err(), boom)

	// 回滚后可以再次更新
	_, err = Do(context.Background(), u, inc, func(ctx context.Context, predicted int) (int, error) {
		return predicted, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, u.Value())
	assert.Nil(t, u.Err())
}

func TestTransitions(t *testing.T) {
	u := New("a")
	assert.ErrorIs(t, u.Commit("x"), ErrNotPending)
	assert.ErrorIs(t, u.Revert(nil), ErrNotPending)

	v, err := u.Begin(func(s string) string { return s + "b" })
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	_, err = u.Begin(func(s string) string { return s + "c" })
	assert.ErrorIs(t, err, ErrPending)
	assert.ErrorIs(t, u.Reset("z"), ErrPending)
	assert.Equal(t, "ab", u.Value())

	require.NoError(t, u.Revert(errors.New("nope")))
	assert.Equal(t, "a", u.Value())
	assert.ErrorIs(t, u.Commit("x"), ErrNotPending)

	require.NoError(t, u.Reset("z"))
	assert.Equal(t, StateIdle, u.State())
	assert.Equal(t, "z", u.Value())
}
