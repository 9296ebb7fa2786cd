package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok, "entry expires at ttl")

	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, m.Delete(ctx, "b"))
	_, ok, _ = m.Get(ctx, "b")
	assert.False(t, ok)
}

func TestFetch_LoadsOnceAndCaches(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"OB1", "OB2"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(context.Background(), m, ObrasKey("acme"), DefaultTTL, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"OB1", "OB2"}, got)
	}
	assert.Equal(t, 1, calls)
}

func TestFetch_ErrorNotCached(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	boom := errors.New("backend down")
	_, err := Fetch(context.Background(), m, UnitsKey("acme", "OB1"), DefaultTTL, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok, _ := m.Get(context.Background(), UnitsKey("acme", "OB1"))
	assert.False(t, ok)
}

func TestFetch_NilCache(t *testing.T) {
	t.Parallel()

	got, err := Fetch(context.Background(), nil, "k", time.Second, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestNew_EmptyAddrIsMemory(t *testing.T) {
	t.Parallel()

	c, err := New("", "", 0, nil)
	require.NoError(t, err)
	_, isMemory := c.(*Memory)
	assert.True(t, isMemory)
}
