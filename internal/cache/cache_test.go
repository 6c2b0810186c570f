package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewMemory(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stats", map[string]int{"users": 3}, time.Minute))
	var got map[string]int
	ok, err := c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got["users"])

	clock.Advance(time.Minute)
	ok, err = c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory(clockwork.NewFakeClock())
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, c.Delete(ctx, "k"))
	var s string
	ok, err := c.Get(ctx, "k", &s)
	require.NoError(t, err)
	assert.False(t, ok)
}
