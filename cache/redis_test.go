package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedis запускается только при заданном REDIS_TEST_ADDR
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR не задан")
	}
	ctx := context.Background()

	r, err := Open(ctx, addr)
	require.NoError(t, err)
	defer r.Close()

	key := "test_" + time.Now().Format("150405.000000")
	require.NoError(t, r.Set(ctx, key, []byte("value"), time.Minute))

	v, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), v)

	require.NoError(t, r.Delete(ctx, key))
	_, ok, err = r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
