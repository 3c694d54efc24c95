package commands

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declkit/declkit/internal/cache"
	"github.com/declkit/declkit/internal/cli/config"
)

func TestServeCommand(t *testing.T) {
	t.Run("has correct usage", func(t *testing.T) {
		cmd := NewServeCommand()
		assert.Equal(t, "serve", cmd.Use)
		assert.NotEmpty(t, cmd.Short)
		assert.NotEmpty(t, cmd.Long)
		assert.NotEmpty(t, cmd.Example)
	})

	t.Run("has server flags", func(t *testing.T) {
		cmd := NewServeCommand()

		addrFlag := cmd.Flags().Lookup("addr")
		require.NotNil(t, addrFlag)
		assert.Equal(t, "", addrFlag.DefValue)

		snapshotFlag := cmd.Flags().Lookup("snapshot")
		require.NotNil(t, snapshotFlag)
		assert.Equal(t, "declkit.snapshot.json", snapshotFlag.DefValue)

		cacheFlag := cmd.Flags().Lookup("cache")
		require.NotNil(t, cacheFlag)
		assert.Equal(t, "", cacheFlag.DefValue)

		ttlFlag := cmd.Flags().Lookup("cache-ttl")
		require.NotNil(t, ttlFlag)
		assert.Equal(t, "0s", ttlFlag.DefValue)

		redisFlag := cmd.Flags().Lookup("redis-addr")
		require.NotNil(t, redisFlag)
		assert.Equal(t, "", redisFlag.DefValue)

		watchFlag := cmd.Flags().Lookup("watch")
		require.NotNil(t, watchFlag)
		assert.Equal(t, "false", watchFlag.DefValue)
	})
}

func TestBuildCache(t *testing.T) {
	t.Run("creates a memory cache", func(t *testing.T) {
		c, err := buildCache("memory", time.Minute, "", config.RedisConfig{})
		require.NoError(t, err)
		require.NotNil(t, c)

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

		got, err := c.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)
	})

	t.Run("connects a redis cache", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		c, err := buildCache("redis", time.Minute, mr.Addr(), config.RedisConfig{})
		require.NoError(t, err)
		require.NotNil(t, c)

		redisCache, ok := c.(*cache.RedisCache)
		require.True(t, ok)
		defer redisCache.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

		got, err := c.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)
	})

	t.Run("reports an unreachable redis server", func(t *testing.T) {
		_, err := buildCache("redis", 0, "127.0.0.1:1", config.RedisConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis at 127.0.0.1:1")
	})

	t.Run("rejects an unsupported backend", func(t *testing.T) {
		_, err := buildCache("memcached", 0, "", config.RedisConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported cache backend: memcached")
	})
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{":7474", "localhost:7474"},
		{"0.0.0.0:7474", "0.0.0.0:7474"},
		{"example.com:80", "example.com:80"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, displayAddr(tt.addr))
	}
}
