package cache

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declkit/declkit/runtime/mirror"
)

func TestRequestKey_Stable(t *testing.T) {
	r1 := httptest.NewRequest("GET", "/api/classes?kind=method&static=true", nil)
	r2 := httptest.NewRequest("GET", "/api/classes?kind=method&static=true", nil)

	assert.Equal(t, RequestKey(r1), RequestKey(r2))
	assert.True(t, strings.HasPrefix(RequestKey(r1), "query:"))
}

func TestRequestKey_QueryOrderInsensitive(t *testing.T) {
	r1 := httptest.NewRequest("GET", "/api/classes?kind=method&static=true", nil)
	r2 := httptest.NewRequest("GET", "/api/classes?static=true&kind=method", nil)

	assert.Equal(t, RequestKey(r1), RequestKey(r2))
}

func TestRequestKey_Distinguishes(t *testing.T) {
	base := httptest.NewRequest("GET", "/api/classes?kind=method", nil)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"different path", "GET", "/api/hierarchy?kind=method"},
		{"different query value", "GET", "/api/classes?kind=property"},
		{"extra parameter", "GET", "/api/classes?kind=method&all=true"},
		{"different method", "HEAD", "/api/classes?kind=method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := httptest.NewRequest(tt.method, tt.target, nil)
			assert.NotEqual(t, RequestKey(base), RequestKey(other))
		})
	}
}

type widgetClass struct{ ID int }

func TestWatchStore_InvalidatesOnRegistration(t *testing.T) {
	store := mirror.NewStore()
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	err := cache.Set(ctx, "stale", []byte("payload"), 1*time.Minute)
	require.NoError(t, err)

	cancel := WatchStore(cache, store)
	defer cancel()

	// Registration events are delivered synchronously
	store.Decorate(mirror.TypeFor[widgetClass](), "meta")

	_, err = cache.Get(ctx, "stale")
	assert.True(t, IsCacheMiss(err))
}

func TestWatchStore_CancelDetaches(t *testing.T) {
	store := mirror.NewStore()
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	cancel := WatchStore(cache, store)
	cancel()

	err := cache.Set(ctx, "fresh", []byte("payload"), 1*time.Minute)
	require.NoError(t, err)

	store.Decorate(mirror.TypeFor[widgetClass](), "meta")

	value, err := cache.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
}
