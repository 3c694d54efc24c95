package cache_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/declkit/declkit/internal/cache"
	"github.com/declkit/declkit/runtime/mirror"
)

type widget struct {
	Name string
}

// Example_memoryCache demonstrates basic usage of the memory cache
func Example_memoryCache() {
	c := cache.NewMemoryCache()
	defer c.Close()

	ctx := context.Background()
	_ = c.Set(ctx, "class:widget", []byte("rendered view"), 5*time.Minute)

	value, _ := c.Get(ctx, "class:widget")
	fmt.Println(string(value))

	// Output: rendered view
}

// Example_httpCaching demonstrates HTTP response caching with middleware
func Example_httpCaching() {
	c := cache.NewMemoryCache()
	defer c.Close()

	config := cache.DefaultMiddlewareConfig(c)
	config.TTL = 5 * time.Minute

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Hello, World!"))
	})

	cachedHandler := cache.Middleware(config)(handler)

	// First request misses and fills the cache
	w1 := httptest.NewRecorder()
	cachedHandler.ServeHTTP(w1, httptest.NewRequest("GET", "/api/classes", nil))

	fmt.Println("First request:", w1.Header().Get("X-Cache"))
	fmt.Println("Response:", w1.Body.String())

	// Second request is served from the cache
	w2 := httptest.NewRecorder()
	cachedHandler.ServeHTTP(w2, httptest.NewRequest("GET", "/api/classes", nil))

	fmt.Println("Second request:", w2.Header().Get("X-Cache"))
	fmt.Println("Has ETag:", w2.Header().Get("ETag") != "")

	// Output:
	// First request: MISS
	// Response: Hello, World!
	// Second request: HIT
	// Has ETag: true
}

// Example_conditionalGet demonstrates conditional GET with ETags
func Example_conditionalGet() {
	c := cache.NewMemoryCache()
	defer c.Close()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Hello, World!"))
	})

	cachedHandler := cache.Middleware(cache.DefaultMiddlewareConfig(c))(handler)

	// Prime the cache, then fetch the ETag from a hit
	w1 := httptest.NewRecorder()
	cachedHandler.ServeHTTP(w1, httptest.NewRequest("GET", "/api/classes", nil))

	w2 := httptest.NewRecorder()
	cachedHandler.ServeHTTP(w2, httptest.NewRequest("GET", "/api/classes", nil))
	etag := w2.Header().Get("ETag")

	// Replay with If-None-Match
	r3 := httptest.NewRequest("GET", "/api/classes", nil)
	r3.Header.Set("If-None-Match", etag)
	w3 := httptest.NewRecorder()
	cachedHandler.ServeHTTP(w3, r3)

	fmt.Println("Status Code:", w3.Code)
	fmt.Println("Body Empty:", w3.Body.Len() == 0)

	// Output:
	// Status Code: 304
	// Body Empty: true
}

// Example_storeInvalidation demonstrates cache invalidation driven by
// metadata registrations
func Example_storeInvalidation() {
	store := mirror.NewStore()
	c := cache.NewMemoryCache()
	defer c.Close()

	ctx := context.Background()
	_ = c.Set(ctx, "query:widgets", []byte("stale view"), 5*time.Minute)

	stop := cache.WatchStore(c, store)
	defer stop()

	// Registering metadata clears cached responses
	store.Decorate(mirror.TypeFor[widget](), "entity")

	_, err := c.Get(ctx, "query:widgets")
	fmt.Println("Invalidated:", cache.IsCacheMiss(err))

	// Output: Invalidated: true
}
