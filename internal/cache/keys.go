package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/declkit/declkit/runtime/mirror"
)

// RequestKey derives a stable cache key from an introspection request:
// method, path, and sorted query parameters, hashed so equivalent queries
// share one entry regardless of parameter order.
func RequestKey(r *http.Request) string {
	parts := []string{r.Method, r.URL.Path}

	if r.URL.RawQuery != "" {
		query := r.URL.Query()
		names := make([]string, 0, len(query))
		for name := range query {
			names = append(names, name)
		}
		sort.Strings(names)

		var pairs []string
		for _, name := range names {
			values := query[name]
			sort.Strings(values)
			for _, value := range values {
				pairs = append(pairs, name+"="+value)
			}
		}
		parts = append(parts, strings.Join(pairs, "&"))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	// Truncated to 16 bytes for shorter keys.
	return "query:" + hex.EncodeToString(sum[:16])
}

// WatchStore invalidates the cache whenever the metadata store changes,
// so cached responses never outlive a registration. The returned cancel
// function detaches the watcher.
func WatchStore(c Cache, s *mirror.Store) func() {
	return s.Subscribe(func(mirror.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Clear(ctx)
	})
}
