package cache

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// MiddlewareConfig configures the HTTP response caching middleware.
type MiddlewareConfig struct {
	// Cache backend to store responses in
	Cache Cache

	// TTL for cached responses (0 uses the backend default)
	TTL time.Duration

	// SkipPaths are path prefixes that bypass the cache entirely
	SkipPaths []string

	// CacheControl header value set on cacheable responses
	CacheControl string
}

// DefaultMiddlewareConfig returns a middleware config with sensible defaults.
func DefaultMiddlewareConfig(c Cache) MiddlewareConfig {
	return MiddlewareConfig{
		Cache:        c,
		TTL:          0,
		CacheControl: "public, max-age=300",
	}
}

// cachedResponse is the serialized form of a recorded response.
type cachedResponse struct {
	StatusCode   int         `json:"status_code"`
	Headers      http.Header `json:"headers"`
	Body         []byte      `json:"body"`
	ETag         string      `json:"etag"`
	LastModified time.Time   `json:"last_modified"`
}

// Middleware returns middleware that caches successful GET responses.
// Cached hits honor conditional requests and respond 304 when the
// client already holds the current representation.
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Cache == nil || r.Method != http.MethodGet || skipPath(config.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := RequestKey(r)

			if data, err := config.Cache.Get(r.Context(), key); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal(data, &cached); err == nil {
					serveCached(w, r, &cached, config.CacheControl)
					return
				}
				// Corrupt entry, drop it and fall through to the handler.
				_ = config.Cache.Delete(r.Context(), key)
			}

			// Header must be set before the handler commits the response.
			w.Header().Set("X-Cache", "MISS")

			rec := newResponseRecorder(w)
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 300 && !rec.hijacked {
				storeResponse(r.Context(), config, key, rec)
			}
		})
	}
}

func serveCached(w http.ResponseWriter, r *http.Request, cached *cachedResponse, cacheControl string) {
	SetCacheHeaders(w, cached.ETag, cached.LastModified, cacheControl)
	w.Header().Set("X-Cache", "HIT")

	if CheckConditionalRequest(w, r, cached.ETag, cached.LastModified) {
		return
	}

	for k, vals := range cached.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func storeResponse(ctx context.Context, config MiddlewareConfig, key string, rec *responseRecorder) {
	body := rec.body.Bytes()
	cached := cachedResponse{
		StatusCode:   rec.statusCode,
		Headers:      sanitizeHeaders(rec.Header()),
		Body:         body,
		ETag:         GenerateETag(body),
		LastModified: time.Now().UTC(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	_ = config.Cache.Set(ctx, key, data, config.TTL)
}

// sanitizeHeaders copies headers worth replaying. Per-response headers
// are dropped: the server sets Date itself and cache hits re-derive the
// validator headers from the stored record.
func sanitizeHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		switch k {
		case "Date", "X-Cache", "Set-Cookie", "Etag", "Last-Modified", "Cache-Control":
			continue
		}
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func skipPath(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// responseRecorder captures the response for caching while writing it
// through to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
	hijacked    bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Hijack lets upgraded connections (websockets) take over the socket.
// Hijacked responses are never cached.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	r.hijacked = true
	return hj.Hijack()
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
