package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GenerateETag generates a strong ETag for the given content
func GenerateETag(content []byte) string {
	hash := sha256.Sum256(content)
	// Truncated to 16 bytes for shorter ETags.
	return fmt.Sprintf(`"%s"`, hex.EncodeToString(hash[:16]))
}

// ParseIfNoneMatch parses an If-None-Match header into its ETag values
func ParseIfNoneMatch(header string) []string {
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var etags []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag checks if the given ETag matches any of the provided ETags.
// Comparison is weak: W/ prefixes are ignored on both sides.
func MatchesETag(etag string, etags []string) bool {
	if len(etags) == 0 {
		return false
	}
	if len(etags) == 1 && etags[0] == "*" {
		return true
	}

	for _, e := range etags {
		if stripWeak(e) == stripWeak(etag) {
			return true
		}
	}
	return false
}

func stripWeak(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}

// CheckConditionalRequest checks if a conditional request should return
// 304 Not Modified, writing the status when it does.
func CheckConditionalRequest(w http.ResponseWriter, r *http.Request, etag string, lastModified time.Time) bool {
	// If-None-Match takes precedence over If-Modified-Since.
	if header := r.Header.Get("If-None-Match"); header != "" {
		if MatchesETag(etag, ParseIfNoneMatch(header)) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
		return false
	}

	if header := r.Header.Get("If-Modified-Since"); header != "" && !lastModified.IsZero() {
		since, err := http.ParseTime(header)
		if err == nil && !lastModified.Truncate(time.Second).After(since) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}

	return false
}

// SetCacheHeaders sets appropriate cache headers on the response
func SetCacheHeaders(w http.ResponseWriter, etag string, lastModified time.Time, cacheControl string) {
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	if !lastModified.IsZero() {
		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
}
