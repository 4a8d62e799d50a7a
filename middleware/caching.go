package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// CacheHeaderAdder wraps an http.Handler and adds cache-control headers.
// This is useful for static assets that can be cached by browsers.
type CacheHeaderAdder struct {
	maybe        func(r *http.Request) bool
	next         http.Handler
	cacheControl string
}

// CacheHeaderAdderConfig configures the caching behavior.
type CacheHeaderAdderConfig struct {
	// Disabled turns the adder into a pass-through, which is handy while
	// editing CSS.
	Disabled bool

	// Add cache headers, but only if this returns true.
	Maybe func(r *http.Request) bool

	// Next is the handler to wrap.
	Next http.Handler

	// MaxAge is how long the content should be cached.
	MaxAge time.Duration

	// Immutable indicates that the content will never change.
	Immutable bool

	// CachePrivate keeps the content out of shared caches (CDNs, proxies).
	CachePrivate bool

	// NoStore forbids caching entirely, for pages built from live data.
	NoStore bool
}

func cacheControl(config *CacheHeaderAdderConfig) string {
	if config.Disabled {
		return ""
	}
	if config.NoStore {
		return "no-store"
	}

	parts := []string{"public"}
	if config.CachePrivate {
		parts[0] = "private"
	}
	if secs := int(config.MaxAge.Seconds()); secs > 0 {
		parts = append(parts, fmt.Sprintf("max-age=%d", secs))
	}
	if config.Immutable {
		parts = append(parts, "immutable")
	}
	return strings.Join(parts, ", ")
}

// NewCacheHeaderAdder creates a new caching middleware.
func NewCacheHeaderAdder(config *CacheHeaderAdderConfig) *CacheHeaderAdder {
	cc := cacheControl(config)
	log.WithField("cache_control", cc).Debug("cache header adder")
	return &CacheHeaderAdder{
		maybe:        config.Maybe,
		next:         config.Next,
		cacheControl: cc,
	}
}

func (ch *CacheHeaderAdder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ch.cacheControl != "" && (ch.maybe == nil || ch.maybe(r)) {
		w.Header().Set("Cache-Control", ch.cacheControl)
	}
	ch.next.ServeHTTP(w, r)
}
