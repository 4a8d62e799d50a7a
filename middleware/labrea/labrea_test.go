package labrea

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLast2(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/wp-login.php", "wp-login.php"},
		{"/blog/wp-admin/", "blog/wp-admin"},
		{"/a/b/wp-admin/setup-config.php", "wp-admin/setup-config.php"},
		{"/", "/"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, last2(tt.in), tt.in)
	}
}

func TestTarpit(t *testing.T) {
	var slept time.Duration
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := New(func(d time.Duration) { slept += d }, next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/site/wp-login.php", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(payload), w.Body.String())
	assert.Equal(t, "Apache", w.Header().Get("Server"))
	assert.Positive(t, slept)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/w/7", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestRandomDelay(t *testing.T) {
	h := New(func(time.Duration) {}, nil)
	for range 100 {
		d := h.randomDelay(100*time.Millisecond, 300*time.Millisecond)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 300*time.Millisecond)
	}
	assert.Equal(t, time.Second, h.randomDelay(5*time.Second, time.Second))
}
