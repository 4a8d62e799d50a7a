// package labrea provides a middleware that provides a tarpit.
//
// Scanners looking for PHP admin pages get a slow, dribbled-out 404 instead of
// a quick one.  Nothing faablab serves lives at those paths.
package labrea

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/varz"
)

var trapped = varz.NewInt("trapped")

type Handler struct {
	sleep func(time.Duration)
	rand  *rand.Rand
	next  http.Handler

	paths map[string]struct{}

	mu      sync.Mutex
	ipCount map[string]int
}

var _ http.Handler = &Handler{}

var defaultPaths = []string{
	".env",
	".git",
	".htaccess",
	".htpasswd",
	"admin",
	"blog/wp-admin",
	"blog/wp-login.php",
	"cgi-bin",
	"cms",
	"config.inc.php",
	"config.php",
	"dbadmin",
	"install.php",
	"myadmin",
	"mysql",
	"phpmyadmin",
	"pma",
	"server-status",
	"setup.php",
	"sqladmin",
	"web/wp-admin",
	"web/wp-login.php",
	"wordpress/wp-admin",
	"wordpress/wp-login.php",
	"wp-admin",
	"wp-admin/setup-config.php",
	"wp-includes/wlwmanifest.xml",
	"wp-login.php",
	"xmlrpc.php",
}

// New wraps next.  A nil sleep means time.Sleep.
func New(sleep func(time.Duration), next http.Handler) *Handler {
	if sleep == nil {
		sleep = time.Sleep
	}
	pathMap := make(map[string]struct{}, len(defaultPaths))
	for _, p := range defaultPaths {
		pathMap[p] = struct{}{}
	}
	return &Handler{
		sleep:   sleep,
		ipCount: map[string]int{},
		next:    next,
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x1abea)),
		paths:   pathMap,
	}
}

func (h *Handler) countIP(ip string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ipCount[ip]++
	if len(h.ipCount) > 1000 {
		// Reset if too many entries
		h.ipCount = map[string]int{ip: 1}
	}

	return h.ipCount[ip]
}

func (h *Handler) flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

var payload = []byte(`
<!DOCTYPE HTML PUBLIC "-//IETF//DTD HTML 2.0//EN">
<html><head>
<title>404 Not Found</title>
</head><body>
<h1>Not Found</h1>
<p>The requested URL was not found on this server.</p>
<p>Additionally, a 404 Not Found
error was encountered while trying to use an ErrorDocument to handle the request.</p>
</body></html>
`)

func (h *Handler) Mishandle(w http.ResponseWriter, r *http.Request) {
	trapped.Add(1)
	minimum := time.Duration(11*h.countIP(r.RemoteAddr)) * time.Millisecond
	h.sleep(h.randomDelay(minimum, 3*time.Second))

	// Set headers to make it look legitimate
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Server", "Apache")
	w.WriteHeader(http.StatusNotFound)

	for pos := 0; pos < len(payload); {
		if r.Context().Err() != nil {
			return
		}
		remainder := len(payload) - pos
		amt := min(10+h.intN(10), remainder)
		if _, err := w.Write(payload[pos : pos+amt]); err != nil {
			return
		}
		pos += amt
		h.flush(w)
		h.sleep(h.randomDelay(100*time.Millisecond, 300*time.Millisecond))
	}
}

func (h *Handler) intN(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rand.IntN(n)
}

// randomDelay returns a random duration between lo and hi.  If lo has
// passed hi, hi wins.
func (h *Handler) randomDelay(lo, hi time.Duration) time.Duration {
	if lo >= hi {
		return hi
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + time.Duration(h.rand.Int64N(int64(hi-lo)))
}

func last2(path string) string {
	parts := strings.Split(path, "/")
	for len(parts) > 1 && parts[0] == "" {
		parts = parts[1:]
	}
	for len(parts) >= 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return path
	}
	first := max(0, len(parts)-2)
	return strings.Join(parts[first:], "/")
}

// trap reports whether the path, or its last component, is bait.
func (h *Handler) trap(path string) bool {
	tail := last2(path)
	if _, ok := h.paths[tail]; ok {
		return true
	}
	if i := strings.LastIndex(tail, "/"); i != -1 {
		_, ok := h.paths[tail[i+1:]]
		return ok
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.trap(r.URL.Path) {
		log.WithFields(log.Fields{"remote": r.RemoteAddr, "path": r.URL.Path}).Debug("[tarpit]")
		h.Mishandle(w, r)
		return
	}

	h.next.ServeHTTP(w, r)
}
