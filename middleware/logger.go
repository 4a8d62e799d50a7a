package middleware

import (
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/varz"
)

var (
	requests  = varz.NewMap("requests")
	responses = varz.NewMap("responses")
)

type Clock interface {
	Now() time.Time
}

// RequestLogger is a middleware that logs the request.
type RequestLogger struct {
	next  http.Handler
	clock Clock
}

func NewRequestLogger(next http.Handler, clock Clock) *RequestLogger {
	return &RequestLogger{next: next, clock: clock}
}

func remoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

func (rl *RequestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := rl.clock.Now()
	ww := &codeWatcher{w: w}
	rl.next.ServeHTTP(ww, r)
	code := ww.Code()
	duration := rl.clock.Now().Sub(start)

	requests.Add(r.Method, 1)
	responses.Add(http.StatusText(code), 1)

	entry := log.WithFields(log.Fields{
		"code":     code,
		"remote":   remoteAddr(r),
		"method":   r.Method,
		"path":     r.URL.Path,
		"bytes":    ww.bytes,
		"duration": duration,
	})
	if code >= 500 {
		entry.Warnf("[access log] %d %v %v (%v)", code, remoteAddr(r), r.URL.Path, duration)
	} else {
		entry.Infof("[access log] %d %v %v (%v)", code, remoteAddr(r), r.URL.Path, duration)
	}
}
