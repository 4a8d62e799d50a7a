package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

func HandleRobotsTXT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	data := []string{
		"User-agent: *",
		"Allow: /$",
		"Disallow: /api/",
		"Disallow: /w/",
		"Disallow: /settings",
	}
	for _, line := range data {
		io.WriteString(w, line+"\r\n")
	}
}

type Nower interface {
	Now() time.Time
}

type health struct {
	Status  string    `json:"status"`
	Started time.Time `json:"started"`
	Uptime  string    `json:"uptime"`
	Breaker string    `json:"breaker,omitempty"`
}

// Healthz reports liveness.  breaker, if set, names the data service
// circuit breaker state; an open breaker is still healthy as far as load
// balancers are concerned, since the site degrades rather than fails.
func Healthz(clock Nower, breaker func() string) http.HandlerFunc {
	started := clock.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		h := &health{
			Status:  "ok",
			Started: started,
			Uptime:  clock.Now().Sub(started).Truncate(time.Second).String(),
		}
		if breaker != nil {
			h.Breaker = breaker()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(h)
	}
}
