// Package faabapi is a client for the bid data service: the targets and
// stats for a week, and the endpoint that records bids.
package faabapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/varz"
)

var (
	requests      = varz.NewInt("requests")
	requestErrors = varz.NewInt("requestErrors")
	breakerOpen   = varz.NewInt("breakerOpen")
)

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies to each request when HTTPClient is nil.
	Timeout time.Duration
	// BreakerFailures consecutive failures open the breaker, which then
	// stays open for BreakerTimeout.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ state.WeekStorage = (*Client)(nil)

func New(cf *Config) (*Client, error) {
	base, err := url.Parse(cf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("bad data service url %q: %w", cf.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("bad data service url %q: need scheme and host", cf.BaseURL)
	}

	hc := cf.HTTPClient
	if hc == nil {
		timeout := cf.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	failures := cf.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	breakerTimeout := cf.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "faabapi",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			// The service answering 4xx is the service working.
			var se *StatusError
			if errors.As(err, &se) && se.Code < 500 {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(log.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &Client{base: base, http: hc, breaker: cb}, nil
}

func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// State reports the breaker state, for health checks.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func weekQuery(week model.Week) url.Values {
	return url.Values{"week": []string{strconv.Itoa(int(week))}}
}

// do sends one request through the breaker and decodes a JSON answer into
// out, if out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	requests.Add(1)
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		breakerOpen.Add(1)
		return he.New(http.StatusServiceUnavailable, fmt.Errorf("data service unavailable: %w", err))
	default:
		requestErrors.Add(1)
		return err
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("data service request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

type targetsResponse struct {
	Players []*model.Player `json:"players"`
}

type statsResponse struct {
	BinnedData map[int64][]model.BidBucket    `json:"binned_data"`
	Stats      map[int64]*model.SummaryStats `json:"stats"`
}

func (c *Client) FetchTargets(ctx context.Context, week model.Week) ([]*model.Player, error) {
	var tr targetsResponse
	if err := c.do(ctx, http.MethodGet, "targets", weekQuery(week), nil, &tr); err != nil {
		return nil, err
	}
	return tr.Players, nil
}

// FetchStats returns histograms keyed by player id.  A player may have stats
// and no buckets or the other way around.
func (c *Client) FetchStats(ctx context.Context, week model.Week) (map[int64]*model.BidHistogram, error) {
	var sr statsResponse
	if err := c.do(ctx, http.MethodGet, "stats", weekQuery(week), nil, &sr); err != nil {
		return nil, err
	}
	out := make(map[int64]*model.BidHistogram, max(len(sr.BinnedData), len(sr.Stats)))
	get := func(id int64) *model.BidHistogram {
		h, ok := out[id]
		if !ok {
			h = &model.BidHistogram{}
			out[id] = h
		}
		return h
	}
	for id, buckets := range sr.BinnedData {
		get(id).Buckets = buckets
	}
	for id, st := range sr.Stats {
		get(id).Stats = st
	}
	return out, nil
}

// FetchWeek gets targets and stats at the same time.
func (c *Client) FetchWeek(ctx context.Context, week model.Week) (*model.WeekData, error) {
	wd := &model.WeekData{Week: week}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		players, err := c.FetchTargets(gctx, week)
		wd.Players = players
		return err
	})
	g.Go(func() error {
		hs, err := c.FetchStats(gctx, week)
		wd.Histograms = hs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching week %d: %w", week, err)
	}
	return wd, nil
}

func (c *Client) SubmitBid(ctx context.Context, bid *model.Bid) error {
	if err := c.do(ctx, http.MethodPost, "bid", nil, bid, nil); err != nil {
		return fmt.Errorf("submitting bid: %w", err)
	}
	log.WithFields(log.Fields{
		"week":   bid.Week,
		"player": bid.Player,
		"value":  bid.Value,
	}).Info("bid recorded")
	return nil
}
