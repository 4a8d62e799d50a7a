package dbcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/faablab/fakes"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

func newWeekCache(t *testing.T) (*WeekStorage, *fakes.WeekStorage, *clockwork.FakeClock) {
	backing := fakes.NewWeekStorage(fakes.DemoWeek(3), fakes.DemoWeek(4))
	clock := clockwork.NewFakeClock()
	return NewWeekStorage(8, time.Minute, clock, backing), backing, clock
}

func TestWeekCacheHitsWithinTTL(t *testing.T) {
	ctx := context.Background()
	c, backing, clock := newWeekCache(t)

	first, err := c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	clock.Advance(59 * time.Second)
	second, err := c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = c.FetchTargets(ctx, 3)
	require.NoError(t, err)
	_, err = c.FetchStats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.Fetches())

	_, err = c.FetchWeek(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.Fetches())
}

func TestWeekCacheRefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	c, backing, clock := newWeekCache(t)

	_, err := c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.Fetches())
}

func TestWeekCacheBidInvalidates(t *testing.T) {
	ctx := context.Background()
	c, backing, _ := newWeekCache(t)

	wd, err := c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	p := wd.Players[0]
	before := wd.Histogram(p.ID).Stats.NumberOfBids.Count

	_, err = c.FetchWeek(ctx, 4)
	require.NoError(t, err)

	require.NoError(t, c.SubmitBid(ctx, &model.Bid{Week: 3, Player: p.ID, Value: 10}))
	wd, err = c.FetchWeek(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, before+1, wd.Histogram(p.ID).Stats.NumberOfBids.Count)

	// week 4 is still cached
	_, err = c.FetchWeek(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, backing.Fetches())
}

func TestWeekCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, backing, _ := newWeekCache(t)

	boom := errors.New("boom")
	backing.SetError(boom)
	_, err := c.FetchWeek(ctx, 3)
	assert.ErrorIs(t, err, boom)

	backing.SetError(nil)
	_, err = c.FetchWeek(ctx, 3)
	assert.NoError(t, err)

	backing.SetError(boom)
	assert.ErrorIs(t, c.SubmitBid(ctx, &model.Bid{Week: 3, Player: 1, Value: 1}), boom)
	_, err = c.FetchWeek(ctx, 3)
	assert.NoError(t, err, "failed bid leaves the week cached")
}

func TestWeekCacheConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	c, backing, _ := newWeekCache(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchWeek(ctx, 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, backing.Fetches(), 16)
	assert.GreaterOrEqual(t, backing.Fetches(), 1)
}

// gatedWeeks holds every fetch until released or cancelled.
type gatedWeeks struct {
	*fakes.WeekStorage
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	cancelled int
}

func (g *gatedWeeks) FetchWeek(ctx context.Context, week model.Week) (*model.WeekData, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.WeekStorage.FetchWeek(ctx, week)
	case <-ctx.Done():
		g.mu.Lock()
		g.cancelled++
		g.mu.Unlock()
		return nil, ctx.Err()
	}
}

func TestWeekCacheFirstCallerCancelling(t *testing.T) {
	backing := &gatedWeeks{
		WeekStorage: fakes.NewWeekStorage(fakes.DemoWeek(3)),
		started:     make(chan struct{}, 4),
		release:     make(chan struct{}),
	}
	c := NewWeekStorage(8, time.Minute, clockwork.NewFakeClock(), backing)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchWeek(firstCtx, 3)
		firstErr <- err
	}()
	<-backing.started

	type result struct {
		wd  *model.WeekData
		err error
	}
	second := make(chan result, 1)
	go func() {
		wd, err := c.FetchWeek(context.Background(), 3)
		second <- result{wd, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(backing.release)
	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.wd)
	assert.Equal(t, model.Week(3), got.wd.Week)

	backing.mu.Lock()
	assert.Zero(t, backing.cancelled, "the shared fetch outlives the caller that started it")
	backing.mu.Unlock()

	fetches := backing.Fetches()
	_, err := c.FetchWeek(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, fetches, backing.Fetches(), "the shared fetch was cached")
}

func TestPreferenceCache(t *testing.T) {
	ctx := context.Background()
	backing := fakes.NewPreferenceStorage()
	c := NewPreferenceStorage(4, backing)
	v := uuid.New()

	_, err := c.FetchPreferences(ctx, v)
	assert.True(t, he.IsNotFound(err))

	p := model.DefaultPreferences()
	require.NoError(t, c.SavePreferences(ctx, v, p))

	got, err := c.FetchPreferences(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, 1, backing.Fetches(), "save populates the cache")

	// Modifying a fetched copy doesn't leak into the cache.
	got.Reveal(77)
	again, err := c.FetchPreferences(ctx, v)
	require.NoError(t, err)
	assert.False(t, again.IsRevealed(77))

	// A conflicting write drops the entry.
	stale := model.DefaultPreferences()
	assert.Equal(t, 409, he.CodeOf(c.SavePreferences(ctx, v, stale), 0))
	_, err = c.FetchPreferences(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.Fetches())

	require.NoError(t, c.DeletePreferences(ctx, v))
	_, err = c.FetchPreferences(ctx, v)
	assert.True(t, he.IsNotFound(err))
}
