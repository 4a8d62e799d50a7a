package dbcache

import (
	"context"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/varz"
)

// Note that this assumes it is the only writer, and it is not: other people
// bid too.  The TTL bounds how stale a week can get.

var (
	weekCacheHits   = varz.NewInt("weekCacheHits")
	weekCacheMisses = varz.NewInt("weekCacheMisses")
	weekCacheStale  = varz.NewInt("weekCacheStale")
)

// sharedFetchTimeout bounds a fetch that no single caller owns.
const sharedFetchTimeout = 30 * time.Second

type Nower interface {
	Now() time.Time
}

type weekEntry struct {
	wd        *model.WeekData
	fetchedAt time.Time
}

// WeekStorage caches whole weeks.  Cached WeekData is shared between callers
// and must not be modified.
type WeekStorage struct {
	clock Nower
	ttl   time.Duration
	cache *lru.Cache[model.Week, *weekEntry]
	group singleflight.Group
	next  state.WeekStorage
}

var _ state.WeekStorage = (*WeekStorage)(nil)

func NewWeekStorage(size int, ttl time.Duration, clock Nower, next state.WeekStorage) *WeekStorage {
	cache, err := lru.New[model.Week, *weekEntry](max(1, size))
	if err != nil {
		panic(err)
	}
	return &WeekStorage{
		clock: clock,
		ttl:   ttl,
		cache: cache,
		next:  next,
	}
}

func (s *WeekStorage) Close() {
	s.next.Close()
}

// InvalidateCache forgets a week, so the next fetch sees new bids.
func (s *WeekStorage) InvalidateCache(week model.Week) {
	s.cache.Remove(week)
}

func (s *WeekStorage) fresh(e *weekEntry) bool {
	return e.fetchedAt.Add(s.ttl).After(s.clock.Now())
}

// FetchWeek implements state.WeekStorage.  Concurrent misses for one week
// share a single fetch.  The fetch runs on its own deadline, so one caller
// giving up doesn't fail the others; that caller just stops waiting.
func (s *WeekStorage) FetchWeek(ctx context.Context, week model.Week) (*model.WeekData, error) {
	if e, ok := s.cache.Get(week); ok {
		if s.fresh(e) {
			weekCacheHits.Add(1)
			return e.wd, nil
		}
		weekCacheStale.Add(1)
	}
	weekCacheMisses.Add(1)

	ch := s.group.DoChan(strconv.Itoa(int(week)), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		wd, err := s.next.FetchWeek(fctx, week)
		if err != nil {
			return nil, err
		}
		s.cache.Add(week, &weekEntry{wd: wd, fetchedAt: s.clock.Now()})
		return wd, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.WithField("week", week).Debug("shared week fetch")
		}
		return res.Val.(*model.WeekData), nil
	}
}

func (s *WeekStorage) FetchTargets(ctx context.Context, week model.Week) ([]*model.Player, error) {
	wd, err := s.FetchWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	return wd.Players, nil
}

func (s *WeekStorage) FetchStats(ctx context.Context, week model.Week) (map[int64]*model.BidHistogram, error) {
	wd, err := s.FetchWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	return wd.Histograms, nil
}

// SubmitBid passes the bid on and drops the week so the new bid shows up.
func (s *WeekStorage) SubmitBid(ctx context.Context, bid *model.Bid) error {
	err := s.next.SubmitBid(ctx, bid)
	if err == nil {
		s.InvalidateCache(bid.Week)
	}
	return err
}
