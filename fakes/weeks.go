package fakes

import (
	"context"
	"slices"
	"sync"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
)

// WeekStorage is an in-memory data service.  Bids are recorded, and when they
// land on a known player they're added to that player's histogram, so the
// numbers move the way the real service's do.
type WeekStorage struct {
	mu      sync.Mutex
	weeks   map[model.Week]*model.WeekData
	bids    []model.Bid
	fetches int

	// Generate, if set, makes up weeks nobody has stored.
	Generate func(model.Week) *model.WeekData
	// Err, if set, is returned from every call.
	Err error
}

var _ state.WeekStorage = &WeekStorage{}

func NewWeekStorage(weeks ...*model.WeekData) *WeekStorage {
	s := &WeekStorage{weeks: map[model.Week]*model.WeekData{}}
	for _, wd := range weeks {
		s.weeks[wd.Week] = wd
	}
	return s
}

func (s *WeekStorage) Lock() func() {
	s.mu.Lock()
	return func() { s.mu.Unlock() }
}

func (s *WeekStorage) Close() {}

// Fetches counts FetchWeek calls, including the ones FetchTargets and
// FetchStats make.
func (s *WeekStorage) Fetches() int {
	unlock := s.Lock()
	defer unlock()
	return s.fetches
}

func (s *WeekStorage) Bids() []model.Bid {
	unlock := s.Lock()
	defer unlock()
	return slices.Clone(s.bids)
}

func (s *WeekStorage) SetError(err error) {
	unlock := s.Lock()
	defer unlock()
	s.Err = err
}

func (s *WeekStorage) lookup(week model.Week) (*model.WeekData, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	wd, ok := s.weeks[week]
	if !ok && s.Generate != nil {
		if wd = s.Generate(week); wd != nil {
			s.weeks[week] = wd
			ok = true
		}
	}
	if !ok {
		return nil, he.HTTPCodedErrorf(404, "week %d not found", week)
	}
	return wd, nil
}

func (s *WeekStorage) FetchWeek(_ context.Context, week model.Week) (*model.WeekData, error) {
	unlock := s.Lock()
	defer unlock()
	s.fetches++
	wd, err := s.lookup(week)
	if err != nil {
		return nil, err
	}
	return cloneWeek(wd), nil
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

func (s *WeekStorage) SubmitBid(_ context.Context, bid *model.Bid) error {
	unlock := s.Lock()
	defer unlock()
	if s.Err != nil {
		return s.Err
	}
	s.bids = append(s.bids, *bid)
	if wd, err := s.lookup(bid.Week); err == nil && bid.Value > 0 {
		addBid(wd, bid.Player, float64(bid.Value))
	}
	return nil
}

func addBid(wd *model.WeekData, playerID int64, value float64) {
	h := wd.Histogram(playerID)
	if h == nil {
		return
	}
	for i := range h.Buckets {
		b := &h.Buckets[i]
		last := i == len(h.Buckets)-1
		if value >= b.Min && (value < b.Max || last) {
			b.Bids++
			break
		}
	}
	if h.Stats == nil {
		h.Stats = &model.SummaryStats{}
	}
	n := h.Stats.NumberOfBids.Count
	h.Stats.AverageBid = (h.Stats.AverageBid*float64(n) + value) / float64(n+1)
	h.Stats.NumberOfBids = model.NumberOfBids{Count: n + 1}
}

func cloneWeek(wd *model.WeekData) *model.WeekData {
	cpy := &model.WeekData{
		Week:       wd.Week,
		Players:    make([]*model.Player, len(wd.Players)),
		Histograms: make(map[int64]*model.BidHistogram, len(wd.Histograms)),
	}
	for i, p := range wd.Players {
		if p != nil {
			pc := *p
			cpy.Players[i] = &pc
		}
	}
	for id, h := range wd.Histograms {
		hc := &model.BidHistogram{Buckets: slices.Clone(h.Buckets)}
		if h.Stats != nil {
			st := *h.Stats
			hc.Stats = &st
		}
		cpy.Histograms[id] = hc
	}
	return cpy
}
