package fakes

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
)

// PreferenceStorage is an in-memory state.PreferenceStorage with the same
// optimistic locking rules as the database.
type PreferenceStorage struct {
	mu      sync.Mutex
	prefs   map[uuid.UUID]*model.Preferences
	fetches int
}

var _ state.PreferenceStorage = &PreferenceStorage{}

func NewPreferenceStorage() *PreferenceStorage {
	return &PreferenceStorage{prefs: map[uuid.UUID]*model.Preferences{}}
}

func (s *PreferenceStorage) Close() {}

func (s *PreferenceStorage) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *PreferenceStorage) FetchPreferences(_ context.Context, visitor uuid.UUID) (*model.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	p, ok := s.prefs[visitor]
	if !ok {
		return nil, he.HTTPCodedErrorf(404, "no preferences for visitor %v", visitor)
	}
	return p.Clone(), nil
}

func (s *PreferenceStorage) SavePreferences(_ context.Context, visitor uuid.UUID, p *model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current int64
	if old, ok := s.prefs[visitor]; ok {
		current = old.OptimisticLock
	}
	if p.OptimisticLock != current {
		return he.HTTPCodedErrorf(409, "optimistic lock failure for visitor %v", visitor)
	}
	p.OptimisticLock++
	s.prefs[visitor] = p.Clone()
	return nil
}

func (s *PreferenceStorage) DeletePreferences(_ context.Context, visitor uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, visitor)
	return nil
}
