package dbcache

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/varz"
)

var (
	preferenceCacheHits   = varz.NewInt("preferenceCacheHits")
	preferenceCacheMisses = varz.NewInt("preferenceCacheMisses")
)

// PreferenceStorage is a write-through LRU in front of the database.  It
// hands out clones, so callers can modify what they get.
type PreferenceStorage struct {
	cache *lru.Cache[uuid.UUID, *model.Preferences]
	next  state.PreferenceStorage
}

var _ state.PreferenceStorage = &PreferenceStorage{}

func NewPreferenceStorage(size int, nx state.PreferenceStorage) *PreferenceStorage {
	cache, err := lru.New[uuid.UUID, *model.Preferences](max(1, size))
	if err != nil {
		panic(err)
	}
	return &PreferenceStorage{
		cache: cache,
		next:  nx,
	}
}

func (s *PreferenceStorage) Close() {
	s.next.Close()
}

func (s *PreferenceStorage) InvalidateCache(visitor uuid.UUID) {
	s.cache.Remove(visitor)
}

func (s *PreferenceStorage) FetchPreferences(ctx context.Context, visitor uuid.UUID) (*model.Preferences, error) {
	if p, ok := s.cache.Get(visitor); ok {
		preferenceCacheHits.Add(1)
		return p.Clone(), nil
	}

	preferenceCacheMisses.Add(1)

	p, err := s.next.FetchPreferences(ctx, visitor)
	if err == nil {
		s.cache.Add(visitor, p.Clone())
	}
	return p, err
}

func (s *PreferenceStorage) SavePreferences(ctx context.Context, visitor uuid.UUID, p *model.Preferences) error {
	err := s.next.SavePreferences(ctx, visitor, p)
	if err == nil {
		s.cache.Add(visitor, p.Clone())
	} else {
		// Someone else may have written; don't trust what we have.
		s.InvalidateCache(visitor)
	}
	return err
}

func (s *PreferenceStorage) DeletePreferences(ctx context.Context, visitor uuid.UUID) error {
	err := s.next.DeletePreferences(ctx, visitor)
	if err == nil {
		s.InvalidateCache(visitor)
	}
	return err
}
