package file

import (
	"context"
	"time"

	"github.com/abduss/transmute/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is the metadata contract shared by every backend.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) (Record, error)
}

// CachedStore serves Get from an expirable LRU. Records are immutable after
// insert, so only Delete needs to evict.
type CachedStore struct {
	next  Store
	cache *expirable.LRU[string, Record]
}

// NewCachedStore wraps next with a cache of at most size entries.
func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: expirable.NewLRU[string, Record](size, nil, ttl),
	}
}

func (s *CachedStore) Insert(ctx context.Context, rec Record) (Record, error) {
	stored, err := s.next.Insert(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.cache.Add(stored.ID, stored)
	return stored, nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		metrics.CacheHit()
		return rec, nil
	}
	metrics.CacheMiss()

	rec, err := s.next.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	s.cache.Add(id, rec)
	return rec, nil
}

func (s *CachedStore) List(ctx context.Context) ([]Record, error) {
	return s.next.List(ctx)
}

// Delete evicts before and after the backend call; a Get racing the
// delete must not leave the removed record cached.
func (s *CachedStore) Delete(ctx context.Context, id string) (Record, error) {
	s.cache.Remove(id)
	rec, err := s.next.Delete(ctx, id)
	s.cache.Remove(id)
	return rec, err
}
