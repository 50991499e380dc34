package urlcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is one cached pair of signed URLs for a remote object. Freshness is
// judged from GeneratedAt/ExpiresAt, not from the backing store's eviction:
// the store keeps entries around past their nominal expiry so they can serve
// as a degraded fallback when the remote store is unreachable.
type Entry struct {
	ObjectID     string
	FileURL      string
	ThumbnailURL string
	GeneratedAt  time.Time
	ExpiresAt    time.Time
	IsRefreshing bool
}

// Store is the key-value backing of the cache, swappable for a shared
// external cache when scaling beyond one process.
type Store interface {
	Get(objectID string) (Entry, bool)
	Set(objectID string, e Entry)
	Delete(objectID string)
}

const defaultStoreSize = 4096

// LRUStore keeps entries in an in-process expirable LRU. Physical eviction
// happens at twice the logical TTL, leaving a stale-fallback window.
type LRUStore struct {
	lru *expirable.LRU[string, Entry]
}

func NewLRUStore(ttl time.Duration) *LRUStore {
	return &LRUStore{lru: expirable.NewLRU[string, Entry](defaultStoreSize, nil, 2*ttl)}
}

func (s *LRUStore) Get(objectID string) (Entry, bool) {
	return s.lru.Get(objectID)
}

func (s *LRUStore) Set(objectID string, e Entry) {
	s.lru.Add(objectID, e)
}

func (s *LRUStore) Delete(objectID string) {
	s.lru.Remove(objectID)
}
