package urlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fileportal/server/internal/graph"
	"github.com/fileportal/server/internal/utils"
	"go.uber.org/zap"
)

// ErrCacheFetch marks a failed URL fetch with no cached data to fall back on.
var ErrCacheFetch = errors.New("signed URL fetch failed")

// DefaultTTL is the validity window assumed for freshly minted signed URLs.
const DefaultTTL = time.Hour

// refreshThreshold is the fraction of the TTL window after which a hit
// triggers a background refresh.
const refreshThreshold = 0.8

// URLPair is what callers get back: the file's signed download link and, when
// a thumbnail exists, its link.
type URLPair struct {
	FileURL      string
	ThumbnailURL string
}

// URLFetcher is the slice of the drive client the cache needs.
type URLFetcher interface {
	ItemDownloadURL(ctx context.Context, token, itemID string) (string, error)
}

// TokenSource provides a valid bearer token for fetches.
type TokenSource interface {
	GetToken(ctx context.Context, forceRefresh bool) (graph.Credential, error)
}

// Cache serves signed download URLs, minting them lazily and refreshing them
// in the background once a cached pair is past 80% of its validity window.
// A caller holding a still-valid entry never blocks on a refresh. The
// IsRefreshing flag is advisory only; two refreshes racing past the check
// just overwrite each other with equally fresh results.
type Cache struct {
	store   Store
	fetcher URLFetcher
	tokens  TokenSource
	ttl     time.Duration
	logger  *zap.Logger

	now func() time.Time
}

func New(store Store, fetcher URLFetcher, tokens TokenSource, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		tokens:  tokens,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// GetURLs returns signed URLs for objectID and, when thumbnailID is
// non-empty, its thumbnail. Cached URLs are served without a network call
// while fresh; past the refresh threshold they are still served immediately
// and renewed in the background. On a fetch failure any cached entry, even an
// expired one, is returned as a degraded fallback.
func (c *Cache) GetURLs(ctx context.Context, objectID, thumbnailID string) (URLPair, error) {
	now := c.now()
	cached, ok := c.store.Get(objectID)

	if ok && now.Before(cached.ExpiresAt) {
		window := cached.ExpiresAt.Sub(cached.GeneratedAt)
		age := now.Sub(cached.GeneratedAt)

		if float64(age) >= refreshThreshold*float64(window) && !cached.IsRefreshing {
			cached.IsRefreshing = true
			c.store.Set(objectID, cached)
			go c.refresh(objectID, thumbnailID)
		}
		return URLPair{FileURL: cached.FileURL, ThumbnailURL: cached.ThumbnailURL}, nil
	}

	entry, err := c.fetch(ctx, objectID, thumbnailID)
	if err != nil {
		if ok {
			c.logger.Warn("serving stale signed URL after fetch failure",
				zap.String("object_id", objectID), zap.Error(err))
			return URLPair{FileURL: cached.FileURL, ThumbnailURL: cached.ThumbnailURL}, nil
		}
		return URLPair{}, fmt.Errorf("%w: %v", ErrCacheFetch, err)
	}

	c.store.Set(objectID, entry)
	return URLPair{FileURL: entry.FileURL, ThumbnailURL: entry.ThumbnailURL}, nil
}

// Invalidate drops cache entries after a mutation to the underlying objects,
// so the next read mints fresh URLs.
func (c *Cache) Invalidate(objectIDs ...string) {
	for _, id := range objectIDs {
		c.store.Delete(id)
	}
}

// refresh renews an entry in the background. It is fire-and-forget: the
// caller that triggered it already has valid URLs in hand.
func (c *Cache) refresh(objectID, thumbnailID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := c.fetch(ctx, objectID, thumbnailID)
	if err != nil {
		c.logger.Warn("background URL refresh failed",
			zap.String("object_id", objectID), zap.Error(err))
		// Clear the flag so a later hit can try again.
		if cached, ok := c.store.Get(objectID); ok && cached.IsRefreshing {
			cached.IsRefreshing = false
			c.store.Set(objectID, cached)
		}
		return
	}
	c.store.Set(objectID, entry)
}

// fetch mints fresh URLs for the object and its thumbnail, one request per
// id, issued concurrently when both are wanted.
func (c *Cache) fetch(ctx context.Context, objectID, thumbnailID string) (Entry, error) {
	cred, err := c.tokens.GetToken(ctx, false)
	if err != nil {
		return Entry{}, err
	}

	tasks := []utils.ParallelTask{
		func() (interface{}, error) {
			return c.fetcher.ItemDownloadURL(ctx, cred.AccessToken, objectID)
		},
	}
	if thumbnailID != "" {
		tasks = append(tasks, func() (interface{}, error) {
			return c.fetcher.ItemDownloadURL(ctx, cred.AccessToken, thumbnailID)
		})
	}

	results, errs := utils.RunParallelTasks(tasks)
	for _, err := range errs {
		if err != nil {
			return Entry{}, err
		}
	}

	now := c.now()
	entry := Entry{
		ObjectID:    objectID,
		FileURL:     results[0].(string),
		GeneratedAt: now,
		ExpiresAt:   now.Add(c.ttl),
	}
	if thumbnailID != "" {
		entry.ThumbnailURL = results[1].(string)
	}
	return entry, nil
}
