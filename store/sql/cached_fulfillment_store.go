package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const fulfillmentOrderCacheKeyPrefix = "barberworld::fulfillment_order::v1"

// CachedFulfillmentStore layers a read-through cache over the order store.
// The order-details endpoint is read-heavy and a session's record changes at
// most a handful of times, so cached reads with invalidation on write cover
// it. ListUnlabeled always goes to the base store; the sweep must see fresh
// rows.
type CachedFulfillmentStore struct {
	base  core.FulfillmentStore
	cache repositorycache.CacheService
}

func NewCachedFulfillmentStore(
	base core.FulfillmentStore,
	cacheService repositorycache.CacheService,
) (*CachedFulfillmentStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base fulfillment store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: fulfillment cache service is required")
	}
	return &CachedFulfillmentStore{base: base, cache: cacheService}, nil
}

// FulfillmentOrderCacheKey returns the deterministic cache key for one
// session's record: barberworld::fulfillment_order::v1::<session_id> with the
// session segment URL-path escaped.
func FulfillmentOrderCacheKey(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("sqlstore: session id is required for cache key")
	}
	return fulfillmentOrderCacheKeyPrefix + "::" + url.PathEscape(sessionID), nil
}

func (s *CachedFulfillmentStore) Upsert(ctx context.Context, record core.FulfillmentRecord) (core.FulfillmentRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("sqlstore: cached fulfillment store is not configured")
	}
	updated, err := s.base.Upsert(ctx, record)
	if err != nil {
		return core.FulfillmentRecord{}, err
	}
	cacheKey, err := FulfillmentOrderCacheKey(updated.SessionID)
	if err != nil {
		return core.FulfillmentRecord{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.FulfillmentRecord{}, err
	}
	return updated, nil
}

func (s *CachedFulfillmentStore) GetBySession(ctx context.Context, sessionID string) (core.FulfillmentRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("sqlstore: cached fulfillment store is not configured")
	}
	cacheKey, err := FulfillmentOrderCacheKey(sessionID)
	if err != nil {
		return core.FulfillmentRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.FulfillmentRecord, error) {
		return s.base.GetBySession(ctx, sessionID)
	})
}

func (s *CachedFulfillmentStore) ListUnlabeled(ctx context.Context, limit int) ([]core.FulfillmentRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached fulfillment store is not configured")
	}
	return s.base.ListUnlabeled(ctx, limit)
}

var _ core.FulfillmentStore = (*CachedFulfillmentStore)(nil)
