package kb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// Query kinds used in cache metrics and logs.
const (
	queryLookup       = "lookup"
	querySources      = "sources"
	queryIntersection = "intersection"
)

// Cached decorates a knowledge base with a TTL cache shared across requests.
// Concurrent misses for the same key are collapsed into one query.
// Imports made through Import flush every cache; writes that bypass it are
// only seen once the affected entries expire.
type Cached struct {
	next          services.KnowledgeBase
	lookups       *ttlcache.Cache[uint64, []model.CandidateRecord]
	sources       *ttlcache.Cache[int64, int]
	intersections *ttlcache.Cache[uint64, int]
	sfGroup       singleflight.Group
	logger        *zap.Logger
}

// NewCached wraps next. A capacity of 0 leaves the caches unbounded.
func NewCached(next services.KnowledgeBase, ttl time.Duration, capacity uint64, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cached{
		next:          next,
		lookups:       newCache[uint64, []model.CandidateRecord](ttl, capacity),
		sources:       newCache[int64, int](ttl, capacity),
		intersections: newCache[uint64, int](ttl, capacity),
		logger:        logger,
	}
	go c.lookups.Start()
	go c.sources.Start()
	go c.intersections.Start()
	return c
}

func newCache[K comparable, V any](ttl time.Duration, capacity uint64) *ttlcache.Cache[K, V] {
	opts := []ttlcache.Option[K, V]{ttlcache.WithTTL[K, V](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[K, V](capacity))
	}
	return ttlcache.New(opts...)
}

// pairKey hashes an unordered id pair.
func pairKey(id1, id2 int64) uint64 {
	if id2 < id1 {
		id1, id2 = id2, id1
	}
	return xxhash.Sum64String(strconv.FormatInt(id1, 10) + ":" + strconv.FormatInt(id2, 10))
}

// shared runs fetch once per key across concurrent callers. The backend query
// is detached from the cancellation of the caller that started it; each caller
// stops waiting when its own ctx is done.
func (c *Cached) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	ch := c.sfGroup.DoChan(key, func() (any, error) {
		return fetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LookupCandidates serves candidate lookups from the cache when possible.
func (c *Cached) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	key := xxhash.Sum64String(surfaceForm)
	if item := c.lookups.Get(key); item != nil {
		RecordCacheHit(queryLookup)
		c.logger.Debug("Candidate lookup cache hit", zap.String("surface_form", surfaceForm))
		return item.Value(), nil
	}
	RecordCacheMiss(queryLookup)

	v, err := c.shared(ctx, queryLookup+":"+surfaceForm, func(ctx context.Context) (any, error) {
		records, err := c.next.LookupCandidates(ctx, surfaceForm)
		if err != nil {
			return nil, err
		}
		c.lookups.Set(key, records, ttlcache.DefaultTTL)
		return records, nil
	})
	if err != nil {
		RecordQueryError(queryLookup)
		return nil, err
	}
	return v.([]model.CandidateRecord), nil
}

// SourceCount serves in-link counts from the cache when possible.
func (c *Cached) SourceCount(ctx context.Context, id int64) (int, error) {
	if item := c.sources.Get(id); item != nil {
		RecordCacheHit(querySources)
		return item.Value(), nil
	}
	RecordCacheMiss(querySources)

	v, err := c.shared(ctx, querySources+":"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		count, err := c.next.SourceCount(ctx, id)
		if err != nil {
			return nil, err
		}
		c.sources.Set(id, count, ttlcache.DefaultTTL)
		return count, nil
	})
	if err != nil {
		RecordQueryError(querySources)
		return 0, err
	}
	return v.(int), nil
}

// IntersectionCount serves pairwise in-link intersections from the cache when possible.
func (c *Cached) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	key := pairKey(id1, id2)
	if item := c.intersections.Get(key); item != nil {
		RecordCacheHit(queryIntersection)
		return item.Value(), nil
	}
	RecordCacheMiss(queryIntersection)

	v, err := c.shared(ctx, queryIntersection+":"+strconv.FormatUint(key, 10), func(ctx context.Context) (any, error) {
		count, err := c.next.IntersectionCount(ctx, id1, id2)
		if err != nil {
			return nil, err
		}
		c.intersections.Set(key, count, ttlcache.DefaultTTL)
		return count, nil
	})
	if err != nil {
		RecordQueryError(queryIntersection)
		return 0, err
	}
	return v.(int), nil
}

// Import writes data to the wrapped knowledge base and flushes the caches.
func (c *Cached) Import(ctx context.Context, data *model.KnowledgeBaseData, progress func(done, total int)) error {
	importer, ok := c.next.(services.KnowledgeBaseImporter)
	if !ok {
		return errors.New("knowledge base does not support imports")
	}
	err := importer.Import(ctx, data, progress)
	c.lookups.DeleteAll()
	c.sources.DeleteAll()
	c.intersections.DeleteAll()
	c.logger.Info("Flushed knowledge base caches after import", zap.Int("rows", data.Size()))
	return err
}

// Close stops the cache janitors and closes the wrapped knowledge base.
func (c *Cached) Close() error {
	c.lookups.Stop()
	c.sources.Stop()
	c.intersections.Stop()
	return c.next.Close()
}
