package kb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-entity-linker/model"
)

// countingKB counts the queries that reach the backend.
type countingKB struct {
	lookups       atomic.Int64
	sources       atomic.Int64
	intersections atomic.Int64
	fail          bool
	closed        bool
}

func (c *countingKB) LookupCandidates(_ context.Context, sf string) ([]model.CandidateRecord, error) {
	c.lookups.Add(1)
	if c.fail {
		return nil, errors.New("backend down")
	}
	return []model.CandidateRecord{{ID: 1, Title: sf, RawCount: 1}}, nil
}

func (c *countingKB) SourceCount(_ context.Context, id int64) (int, error) {
	c.sources.Add(1)
	return int(id) * 2, nil
}

func (c *countingKB) IntersectionCount(_ context.Context, id1, id2 int64) (int, error) {
	c.intersections.Add(1)
	return int(id1 + id2), nil
}

func (c *countingKB) Close() error {
	c.closed = true
	return nil
}

func TestCached_ServesRepeatedQueriesFromCache(t *testing.T) {
	backend := &countingKB{}
	cached := NewCached(backend, time.Minute, 100, nil)
	defer cached.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		records, err := cached.LookupCandidates(ctx, "paris")
		require.NoError(t, err)
		require.Len(t, records, 1)

		count, err := cached.SourceCount(ctx, 21)
		require.NoError(t, err)
		assert.Equal(t, 42, count)
	}
	assert.Equal(t, int64(1), backend.lookups.Load())
	assert.Equal(t, int64(1), backend.sources.Load())
}

func TestCached_IntersectionKeyIsUnordered(t *testing.T) {
	backend := &countingKB{}
	cached := NewCached(backend, time.Minute, 0, nil)
	defer cached.Close()
	ctx := context.Background()

	a, err := cached.IntersectionCount(ctx, 3, 7)
	require.NoError(t, err)
	b, err := cached.IntersectionCount(ctx, 7, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(1), backend.intersections.Load())
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	backend := &countingKB{fail: true}
	cached := NewCached(backend, time.Minute, 0, nil)
	defer cached.Close()

	_, err := cached.LookupCandidates(context.Background(), "paris")
	require.Error(t, err)
	_, err = cached.LookupCandidates(context.Background(), "paris")
	require.Error(t, err)

	assert.Equal(t, int64(2), backend.lookups.Load())
}

func TestCached_ConcurrentAccess(t *testing.T) {
	backend := &countingKB{}
	cached := NewCached(backend, time.Minute, 0, nil)
	defer cached.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.LookupCandidates(context.Background(), "france")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, backend.lookups.Load(), int64(20))
	assert.GreaterOrEqual(t, backend.lookups.Load(), int64(1))
}

func TestCached_CloseClosesBackend(t *testing.T) {
	backend := &countingKB{}
	cached := NewCached(backend, time.Minute, 0, nil)

	require.NoError(t, cached.Close())
	assert.True(t, backend.closed)
}

func TestCached_ImportFlushesCaches(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Import(ctx, &model.KnowledgeBaseData{
		Pages:      []model.Page{{ID: 1, Title: "Paris"}},
		Dictionary: []model.DictionaryEntry{{SurfaceForm: "paris", PageID: 1, Count: 3}},
	}, nil))

	cached := NewCached(store, time.Minute, 100, nil)
	defer cached.Close()

	records, err := cached.LookupCandidates(ctx, "paris")
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, cached.Import(ctx, &model.KnowledgeBaseData{
		Pages:      []model.Page{{ID: 2, Title: "Paris, Texas"}},
		Dictionary: []model.DictionaryEntry{{SurfaceForm: "paris", PageID: 2, Count: 1}},
	}, nil))

	records, err = cached.LookupCandidates(ctx, "paris")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCached_ImportWithoutImporter(t *testing.T) {
	cached := NewCached(&countingKB{}, time.Minute, 100, nil)
	defer cached.Close()

	err := cached.Import(context.Background(), &model.KnowledgeBaseData{}, nil)
	assert.Error(t, err)
}

// slowKB answers intersections after a delay unless ctx ends first.
type slowKB struct {
	countingKB
	delay time.Duration
}

func (s *slowKB) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return s.countingKB.IntersectionCount(ctx, id1, id2)
}

func TestCached_CallerDeadlineDoesNotFailSharedQuery(t *testing.T) {
	backend := &slowKB{delay: 100 * time.Millisecond}
	cached := NewCached(backend, time.Minute, 0, nil)
	defer cached.Close()

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var shortErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, shortErr = cached.IntersectionCount(shortCtx, 1, 2)
	}()
	time.Sleep(2 * time.Millisecond)

	count, err := cached.IntersectionCount(context.Background(), 1, 2)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.ErrorIs(t, shortErr, context.DeadlineExceeded)
	assert.Equal(t, int64(1), backend.intersections.Load())

	// The shared result was cached even though its first caller gave up.
	count, err = cached.IntersectionCount(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(1), backend.intersections.Load())
}
