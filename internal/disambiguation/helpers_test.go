package disambiguation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	"github.com/gcbaptista/go-entity-linker/model"
)

// fakeKB is a programmable knowledge base.
type fakeKB struct {
	mu                sync.Mutex
	records           map[string][]model.CandidateRecord
	sources           map[int64]int
	intersections     map[pairKey]int
	lookupErr         error
	intersectionErr   error
	intersectionDelay time.Duration
	intersectionCalls int
}

func newFakeKB() *fakeKB {
	return &fakeKB{
		records:       make(map[string][]model.CandidateRecord),
		sources:       make(map[int64]int),
		intersections: make(map[pairKey]int),
	}
}

func (f *fakeKB) add(surfaceForm string, records ...model.CandidateRecord) *fakeKB {
	f.records[surfaceForm] = append(f.records[surfaceForm], records...)
	return f
}

func (f *fakeKB) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.records[surfaceForm], nil
}

func (f *fakeKB) SourceCount(ctx context.Context, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[id], nil
}

func (f *fakeKB) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	if f.intersectionDelay > 0 {
		select {
		case <-time.After(f.intersectionDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intersectionCalls++
	if f.intersectionErr != nil {
		return 0, f.intersectionErr
	}
	return f.intersections[newPairKey(id1, id2)], nil
}

func (f *fakeKB) Close() error { return nil }

func (f *fakeKB) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intersectionCalls
}

// randomKB builds mentions m0..m(n-1) with k candidates each and random
// raw counts, in-link counts and intersections.
func randomKB(seed uint64, mentions, candidates int) (*fakeKB, string) {
	rng := rand.New(rand.NewPCG(seed, seed))
	f := newFakeKB()
	text := ""
	var ids []int64
	for m := 0; m < mentions; m++ {
		sf := fmt.Sprintf("m%d", m)
		text += "[[" + sf + "]] "
		for c := 0; c < candidates; c++ {
			id := int64(100*(m+1) + c)
			ids = append(ids, id)
			f.add(sf, model.CandidateRecord{ID: id, Title: fmt.Sprintf("%s-%d", sf, c), RawCount: 1 + rng.IntN(20)})
			f.sources[id] = 5 + rng.IntN(50)
		}
	}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			lo := min(f.sources[a], f.sources[b])
			f.intersections[newPairKey(a, b)] = rng.IntN(lo + 1)
		}
	}
	return f, text
}

// lpOnlySettings scores candidates by link probability alone.
func lpOnlySettings() config.LinkerSettings {
	s := config.LinkerSettings{Alpha: 1, Beta: 0, Gamma: 0}
	s.ApplyDefaults()
	return s
}

func newTestRun(kb *fakeKB, settings config.LinkerSettings, seed uint64) *run {
	settings.ApplyDefaults()
	return newRun(kb, settings, seed, zap.NewNop())
}

// preparedRun returns a run whose mentions and candidates are ready for scoring.
func preparedRun(t *testing.T, kb *fakeKB, settings config.LinkerSettings, seed uint64, text string) *run {
	t.Helper()
	r := newTestRun(kb, settings, seed)
	require.NoError(t, r.prepare(context.Background(), model.DisambiguationRequest{Text: text}))
	return r
}

// seedWhere returns a seed whose initial assignment satisfies accept.
func seedWhere(t *testing.T, kb *fakeKB, settings config.LinkerSettings, text string, accept func(model.Mapping) bool) uint64 {
	t.Helper()
	for seed := uint64(1); seed < 1000; seed++ {
		r := preparedRun(t, kb, settings, seed, text)
		if accept(r.initialAssignment()) {
			return seed
		}
	}
	t.Fatal("No seed produced the requested initial assignment")
	return 0
}
