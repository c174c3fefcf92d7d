// Package testing provides utilities and helpers for testing the entity linker.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/internal/kb"
	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// SampleKnowledgeBase returns a small knowledge base around the ambiguous surface
// form "paris". Paris (1) shares in-links with France (10) and Eiffel Tower (12);
// Paris, Texas (2) shares in-links with Texas (11); Paris Hilton (3) is isolated.
func SampleKnowledgeBase() *model.KnowledgeBaseData {
	return &model.KnowledgeBaseData{
		Pages: []model.Page{
			{ID: 1, Title: "Paris", Context: map[string]int{"capital": 3, "france": 4, "city": 2, "seine": 2}},
			{ID: 2, Title: "Paris, Texas", Context: map[string]int{"texas": 4, "city": 1, "county": 2, "lamar": 1}},
			{ID: 3, Title: "Paris Hilton", Context: map[string]int{"hotel": 2, "heiress": 3, "celebrity": 2}},
			{ID: 10, Title: "France", Context: map[string]int{"country": 3, "europe": 2, "paris": 2}},
			{ID: 11, Title: "Texas", Context: map[string]int{"state": 3, "usa": 2}},
			{ID: 12, Title: "Eiffel Tower", Context: map[string]int{"tower": 2, "iron": 1, "paris": 3}},
		},
		Dictionary: []model.DictionaryEntry{
			{SurfaceForm: "Paris", PageID: 1, Count: 30},
			{SurfaceForm: "Paris", PageID: 2, Count: 5},
			{SurfaceForm: "Paris", PageID: 3, Count: 5},
			{SurfaceForm: "France", PageID: 10, Count: 20},
			{SurfaceForm: "Texas", PageID: 11, Count: 10},
			{SurfaceForm: "Eiffel Tower", PageID: 12, Count: 8},
		},
		Links: []model.Link{
			{Source: 100, Destination: 1}, {Source: 101, Destination: 1}, {Source: 102, Destination: 1}, {Source: 103, Destination: 1},
			{Source: 100, Destination: 10}, {Source: 101, Destination: 10}, {Source: 102, Destination: 10}, {Source: 104, Destination: 10},
			{Source: 200, Destination: 2}, {Source: 201, Destination: 2},
			{Source: 200, Destination: 11}, {Source: 201, Destination: 11}, {Source: 202, Destination: 11},
			{Source: 300, Destination: 3},
			{Source: 100, Destination: 12}, {Source: 101, Destination: 12},
		},
	}
}

// CreateTestKnowledgeBase imports data into a fresh in-memory store.
// A nil data uses SampleKnowledgeBase.
func CreateTestKnowledgeBase(t *testing.T, data *model.KnowledgeBaseData) *kb.MemoryStore {
	t.Helper()
	if data == nil {
		data = SampleKnowledgeBase()
	}
	store := kb.NewMemoryStore(zap.NewNop())
	require.NoError(t, store.Import(context.Background(), data, nil), "Failed to import test knowledge base")
	return store
}

// CountingKnowledgeBase counts the queries that reach the wrapped knowledge base.
type CountingKnowledgeBase struct {
	services.KnowledgeBase

	mu            sync.Mutex
	lookups       int
	sourceCounts  int
	intersections int
}

// NewCountingKnowledgeBase wraps next.
func NewCountingKnowledgeBase(next services.KnowledgeBase) *CountingKnowledgeBase {
	return &CountingKnowledgeBase{KnowledgeBase: next}
}

func (c *CountingKnowledgeBase) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.KnowledgeBase.LookupCandidates(ctx, surfaceForm)
}

func (c *CountingKnowledgeBase) SourceCount(ctx context.Context, id int64) (int, error) {
	c.mu.Lock()
	c.sourceCounts++
	c.mu.Unlock()
	return c.KnowledgeBase.SourceCount(ctx, id)
}

func (c *CountingKnowledgeBase) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	c.mu.Lock()
	c.intersections++
	c.mu.Unlock()
	return c.KnowledgeBase.IntersectionCount(ctx, id1, id2)
}

// Counts returns the number of lookups, source counts and intersection counts served.
func (c *CountingKnowledgeBase) Counts() (lookups, sourceCounts, intersections int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups, c.sourceCounts, c.intersections
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it reaches a final state or times out.
// Failed and cancelled jobs are returned to the caller for inspection.
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
				if opts.LogProgress && job.CompletedAt != nil {
					t.Logf("Job %s finished as %s in %v", jobID, job.Status, job.CompletedAt.Sub(job.CreatedAt))
				}
				return job
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedTarget string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedTarget, job.Target, "Job target should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
