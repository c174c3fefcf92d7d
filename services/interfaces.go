package services

import (
	"context"

	"github.com/gcbaptista/go-entity-linker/model"
)

// CandidateIndex resolves a normalized surface form to the knowledge-base entries
// sharing it. Lookups are exact matches.
type CandidateIndex interface {
	LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error)
}

// LinkGraph answers in-link statistics of knowledge-base entries.
type LinkGraph interface {
	// SourceCount returns the number of pages linking to id (may be 0)
	SourceCount(ctx context.Context, id int64) (int, error)
	// IntersectionCount returns the number of pages linking to both ids
	IntersectionCount(ctx context.Context, id1, id2 int64) (int, error)
}

// KnowledgeBase combines the candidate index and the link graph of one backend
type KnowledgeBase interface {
	CandidateIndex
	LinkGraph
	Close() error
}

// KnowledgeBaseImporter loads pages, dictionary rows and links into a backend
type KnowledgeBaseImporter interface {
	Import(ctx context.Context, data *model.KnowledgeBaseData, progress func(done, total int)) error
}

// Disambiguator runs the disambiguation engine over one request.
// It always returns a result; failures are reported in Result.Errors.
type Disambiguator interface {
	Disambiguate(ctx context.Context, req model.DisambiguationRequest) *model.Result
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(status *model.JobStatus) []*model.Job
}

// AnalyticsTracker records finished runs
type AnalyticsTracker interface {
	TrackRun(event model.DisambiguationEvent) error
	GetDashboardData() (model.AnalyticsDashboard, error)
}
