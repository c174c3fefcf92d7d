package model

import "time"

// Run outcomes tracked by analytics.
const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeTimeout      = "timeout"
	OutcomeNoCandidates = "no_candidates"
)

// DisambiguationEvent represents a single disambiguation run for analytics tracking
type DisambiguationEvent struct {
	RequestID    string        `json:"request_id"`
	SurfaceForms []string      `json:"surface_forms"`
	Outcome      string        `json:"outcome"`
	Sweeps       int           `json:"sweeps"`
	Warnings     int           `json:"warnings"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularSurfaceForm represents aggregated data for frequently requested surface forms
type PopularSurfaceForm struct {
	SurfaceForm  string `json:"surface_form"`
	RequestCount int    `json:"request_count"`
}

// ResponseTimeDistribution represents response time distribution buckets
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// AnalyticsDashboard summarizes the runs of the last 24 hours
type AnalyticsDashboard struct {
	TotalRuns          int     `json:"total_runs"`
	RunsChangePercent  float64 `json:"runs_change_percent"`
	AvgResponseTime    int64   `json:"avg_response_time"` // in milliseconds
	ResponseTimeChange string  `json:"response_time_change"`
	AvgSweeps          float64 `json:"avg_sweeps"`

	Outcomes                 map[string]int           `json:"outcomes"`
	PopularSurfaceForms      []PopularSurfaceForm     `json:"popular_surface_forms"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
}
