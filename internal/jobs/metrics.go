package jobs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gcbaptista/go-entity-linker/model"
)

var (
	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entity_linker",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Background jobs by type and final status.",
		},
		[]string{"type", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entity_linker",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Execution time of completed background jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 9),
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(jobsFinished, jobDuration)
}

// executionWindow is the number of execution times kept per job type
const executionWindow = 100

// JobMetricsData is a point-in-time copy of the job metrics
type JobMetricsData struct {
	JobsCreated          int64                           `json:"jobs_created"`
	JobsCompleted        int64                           `json:"jobs_completed"`
	JobsFailed           int64                           `json:"jobs_failed"`
	JobsCancelled        int64                           `json:"jobs_cancelled"`
	SuccessRate          float64                         `json:"success_rate"`
	CurrentWorkload      int64                           `json:"current_workload"`
	TotalExecutionTime   time.Duration                   `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration                   `json:"average_execution_time_ns"`
	AverageByType        map[model.JobType]time.Duration `json:"average_execution_time_by_type_ns"`
	JobsByType           map[model.JobType]int64         `json:"jobs_by_type"`
	JobsByStatus         map[model.JobStatus]int64       `json:"jobs_by_status"`
	LastUpdated          time.Time                       `json:"last_updated"`
}

// JobMetrics tracks performance metrics for job operations
type JobMetrics struct {
	mu                   sync.RWMutex
	jobsCreated          int64
	jobsCompleted        int64
	jobsFailed           int64
	jobsCancelled        int64
	totalExecutionTime   time.Duration
	jobsByType           map[model.JobType]int64
	jobsByStatus         map[model.JobStatus]int64
	executionTimesByType map[model.JobType][]time.Duration
	lastUpdated          time.Time
}

// NewJobMetrics creates a new metrics collector
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		jobsByType:           make(map[model.JobType]int64),
		jobsByStatus:         make(map[model.JobStatus]int64),
		executionTimesByType: make(map[model.JobType][]time.Duration),
		lastUpdated:          time.Now(),
	}
}

// RecordJobCreated increments job creation counter
func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCreated++
	m.jobsByType[jobType]++
	m.jobsByStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange updates status counters
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" {
		m.jobsByStatus[oldStatus]--
		if m.jobsByStatus[oldStatus] < 0 {
			m.jobsByStatus[oldStatus] = 0
		}
	}
	m.jobsByStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobCompleted records successful job completion
func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCompleted++
	m.totalExecutionTime += executionTime

	times := append(m.executionTimesByType[jobType], executionTime)
	if len(times) > executionWindow {
		times = times[1:]
	}
	m.executionTimesByType[jobType] = times
	m.lastUpdated = time.Now()

	jobsFinished.WithLabelValues(string(jobType), string(model.JobStatusCompleted)).Inc()
	jobDuration.WithLabelValues(string(jobType)).Observe(executionTime.Seconds())
}

// RecordJobFailed records job failure
func (m *JobMetrics) RecordJobFailed(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsFailed++
	m.lastUpdated = time.Now()
	jobsFinished.WithLabelValues(string(jobType), string(model.JobStatusFailed)).Inc()
}

// RecordJobCancelled records a job stopped on request or at shutdown
func (m *JobMetrics) RecordJobCancelled(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCancelled++
	m.lastUpdated = time.Now()
	jobsFinished.WithLabelValues(string(jobType), string(model.JobStatusCancelled)).Inc()
}

// GetMetrics returns a copy of current metrics
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := JobMetricsData{
		JobsCreated:        m.jobsCreated,
		JobsCompleted:      m.jobsCompleted,
		JobsFailed:         m.jobsFailed,
		JobsCancelled:      m.jobsCancelled,
		SuccessRate:        1.0, // No finished jobs yet
		CurrentWorkload:    m.jobsByStatus[model.JobStatusPending] + m.jobsByStatus[model.JobStatusRunning] + m.jobsByStatus[model.JobStatusCancelling],
		TotalExecutionTime: m.totalExecutionTime,
		AverageByType:      make(map[model.JobType]time.Duration, len(m.executionTimesByType)),
		JobsByType:         make(map[model.JobType]int64, len(m.jobsByType)),
		JobsByStatus:       make(map[model.JobStatus]int64, len(m.jobsByStatus)),
		LastUpdated:        m.lastUpdated,
	}
	if m.jobsCompleted > 0 {
		data.AverageExecutionTime = m.totalExecutionTime / time.Duration(m.jobsCompleted)
	}
	if finished := m.jobsCompleted + m.jobsFailed; finished > 0 {
		data.SuccessRate = float64(m.jobsCompleted) / float64(finished)
	}
	for k, v := range m.jobsByType {
		data.JobsByType[k] = v
	}
	for k, v := range m.jobsByStatus {
		data.JobsByStatus[k] = v
	}
	for jobType, times := range m.executionTimesByType {
		var total time.Duration
		for _, t := range times {
			total += t
		}
		data.AverageByType[jobType] = total / time.Duration(len(times))
	}
	return data
}
