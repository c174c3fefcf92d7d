// Package analytics keeps recent disambiguation runs and summarizes them for the dashboard.
package analytics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/model"
)

const (
	maxEventsToKeep    = 10000 // Keep last 10k events for performance
	popularFormsToShow = 5
)

// Service implements analytics tracking and reporting
type Service struct {
	mutex        sync.RWMutex
	events       []model.DisambiguationEvent
	dataFilePath string // empty disables persistence
	logger       *zap.Logger
	now          func() time.Time

	seq      uint64 // bumped on every tracked event
	saveMu   sync.Mutex
	savedSeq uint64
	pending  sync.WaitGroup
}

// NewService creates a new analytics service. Events are loaded from and saved
// to dataFilePath unless it is empty.
func NewService(dataFilePath string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		events:       make([]model.DisambiguationEvent, 0),
		dataFilePath: dataFilePath,
		logger:       logger.Named("analytics"),
		now:          time.Now,
	}

	// Load existing analytics data
	if err := service.loadData(); err != nil {
		service.logger.Warn("Failed to load analytics data", zap.Error(err))
	}

	return service
}

// TrackRun records a finished run
func (s *Service) TrackRun(event model.DisambiguationEvent) error {
	s.mutex.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
	s.seq++
	seq := s.seq
	snapshot := make([]model.DisambiguationEvent, len(s.events))
	copy(snapshot, s.events)
	s.mutex.Unlock()

	if s.dataFilePath == "" {
		return nil
	}

	// Persist data asynchronously
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.saveData(seq, snapshot); err != nil {
			s.logger.Warn("Failed to save analytics data", zap.Error(err))
		}
	}()

	return nil
}

// Close waits for pending saves
func (s *Service) Close() {
	s.pending.Wait()
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() (model.AnalyticsDashboard, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	// Filter events for different time periods
	last24hEvents := s.filterEventsByTimeRange(yesterday, now.Add(time.Nanosecond))
	prev24hEvents := s.filterEventsByTimeRange(yesterday.Add(-24*time.Hour), yesterday)
	lastWeekEvents := s.filterEventsByTimeRange(lastWeek, now.Add(time.Nanosecond))

	dashboard := model.AnalyticsDashboard{
		TotalRuns:                len(last24hEvents),
		RunsChangePercent:        calculateChangePercent(len(last24hEvents), len(prev24hEvents)),
		AvgResponseTime:          calculateAvgResponseTime(last24hEvents),
		ResponseTimeChange:       calculateResponseTimeChange(last24hEvents, prev24hEvents),
		AvgSweeps:                calculateAvgSweeps(last24hEvents),
		Outcomes:                 countOutcomes(last24hEvents),
		PopularSurfaceForms:      getPopularSurfaceForms(lastWeekEvents),
		ResponseTimeDistribution: getResponseTimeDistribution(last24hEvents),
	}

	return dashboard, nil
}

// filterEventsByTimeRange returns events within (start, end)
func (s *Service) filterEventsByTimeRange(start, end time.Time) []model.DisambiguationEvent {
	var filtered []model.DisambiguationEvent
	for _, event := range s.events {
		if event.Timestamp.After(start) && event.Timestamp.Before(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change between current and previous values
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.DisambiguationEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// calculateResponseTimeChange calculates response time change trend
func calculateResponseTimeChange(current, previous []model.DisambiguationEvent) string {
	currentAvg := calculateAvgResponseTime(current)
	previousAvg := calculateAvgResponseTime(previous)

	if previousAvg == 0 {
		return "stable"
	}

	change := float64(currentAvg-previousAvg) / float64(previousAvg)
	if change > 0.1 {
		return "up"
	} else if change < -0.1 {
		return "down"
	}
	return "stable"
}

func calculateAvgSweeps(events []model.DisambiguationEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	total := 0
	for _, event := range events {
		total += event.Sweeps
	}
	return float64(total) / float64(len(events))
}

func countOutcomes(events []model.DisambiguationEvent) map[string]int {
	outcomes := map[string]int{
		model.OutcomeSuccess:      0,
		model.OutcomeFailed:       0,
		model.OutcomeTimeout:      0,
		model.OutcomeNoCandidates: 0,
	}
	for _, event := range events {
		outcomes[event.Outcome]++
	}
	return outcomes
}

// getPopularSurfaceForms returns the most requested surface forms, ties by name
func getPopularSurfaceForms(events []model.DisambiguationEvent) []model.PopularSurfaceForm {
	counts := make(map[string]int)
	for _, event := range events {
		for _, sf := range event.SurfaceForms {
			counts[sf]++
		}
	}

	popular := make([]model.PopularSurfaceForm, 0, len(counts))
	for sf, count := range counts {
		popular = append(popular, model.PopularSurfaceForm{SurfaceForm: sf, RequestCount: count})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].RequestCount != popular[j].RequestCount {
			return popular[i].RequestCount > popular[j].RequestCount
		}
		return popular[i].SurfaceForm < popular[j].SurfaceForm
	})

	if len(popular) > popularFormsToShow {
		popular = popular[:popularFormsToShow]
	}
	return popular
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.DisambiguationEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)

	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	// Calculate percentages
	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100

	return dist
}

// loadData loads analytics data from file
func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.dataFilePath) // #nosec G304 -- path comes from configuration
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet, that's okay
	}
	if err != nil {
		return fmt.Errorf("failed to read analytics file: %w", err)
	}

	if err := sonic.Unmarshal(data, &s.events); err != nil {
		return fmt.Errorf("failed to unmarshal analytics data: %w", err)
	}
	return nil
}

// saveData saves events to file. Snapshots older than the last one written are skipped.
func (s *Service) saveData(seq uint64, events []model.DisambiguationEvent) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedSeq {
		return nil
	}

	dir := filepath.Dir(s.dataFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create analytics directory: %w", err)
	}

	data, err := sonic.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}

	if err := os.WriteFile(s.dataFilePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	s.savedSeq = seq
	return nil
}
