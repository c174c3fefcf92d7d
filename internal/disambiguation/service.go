// Package disambiguation resolves marked mentions in a text to knowledge-base
// entries. Each request is an independent run: mentions and their contexts are
// extracted, candidates are retrieved and weighted, and a hill-climbing search
// picks one candidate per mention maximizing the global linking quality.
package disambiguation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// Service runs disambiguation requests against one knowledge base.
// It is safe for concurrent use.
type Service struct {
	kb        services.KnowledgeBase
	settings  config.LinkerSettings
	logger    *zap.Logger
	analytics services.AnalyticsTracker
}

// Option configures a Service.
type Option func(*Service)

// WithAnalytics records every finished run with tracker.
func WithAnalytics(tracker services.AnalyticsTracker) Option {
	return func(s *Service) {
		s.analytics = tracker
	}
}

// NewService creates a disambiguation service. Missing settings take their defaults.
func NewService(kb services.KnowledgeBase, settings config.LinkerSettings, logger *zap.Logger, opts ...Option) (*Service, error) {
	if kb == nil {
		return nil, linkerrors.NewValidationError("knowledge_base", "a knowledge base is required")
	}
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, linkerrors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{kb: kb, settings: settings, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Settings returns the settings every run uses.
func (s *Service) Settings() config.LinkerSettings {
	return s.settings
}

// Disambiguate runs one request. A result is always returned: when the run aborts,
// GlobalScore is 0, Mappings is empty and Errors holds the cause.
func (s *Service) Disambiguate(ctx context.Context, req model.DisambiguationRequest) *model.Result {
	result, _ := s.Run(ctx, req)
	return result
}

// Run is Disambiguate that also returns the error that aborted the run, if any.
func (s *Service) Run(ctx context.Context, req model.DisambiguationRequest) (*model.Result, error) {
	start := time.Now()
	requestID := uuid.New().String()
	logger := s.logger.With(zap.String("request_id", requestID))

	r := newRun(s.kb, s.settings, s.seed(req), logger)
	mapping, score, err := r.execute(ctx, req)

	result := &model.Result{
		RequestID: requestID,
		Service:   model.ServiceName,
		Text:      req.Text,
		Errors:    []string{},
		Warnings:  r.warnings,
		Mappings:  []model.MentionResult{},
		Sweeps:    r.sweeps,
	}
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		logger.Warn("Disambiguation failed", zap.Error(err))
	} else {
		result.GlobalScore = score
		result.Mappings = r.mentionResults(mapping)
	}

	elapsed := time.Since(start)
	result.Took = elapsed.Milliseconds()
	s.observe(r, result, err, elapsed, logger)
	return result, err
}

// seed picks the request seed, then the configured seed, then the clock.
func (s *Service) seed(req model.DisambiguationRequest) uint64 {
	switch {
	case req.Seed != nil:
		return uint64(*req.Seed)
	case s.settings.Seed != 0:
		return uint64(s.settings.Seed)
	default:
		return uint64(time.Now().UnixNano())
	}
}

func (s *Service) observe(r *run, result *model.Result, err error, elapsed time.Duration, logger *zap.Logger) {
	outcome := runOutcome(err, r.exhausted)

	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(elapsed.Seconds())
	if err == nil {
		sweepsPerRun.Observe(float64(r.sweeps))
	}
	hits, misses := r.relatedness.stats()
	recordCacheStats("relatedness", hits, misses)
	hits, misses = r.similarity.stats()
	recordCacheStats("similarity", hits, misses)

	logger.Info("Disambiguation finished",
		zap.String("outcome", outcome),
		zap.Int("mentions", len(r.mentions)),
		zap.Int("valid_mentions", r.valid),
		zap.Float64("score", result.GlobalScore),
		zap.Int("sweeps", r.sweeps),
		zap.Int("trials", r.trials),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("relatedness_pairs", r.relatedness.len()),
		zap.Duration("took", elapsed))

	if s.analytics == nil {
		return
	}
	surfaceForms := make([]string, len(r.mentions))
	for i, m := range r.mentions {
		surfaceForms[i] = m.SurfaceForm
	}
	event := model.DisambiguationEvent{
		RequestID:    result.RequestID,
		SurfaceForms: surfaceForms,
		Outcome:      outcome,
		Sweeps:       r.sweeps,
		Warnings:     len(result.Warnings),
		ResponseTime: elapsed,
		Timestamp:    time.Now(),
	}
	if err := s.analytics.TrackRun(event); err != nil {
		logger.Warn("Failed to track run", zap.Error(err))
	}
}

func runOutcome(err error, exhausted bool) string {
	switch {
	case errors.Is(err, linkerrors.ErrNoCandidates):
		return model.OutcomeNoCandidates
	case err != nil:
		return model.OutcomeFailed
	case exhausted:
		return model.OutcomeTimeout
	default:
		return model.OutcomeSuccess
	}
}
