// Package config provides configuration structures for the entity linker.
// It defines the disambiguation settings and the service configuration.
package config

import (
	"fmt"
	"math"
	"time"
)

// Compatibility constants of the disambiguation algorithm.
const (
	DefaultNeighbors       = 10      // Words taken on each side of a surface-form occurrence
	DefaultMaxSurfaceForms = 8       // Distinct surface forms considered per request
	DefaultTotalPages      = 3918446 // Corpus size used by the Wikipedia Link-based Measure
	DefaultAlpha           = 0.1     // Weight for link probability
	DefaultBeta            = 0.4     // Weight for context similarity
	DefaultGamma           = 0.5     // Weight for global coherence
	DefaultMaxSweeps       = 100
	DefaultTimeout         = 30 * time.Second

	DefaultRetrievalConcurrency = 4
)

// Similarity modes.
const (
	// SimilarityCompat divides the dot product by the square roots of the summed
	// TF-IDF weights, as the reference implementation does.
	SimilarityCompat = "compat"
	// SimilarityCosine divides the dot product by the true L2 norms.
	SimilarityCosine = "cosine"
)

// LinkerSettings contains all options of a disambiguation run.
//
// The zero value is not usable; call ApplyDefaults before handing the settings to
// the engine. Alpha, Beta and Gamma must add up to 1 so that the linking quality of
// a candidate stays within [0,1].
type LinkerSettings struct {
	Alpha                float64       `json:"alpha" yaml:"alpha" env:"LINKER_ALPHA"`                                 // Weight for link probability
	Beta                 float64       `json:"beta" yaml:"beta" env:"LINKER_BETA"`                                    // Weight for context similarity
	Gamma                float64       `json:"gamma" yaml:"gamma" env:"LINKER_GAMMA"`                                 // Weight for global coherence
	Neighbors            int           `json:"neighbors" yaml:"neighbors" env:"LINKER_NEIGHBORS"`                     // Context window radius in tokens
	MaxSurfaceForms      int           `json:"max_surface_forms" yaml:"max_surface_forms" env:"LINKER_MAX_SURFACE_FORMS"`
	TotalPages           int           `json:"total_pages" yaml:"total_pages" env:"LINKER_TOTAL_PAGES"`
	MaxSweeps            int           `json:"max_sweeps" yaml:"max_sweeps" env:"LINKER_MAX_SWEEPS"`      // Upper bound on optimization sweeps
	Timeout              time.Duration `json:"timeout" yaml:"timeout" env:"LINKER_TIMEOUT"`               // Wall-clock budget of the optimization loop
	Seed                 int64         `json:"seed" yaml:"seed" env:"LINKER_SEED"`                        // 0 means seed from the clock
	MinTextLength        int           `json:"min_text_length" yaml:"min_text_length" env:"LINKER_MIN_TEXT_LENGTH"` // 0 disables the check
	RetrievalConcurrency int           `json:"retrieval_concurrency" yaml:"retrieval_concurrency" env:"LINKER_RETRIEVAL_CONCURRENCY"`
	SimilarityMode       string        `json:"similarity_mode" yaml:"similarity_mode" env:"LINKER_SIMILARITY_MODE"`
}

// DefaultLinkerSettings returns settings with every default applied.
func DefaultLinkerSettings() LinkerSettings {
	var s LinkerSettings
	s.ApplyDefaults()
	return s
}

// ApplyDefaults applies default values to the linker settings
func (s *LinkerSettings) ApplyDefaults() {
	if s.Alpha == 0 && s.Beta == 0 && s.Gamma == 0 {
		s.Alpha, s.Beta, s.Gamma = DefaultAlpha, DefaultBeta, DefaultGamma
	}
	if s.Neighbors == 0 {
		s.Neighbors = DefaultNeighbors
	}
	if s.MaxSurfaceForms == 0 {
		s.MaxSurfaceForms = DefaultMaxSurfaceForms
	}
	if s.TotalPages == 0 {
		s.TotalPages = DefaultTotalPages
	}
	if s.MaxSweeps == 0 {
		s.MaxSweeps = DefaultMaxSweeps
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	if s.RetrievalConcurrency == 0 {
		s.RetrievalConcurrency = DefaultRetrievalConcurrency
	}
	if s.SimilarityMode == "" {
		s.SimilarityMode = SimilarityCompat
	}
}

// Validate checks the settings and returns one message per problem found.
func (s *LinkerSettings) Validate() []string {
	var problems []string

	weights := []struct {
		name  string
		value float64
	}{{"alpha", s.Alpha}, {"beta", s.Beta}, {"gamma", s.Gamma}}
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			problems = append(problems, fmt.Sprintf("Weight '%s' must be within [0,1], got %g", w.name, w.value))
		}
	}
	if sum := s.Alpha + s.Beta + s.Gamma; math.Abs(sum-1) > 1e-9 {
		problems = append(problems, fmt.Sprintf("Weights alpha, beta and gamma must add up to 1, got %g", sum))
	}
	if s.Neighbors < 1 {
		problems = append(problems, "Neighbors must be at least 1")
	}
	if s.MaxSurfaceForms < 1 {
		problems = append(problems, "Max surface forms must be at least 1")
	}
	if s.TotalPages < 2 {
		problems = append(problems, "Total pages must be at least 2")
	}
	if s.MaxSweeps < 1 {
		problems = append(problems, "Max sweeps must be at least 1")
	}
	if s.Timeout < 0 {
		problems = append(problems, "Timeout cannot be negative")
	}
	if s.MinTextLength < 0 {
		problems = append(problems, "Min text length cannot be negative")
	}
	if s.RetrievalConcurrency < 1 {
		problems = append(problems, "Retrieval concurrency must be at least 1")
	}
	if s.SimilarityMode != SimilarityCompat && s.SimilarityMode != SimilarityCosine {
		problems = append(problems, "Invalid similarity mode '"+s.SimilarityMode+"' (must be 'compat' or 'cosine')")
	}

	return problems
}
