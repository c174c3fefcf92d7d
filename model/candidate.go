package model

import (
	"math"

	"github.com/gcbaptista/go-entity-linker/internal/errors"
)

// CandidateRecord is a raw knowledge-base row for one surface form.
// Context is the serialized term-frequency list, e.g. [["city",3],["river",1]].
type CandidateRecord struct {
	ID       int64  `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	RawCount int    `json:"raw_count" yaml:"raw_count"`
	Context  string `json:"context" yaml:"context"`
}

// Candidate is a knowledge-base entry eligible for one mention.
//
// MentionIndex refers back into the run's mention list; it is only valid within
// the run that created the candidate.
type Candidate struct {
	ID              int64              `json:"id"`
	Title           string             `json:"title"`
	MentionIndex    int                `json:"mention_index"`
	RawCount        int                `json:"raw_count"`
	LinkProbability float64            `json:"link_probability"`
	Sources         int                `json:"sources"` // In-link count, 0 while unset
	Context         map[string]float64 `json:"-"`
	Magnitude       float64            `json:"magnitude"`
	Norm            float64            `json:"norm"`
	FinalScore      float64            `json:"final_score"`

	score    float64
	hasScore bool
}

// NewCandidate builds a candidate for the mention at mentionIndex.
func NewCandidate(record CandidateRecord, mentionIndex int, context map[string]float64) *Candidate {
	if context == nil {
		context = make(map[string]float64)
	}
	return &Candidate{
		ID:           record.ID,
		Title:        record.Title,
		MentionIndex: mentionIndex,
		RawCount:     record.RawCount,
		Context:      context,
	}
}

// SetScore stores the linking quality of the candidate. Values outside [0,1]
// are rejected and leave the previous score untouched.
func (c *Candidate) SetScore(value float64) error {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return errors.NewInvalidScoreError(c.Title, value)
	}
	c.score = value
	c.hasScore = true
	return nil
}

// Score returns the last stored linking quality.
func (c *Candidate) Score() float64 { return c.score }

// HasScore reports whether a score has been stored yet.
func (c *Candidate) HasScore() bool { return c.hasScore }

// SnapshotScore copies the current score into FinalScore.
func (c *Candidate) SnapshotScore() { c.FinalScore = c.score }

// SetSources records the in-link count, floored at 1.
func (c *Candidate) SetSources(count int) {
	if count < 1 {
		count = 1
	}
	c.Sources = count
}

// ComputeLinkProbability sets the share of the mention's observations that point to this candidate.
func (c *Candidate) ComputeLinkProbability(totalCount int) {
	if totalCount <= 0 {
		c.LinkProbability = 0
		return
	}
	c.LinkProbability = float64(c.RawCount) / float64(totalCount)
}

// Terms returns the context vector, mutable in place.
func (c *Candidate) Terms() map[string]float64 { return c.Context }

// SetMagnitude stores the magnitude and L2 norm computed for the context vector.
func (c *Candidate) SetMagnitude(magnitude, norm float64) {
	c.Magnitude = magnitude
	c.Norm = norm
}

// Mapping assigns one candidate to each mention, indexed by mention index.
// An entry is nil exactly when the mention has no candidates.
type Mapping []*Candidate

// Clone returns a shallow copy sharing the candidates.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	copy(out, m)
	return out
}

// SnapshotScores snapshots the score of every assigned candidate.
func (m Mapping) SnapshotScores() {
	for _, c := range m {
		if c != nil {
			c.SnapshotScore()
		}
	}
}
