package disambiguation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/extractor"
	"github.com/gcbaptista/go-entity-linker/internal/tfidf"
	"github.com/gcbaptista/go-entity-linker/internal/tokenizer"
	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// run holds the state of one disambiguation request. It is not shared between
// requests; only retrieval touches it from several goroutines.
type run struct {
	settings config.LinkerSettings
	kb       services.KnowledgeBase
	logger   *zap.Logger
	rng      *rand.Rand

	mentions   []*model.Mention
	candidates [][]*model.Candidate // by mention index
	valid      int                  // mentions with at least one candidate

	relatedness *scoreCache[pairKey]
	similarity  *scoreCache[similarityKey]

	warnings  []string
	sweeps    int
	trials    int  // alternative mappings scored by sweeps
	exhausted bool // optimization stopped on MaxSweeps or Timeout
}

func newRun(kb services.KnowledgeBase, settings config.LinkerSettings, seed uint64, logger *zap.Logger) *run {
	return &run{
		settings:    settings,
		kb:          kb,
		logger:      logger,
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		relatedness: newScoreCache[pairKey](),
		similarity:  newScoreCache[similarityKey](),
		warnings:    []string{},
	}
}

func (r *run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.logger.Debug("Disambiguation warning", zap.String("warning", msg))
}

// execute validates the request, builds mentions and candidates and searches
// for the best mapping.
func (r *run) execute(ctx context.Context, req model.DisambiguationRequest) (model.Mapping, float64, error) {
	if err := r.prepare(ctx, req); err != nil {
		return nil, 0, err
	}
	return r.optimize(ctx)
}

// prepare extracts the mentions of req, retrieves their candidates and weights
// every context.
func (r *run) prepare(ctx context.Context, req model.DisambiguationRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return linkerrors.NewEmptyInputError(0, r.settings.MinTextLength)
	}
	if length := utf8.RuneCountInString(req.Text); length < r.settings.MinTextLength {
		return linkerrors.NewEmptyInputError(length, r.settings.MinTextLength)
	}

	markupForms, plain := tokenizer.ParseMarkup(req.Text)
	raw := req.SurfaceForms
	if len(raw) == 0 {
		raw = markupForms
	}
	forms, dropped := tokenizer.SurfaceForms(raw, r.settings.MaxSurfaceForms)
	if dropped > 0 {
		r.warn("Maximum number of surface forms (%d) reached, %d discarded", r.settings.MaxSurfaceForms, dropped)
	}
	if len(forms) == 0 {
		return fmt.Errorf("%w: mark mentions with [[...]] or pass surface_forms", linkerrors.ErrNoMentions)
	}

	nText := tokenizer.Normalize(plain)
	r.mentions = make([]*model.Mention, len(forms))
	for i, sf := range forms {
		terms, ok := extractor.Extract(nText, sf, r.settings.Neighbors)
		if !ok {
			r.warn("%s", extractor.MissingWarning(sf))
		}
		r.mentions[i] = model.NewMention(i, sf, terms)
	}

	if err := r.retrieve(ctx); err != nil {
		return err
	}
	if r.valid == 0 {
		return linkerrors.ErrNoCandidates
	}

	builder := tfidf.NewBuilder()
	for i, m := range r.mentions {
		if len(r.candidates[i]) == 0 {
			continue
		}
		builder.Add(m)
		for _, c := range r.candidates[i] {
			builder.Add(c)
		}
	}
	stats := builder.Apply()
	r.logger.Debug("Weighted contexts",
		zap.Int("documents", stats.Documents),
		zap.Int("terms", stats.Terms),
		zap.Int("valid_mentions", r.valid))
	return nil
}

// mentionResults lists every mention in order with its committed candidate.
func (r *run) mentionResults(mapping model.Mapping) []model.MentionResult {
	out := make([]model.MentionResult, len(r.mentions))
	for i, m := range r.mentions {
		out[i].SurfaceForm = m.SurfaceForm
		c := mapping[i]
		if c == nil {
			continue
		}
		score, id, title := c.FinalScore, c.ID, c.Title
		out[i].Score = &score
		out[i].CandidateID = &id
		out[i].Title = &title
	}
	return out
}
