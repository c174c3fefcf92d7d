package disambiguation

import (
	"context"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/model"
)

// initialAssignment draws one candidate per mention from the run's random source.
func (r *run) initialAssignment() model.Mapping {
	mapping := make(model.Mapping, len(r.mentions))
	for i, list := range r.candidates {
		if len(list) == 0 {
			continue
		}
		mapping[i] = list[r.rng.IntN(len(list))]
	}
	return mapping
}

// optimize hill-climbs over single-mention swaps until a sweep finds nothing
// better than the committed mapping, MaxSweeps is reached or the time budget
// runs out. It returns the committed mapping and its global linking quality.
//
// FinalScore of every committed candidate holds its score in the committed mapping.
func (r *run) optimize(ctx context.Context) (model.Mapping, float64, error) {
	mapping := r.initialAssignment()
	score, err := r.globalLinkingQuality(ctx, mapping)
	if err != nil {
		return nil, 0, err
	}
	mapping.SnapshotScores()
	trial := mapping.Clone()

	budget := ctx
	if r.settings.Timeout > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, r.settings.Timeout)
		defer cancel()
	}

	for {
		if r.sweeps == r.settings.MaxSweeps {
			r.warn("Optimization stopped after %d sweeps without converging, returning the best mapping found", r.sweeps)
			r.exhausted = true
			break
		}

		best := score
		pending, err := r.sweep(budget, mapping, trial, &best)
		r.sweeps++
		if err != nil {
			if ctx.Err() != nil || budget.Err() == nil {
				return nil, 0, err
			}
			r.warn("Optimization stopped after %s without converging, returning the best mapping found", r.settings.Timeout)
			r.exhausted = true
			if pending != nil {
				mapping[pending.MentionIndex] = pending
				score = best
			}
			break
		}
		if pending == nil {
			break
		}

		mapping[pending.MentionIndex] = pending
		trial[pending.MentionIndex] = pending
		score = best
		r.logger.Debug("Sweep improved mapping",
			zap.Int("sweep", r.sweeps),
			zap.String("surface_form", r.mentions[pending.MentionIndex].SurfaceForm),
			zap.String("candidate", pending.Title),
			zap.Float64("score", score))
	}

	return mapping, score, nil
}

// sweep tries every alternative candidate of every ambiguous mention against the
// committed mapping. The tracked best ratchets up with each improvement, so the
// returned candidate is the best single swap of the sweep, the first one found
// winning ties. When it is not nil, best holds the score of the swapped mapping
// and the FinalScore of its candidates has been snapshotted.
func (r *run) sweep(ctx context.Context, mapping, trial model.Mapping, best *float64) (*model.Candidate, error) {
	var pending *model.Candidate
	for i, list := range r.candidates {
		if len(list) < 2 {
			continue
		}
		current := mapping[i]
		for _, alternative := range list {
			if alternative == current {
				continue
			}
			if err := ctx.Err(); err != nil {
				return pending, err
			}

			trial[i] = alternative
			r.trials++
			score, err := r.globalLinkingQuality(ctx, trial)
			if err != nil {
				trial[i] = current
				return pending, err
			}
			if score > *best {
				*best = score
				pending = alternative
				trial.SnapshotScores()
			}
			trial[i] = current
		}
	}
	return pending, nil
}
