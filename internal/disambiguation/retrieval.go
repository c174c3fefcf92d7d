package disambiguation

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/kb"
	"github.com/gcbaptista/go-entity-linker/model"
)

// knowledgeBaseError wraps err unless a backend already reported a KnowledgeBaseError.
func knowledgeBaseError(op string, err error) error {
	var kbErr *linkerrors.KnowledgeBaseError
	if errors.As(err, &kbErr) {
		return err
	}
	return linkerrors.NewKnowledgeBaseError(op, err)
}

// retrieve looks up the candidates of every mention, then the in-link count of
// every candidate. Lookups run concurrently; results keep mention and candidate order.
func (r *run) retrieve(ctx context.Context) error {
	candidates := make([][]*model.Candidate, len(r.mentions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.RetrievalConcurrency)
	for i, m := range r.mentions {
		g.Go(func() error {
			records, err := r.kb.LookupCandidates(gctx, m.SurfaceForm)
			if err != nil {
				return knowledgeBaseError("candidate lookup", err)
			}

			list := make([]*model.Candidate, 0, len(records))
			total := 0
			for _, record := range records {
				terms, err := kb.DecodeContext(record.Context)
				if err != nil {
					return knowledgeBaseError("context decoding", fmt.Errorf("candidate %d: %w", record.ID, err))
				}
				list = append(list, model.NewCandidate(record, i, terms))
				total += record.RawCount
			}
			for _, c := range list {
				c.ComputeLinkProbability(total)
			}
			candidates[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.settings.RetrievalConcurrency)
	for _, list := range candidates {
		for _, c := range list {
			g.Go(func() error {
				sources, err := r.kb.SourceCount(gctx, c.ID)
				if err != nil {
					return knowledgeBaseError("source count", err)
				}
				c.SetSources(sources)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.candidates = candidates
	r.valid = 0
	for i, list := range candidates {
		if len(list) == 0 {
			r.warn("There are no candidates for named entity %s!", r.mentions[i].SurfaceForm)
			continue
		}
		r.valid++
	}
	return nil
}
