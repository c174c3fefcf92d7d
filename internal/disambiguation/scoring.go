package disambiguation

import (
	"context"
	"math"

	"github.com/gcbaptista/go-entity-linker/config"
	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/tfidf"
	"github.com/gcbaptista/go-entity-linker/model"
)

// contextSimilarity compares the TF-IDF context of a candidate with the context of
// its mention. A zero denominator yields 0.
func (r *run) contextSimilarity(c *model.Candidate) float64 {
	key := similarityKey{mention: c.MentionIndex, id: c.ID}
	if v, ok := r.similarity.get(key); ok {
		return v
	}

	m := r.mentions[c.MentionIndex]
	var denominator float64
	if r.settings.SimilarityMode == config.SimilarityCosine {
		denominator = m.Norm * c.Norm
	} else {
		denominator = m.Magnitude * c.Magnitude
	}

	value := 0.0
	if denominator != 0 {
		value = dotProduct(m.Context, c.Context) / denominator
	}
	if r.settings.SimilarityMode == config.SimilarityCosine && value > 1 {
		value = 1 // rounding
	}
	return r.similarity.putIfAbsent(key, value)
}

// dotProduct sums a[t]*b[t] over the shared terms in lexical order.
func dotProduct(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for _, term := range tfidf.SortedTerms(a) {
		if w, ok := b[term]; ok {
			sum += a[term] * w
		}
	}
	return sum
}

// topicalRelatedness returns the Wikipedia Link-based Measure of two candidates.
// It is symmetric and cached by the unordered id pair.
func (r *run) topicalRelatedness(ctx context.Context, u1, u2 *model.Candidate) (float64, error) {
	key := newPairKey(u1.ID, u2.ID)
	if v, ok := r.relatedness.get(key); ok {
		return v, nil
	}

	for _, u := range []*model.Candidate{u1, u2} {
		if u.Sources < 1 {
			return 0, linkerrors.NewMissingSourceCountError(u.Title, u.Sources)
		}
	}

	intersection, err := r.kb.IntersectionCount(ctx, key.lo, key.hi)
	if err != nil {
		return 0, knowledgeBaseError("intersection count", err)
	}

	value := linkMeasure(u1.Sources, u2.Sources, intersection, r.settings.TotalPages)
	return r.relatedness.putIfAbsent(key, value), nil
}

// linkMeasure computes
//
//	1 - (ln max(s1,s2) - ln inter) / (ln total - ln min(s1,s2))
//
// Pages sharing no in-link are unrelated. The value is not clamped: weakly
// related pairs go negative and surface as an invalid linking quality.
func linkMeasure(sources1, sources2, intersection, totalPages int) float64 {
	if intersection <= 0 {
		return 0
	}
	hi, lo := float64(sources1), float64(sources2)
	if lo > hi {
		hi, lo = lo, hi
	}

	denominator := math.Log(float64(totalPages)) - math.Log(lo)
	return 1 - (math.Log(hi)-math.Log(float64(intersection)))/denominator
}

// globalCoherence averages the relatedness of c to the candidates assigned to
// every other mention. With a single resolvable mention it is 1.
func (r *run) globalCoherence(ctx context.Context, c *model.Candidate, mapping model.Mapping) (float64, error) {
	if r.valid <= 1 {
		return 1.0, nil
	}

	sum := 0.0
	for i, e := range mapping {
		if e == nil || i == c.MentionIndex {
			continue
		}
		tr, err := r.topicalRelatedness(ctx, c, e)
		if err != nil {
			return 0, err
		}
		sum += tr
	}
	return sum / float64(r.valid-1), nil
}

// linkingQuality scores c within mapping and stores the value on the candidate.
func (r *run) linkingQuality(ctx context.Context, c *model.Candidate, mapping model.Mapping) (float64, error) {
	gc, err := r.globalCoherence(ctx, c, mapping)
	if err != nil {
		return 0, err
	}
	quality := r.settings.Alpha*c.LinkProbability +
		r.settings.Beta*r.contextSimilarity(c) +
		r.settings.Gamma*gc

	if err := c.SetScore(quality); err != nil {
		return 0, err
	}
	return quality, nil
}

// globalLinkingQuality is the sum of the linking qualities of every assigned candidate.
func (r *run) globalLinkingQuality(ctx context.Context, mapping model.Mapping) (float64, error) {
	total := 0.0
	for _, c := range mapping {
		if c == nil {
			continue
		}
		q, err := r.linkingQuality(ctx, c, mapping)
		if err != nil {
			return 0, err
		}
		total += q
	}
	return total, nil
}
