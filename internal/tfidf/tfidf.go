// Package tfidf reweights context vectors by inverse document frequency
// computed over the documents of one disambiguation run.
package tfidf

import (
	"math"
	"sort"
)

// Vector is a term -> weight document whose map is rewritten in place.
type Vector interface {
	Terms() map[string]float64
	SetMagnitude(magnitude, norm float64)
}

// Stats describes the corpus a Build call worked on.
type Stats struct {
	Documents int `json:"documents"`
	Terms     int `json:"terms"`
}

// Builder accumulates document frequencies before reweighting.
type Builder struct {
	docs    []Vector
	docFreq map[string]int
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{docFreq: make(map[string]int)}
}

// Add registers a document. Each term counts once per document regardless of its frequency.
func (b *Builder) Add(v Vector) {
	b.docs = append(b.docs, v)
	for term := range v.Terms() {
		b.docFreq[term]++
	}
}

// calculateIDF calculates the inverse document frequency
// IDF = ln(N / df) where N = total documents, df = documents containing term
func (b *Builder) calculateIDF(term string) float64 {
	totalDocs := float64(len(b.docs))
	if totalDocs == 0 {
		return 0.0
	}

	docFreq := b.docFreq[term]
	if docFreq == 0 {
		return 0.0
	}

	return math.Log(totalDocs / float64(docFreq))
}

// Apply rewrites every registered vector as raw frequency times IDF and sets
// its magnitude to sqrt(Σ weight) together with the L2 norm sqrt(Σ weight²).
// The document frequencies are discarded afterwards.
func (b *Builder) Apply() Stats {
	stats := Stats{Documents: len(b.docs), Terms: len(b.docFreq)}

	for _, doc := range b.docs {
		terms := doc.Terms()
		sum, sumSquares := 0.0, 0.0
		for _, term := range SortedTerms(terms) {
			weight := terms[term] * b.calculateIDF(term)
			terms[term] = weight
			sum += weight
			sumSquares += weight * weight
		}
		doc.SetMagnitude(math.Sqrt(sum), math.Sqrt(sumSquares))
	}

	b.docs = nil
	b.docFreq = make(map[string]int)
	return stats
}

// SortedTerms returns the terms of a vector in lexical order. Summing in this
// order keeps floating-point results identical between runs.
func SortedTerms(terms map[string]float64) []string {
	keys := make([]string, 0, len(terms))
	for term := range terms {
		keys = append(keys, term)
	}
	sort.Strings(keys)
	return keys
}

// Build registers docs and applies the reweighting in one call.
func Build(docs ...Vector) Stats {
	b := NewBuilder()
	for _, d := range docs {
		b.Add(d)
	}
	return b.Apply()
}
