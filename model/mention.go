package model

// Mention is one surface form detected in the input document.
// Context holds raw term frequencies until the TF-IDF pass rewrites them into weights;
// Magnitude and Norm are only meaningful after that pass.
type Mention struct {
	Index       int                `json:"index"`
	SurfaceForm string             `json:"surface_form"`
	Context     map[string]float64 `json:"context"`
	Magnitude   float64            `json:"magnitude"`
	Norm        float64            `json:"norm"`
}

// NewMention creates a mention at the given position with an extracted context.
func NewMention(index int, surfaceForm string, context map[string]float64) *Mention {
	if context == nil {
		context = make(map[string]float64)
	}
	return &Mention{Index: index, SurfaceForm: surfaceForm, Context: context}
}

// Terms returns the context vector, mutable in place.
func (m *Mention) Terms() map[string]float64 { return m.Context }

// SetMagnitude stores the magnitude and L2 norm computed for the context vector.
func (m *Mention) SetMagnitude(magnitude, norm float64) {
	m.Magnitude = magnitude
	m.Norm = norm
}
