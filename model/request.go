package model

// DisambiguationRequest is the engine input.
// SurfaceForms may be empty when the text marks mentions with [[...]].
type DisambiguationRequest struct {
	Text         string   `json:"text" xml:"text" form:"text"`
	SurfaceForms []string `json:"surface_forms,omitempty" xml:"surfaceForm" form:"surface_forms"`
	Seed         *int64   `json:"seed,omitempty" xml:"seed,omitempty" form:"seed"` // Overrides the configured seed, for reproducible runs
}
