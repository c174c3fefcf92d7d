package model

import "encoding/xml"

// ServiceName is reported in every result.
const ServiceName = "Disambiguate"

// MentionResult is the outcome for one mention. Title, Score and CandidateID are
// nil when the mention had no candidates or the run failed.
type MentionResult struct {
	SurfaceForm string   `json:"surface_form" xml:"surfaceForm,attr"`
	Score       *float64 `json:"score" xml:"score,attr,omitempty"`
	CandidateID *int64   `json:"candidate_id" xml:"wikiID,attr,omitempty"`
	Title       *string  `json:"title" xml:",chardata"`
}

// Result is always produced by a run, including the failure path where
// GlobalScore is 0, Mappings is empty and Errors explains why.
type Result struct {
	XMLName     xml.Name        `json:"-" xml:"message"`
	RequestID   string          `json:"request_id" xml:"requestId,attr,omitempty"`
	GlobalScore float64         `json:"global_score" xml:"totalScore,attr"`
	Service     string          `json:"service" xml:"service,attr"`
	Text        string          `json:"request" xml:"request"`
	Errors      []string        `json:"errors" xml:"errors>error"`
	Warnings    []string        `json:"warnings" xml:"warnings>warning"`
	Mappings    []MentionResult `json:"mappings" xml:"mappings>mapping"`
	Sweeps      int             `json:"sweeps" xml:"-"`
	Took        int64           `json:"took" xml:"-"` // milliseconds
}

// Failed reports whether the run aborted.
func (r *Result) Failed() bool { return len(r.Errors) > 0 }
