package model

// Page is a knowledge-base article with its pre-extracted context (term -> frequency).
type Page struct {
	ID      int64          `json:"id" yaml:"id"`
	Title   string         `json:"title" yaml:"title"`
	Context map[string]int `json:"context" yaml:"context"`
}

// DictionaryEntry records how often SurfaceForm was used to link to PageID.
type DictionaryEntry struct {
	SurfaceForm string `json:"surface_form" yaml:"surface_form"`
	PageID      int64  `json:"page_id" yaml:"page_id"`
	Count       int    `json:"count" yaml:"count"`
}

// Link is a directed edge of the link graph.
type Link struct {
	Source      int64 `json:"source" yaml:"source"`
	Destination int64 `json:"destination" yaml:"destination"`
}

// KnowledgeBaseData is the importable content of a knowledge base.
type KnowledgeBaseData struct {
	Pages      []Page            `json:"pages" yaml:"pages"`
	Dictionary []DictionaryEntry `json:"dictionary" yaml:"dictionary"`
	Links      []Link            `json:"links" yaml:"links"`
}

// Size returns the number of rows an import writes.
func (d *KnowledgeBaseData) Size() int {
	return len(d.Pages) + len(d.Dictionary) + len(d.Links)
}
