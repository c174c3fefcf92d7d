package kb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gcbaptista/go-entity-linker/model"
)

// LoadFixture reads a YAML knowledge-base description from path.
func LoadFixture(path string) (*model.KnowledgeBaseData, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	data, err := ParseFixture(raw)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return data, nil
}

// ParseFixture decodes and validates a YAML knowledge-base description.
func ParseFixture(raw []byte) (*model.KnowledgeBaseData, error) {
	var data model.KnowledgeBaseData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := ValidateData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ValidateData checks that dictionary rows point to known pages and that
// identifiers and counts are usable.
func ValidateData(data *model.KnowledgeBaseData) error {
	pages := make(map[int64]struct{}, len(data.Pages))
	for i, p := range data.Pages {
		if p.ID <= 0 {
			return fmt.Errorf("page %d has invalid id %d", i, p.ID)
		}
		if _, dup := pages[p.ID]; dup {
			return fmt.Errorf("page id %d is defined twice", p.ID)
		}
		pages[p.ID] = struct{}{}
	}
	for i, d := range data.Dictionary {
		if d.SurfaceForm == "" {
			return fmt.Errorf("dictionary entry %d has an empty surface form", i)
		}
		if _, ok := pages[d.PageID]; !ok {
			return fmt.Errorf("dictionary entry %d ('%s') refers to unknown page %d", i, d.SurfaceForm, d.PageID)
		}
		if d.Count < 0 {
			return fmt.Errorf("dictionary entry %d ('%s') has a negative count", i, d.SurfaceForm)
		}
	}
	for i, l := range data.Links {
		if l.Source <= 0 || l.Destination <= 0 {
			return fmt.Errorf("link %d has an invalid endpoint", i)
		}
	}
	return nil
}
