package kb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	data, err := LoadFixture(filepath.Join("testdata", "fixture.yaml"))
	require.NoError(t, err)

	assert.Len(t, data.Pages, 6)
	assert.Len(t, data.Dictionary, 6)
	assert.Len(t, data.Links, 16)
	assert.Equal(t, map[string]int{"capital": 3, "france": 4, "city": 2, "seine": 2}, data.Pages[0].Context)
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"not yaml", "pages: [", "failed to parse yaml"},
		{"unknown page", "dictionary:\n  - {surface_form: x, page_id: 7, count: 1}\n", "unknown page 7"},
		{"duplicate page", "pages:\n  - {id: 1, title: a}\n  - {id: 1, title: b}\n", "defined twice"},
		{"empty surface form", "pages:\n  - {id: 1, title: a}\ndictionary:\n  - {surface_form: '', page_id: 1, count: 1}\n", "empty surface form"},
		{"bad link", "links:\n  - {source: 0, destination: 1}\n", "invalid endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
