package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		surfaceForm string
		neighbors   int
		want        Context
	}{
		{
			name:        "window of two around a single occurrence",
			text:        "the capital of france paris is beautiful city today",
			surfaceForm: "paris",
			neighbors:   2,
			want:        Context{"of": 1, "france": 1, "is": 1, "beautiful": 1},
		},
		{
			name:        "window larger than the text",
			text:        "the capital of france paris is beautiful",
			surfaceForm: "paris",
			neighbors:   10,
			want:        Context{"the": 1, "capital": 1, "of": 1, "france": 1, "is": 1, "beautiful": 1},
		},
		{
			name:        "occurrence at the start of the text",
			text:        "paris is the capital",
			surfaceForm: "paris",
			neighbors:   2,
			want:        Context{"is": 1, "the": 1},
		},
		{
			name:        "occurrence at the end of the text",
			text:        "i love paris",
			surfaceForm: "paris",
			neighbors:   2,
			want:        Context{"i": 1, "love": 1},
		},
		{
			name:        "close occurrences do not double count",
			text:        "a b paris c d paris e f",
			surfaceForm: "paris",
			neighbors:   3,
			want:        Context{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1},
		},
		{
			name:        "leftover after tokens feed the next window",
			text:        "paris a b c d e paris",
			surfaceForm: "paris",
			neighbors:   2,
			want:        Context{"a": 1, "b": 1, "d": 1, "e": 1},
		},
		{
			name:        "frequencies accumulate across occurrences",
			text:        "river paris river x river paris",
			surfaceForm: "paris",
			neighbors:   1,
			want:        Context{"river": 3},
		},
		{
			name:        "punctuation is purified",
			text:        "in france's paris, the city.",
			surfaceForm: "paris",
			neighbors:   2,
			want:        Context{"in": 1, "frances": 1, "the": 1, "city": 1},
		},
		{
			name:        "multi-word surface form",
			text:        "the city of new york is big",
			surfaceForm: "new york",
			neighbors:   1,
			want:        Context{"of": 1, "is": 1},
		},
		{
			name:        "substring inside a word is not an occurrence",
			text:        "parisian food in paris today",
			surfaceForm: "paris",
			neighbors:   1,
			want:        Context{"in": 1, "today": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, tt.surfaceForm, tt.neighbors)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_MissingSurfaceForm(t *testing.T) {
	got, ok := Extract("the capital of france is beautiful", "paris", 10)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, "Number of chunks for paris is less than 2", MissingWarning("paris"))
}

func TestExtract_EmptyInputs(t *testing.T) {
	_, ok := Extract("", "paris", 10)
	assert.False(t, ok)

	_, ok = Extract("paris", "", 10)
	assert.False(t, ok)
}

func TestSplit_RegexCharactersAreLiteral(t *testing.T) {
	chunks := Split("we use c++ daily and c++ weekly", "c++")
	assert.Len(t, chunks, 3)
}
