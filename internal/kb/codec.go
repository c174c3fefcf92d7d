package kb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// DecodeContext parses a serialized term-frequency list of the form
// [["term", freq], ...]. An empty string decodes to an empty context.
// When a term repeats, the last frequency wins.
func DecodeContext(serialized string) (map[string]float64, error) {
	context := make(map[string]float64)
	serialized = strings.TrimSpace(serialized)
	if serialized == "" {
		return context, nil
	}

	var pairs [][]interface{}
	if err := sonic.UnmarshalString(serialized, &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}

	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("context entry %d has %d elements, expected 2", i, len(pair))
		}

		var term string
		switch v := pair[0].(type) {
		case string:
			term = v
		case float64:
			term = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("context entry %d has a term of type %T", i, pair[0])
		}

		freq, ok := pair[1].(float64)
		if !ok {
			return nil, fmt.Errorf("context entry %d has a frequency of type %T", i, pair[1])
		}
		context[term] = freq
	}
	return context, nil
}

// EncodeContext serializes term frequencies as [["term", freq], ...] sorted by term.
func EncodeContext(context map[string]int) (string, error) {
	terms := make([]string, 0, len(context))
	for term := range context {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	pairs := make([][]interface{}, 0, len(terms))
	for _, term := range terms {
		pairs = append(pairs, []interface{}{term, context[term]})
	}

	out, err := sonic.MarshalString(pairs)
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}
	return out, nil
}
