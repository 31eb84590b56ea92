package pbs

import (
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/thuhak/pbs-cache/pkg/errors"
)

// Sanitize parses scheduler CLI output that may contain structurally
// invalid lines, a known quirk of the json output mode. On a syntax error
// the offending line is removed and the parse retried. Attempts are
// bounded by the original line count; exhaustion, or an error that is not
// a syntax error, yields an INGESTION error.
func Sanitize(data []byte) (map[string]any, error) {
	lines := strings.Split(string(data), "\n")
	maxAttempts := len(lines)

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		text := strings.Join(lines, "\n")

		var doc map[string]any
		err := json.Unmarshal([]byte(text), &doc)
		if err == nil {
			return doc, nil
		}

		var syn *json.SyntaxError
		if !stderrors.As(err, &syn) {
			return nil, errors.Wrap(errors.ErrCodeIngestion, "unparseable scheduler output", err)
		}

		line := lineOfOffset(text, syn.Offset)
		if line < 0 || line >= len(lines) {
			return nil, errors.Wrap(errors.ErrCodeIngestion, "unparseable scheduler output", err)
		}
		lines = append(lines[:line], lines[line+1:]...)
	}

	return nil, errors.NewWithContext(errors.ErrCodeIngestion,
		"unparseable scheduler output after line repair",
		map[string]any{"attempts": maxAttempts})
}

// lineOfOffset maps a json.SyntaxError byte offset to a zero-based line
// index. The offset points just past the byte that triggered the error.
func lineOfOffset(text string, offset int64) int {
	idx := int(offset)
	if idx > len(text) {
		idx = len(text)
	}
	if idx > 0 {
		idx--
	}
	return strings.Count(text[:idx], "\n")
}
