package pbs

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuhak/pbs-cache/pkg/errors"
)

const validOutput = `{
  "timestamp": 1714000000,
  "nodes": {
    "cn01": {
      "state": "free",
      "resources_available": {"ncpus": 16}
    }
  }
}`

func TestSanitizeValid(t *testing.T) {
	doc, err := Sanitize([]byte(validOutput))
	require.NoError(t, err)
	assert.Contains(t, doc, "nodes")
}

func TestSanitizeSingleBadLine(t *testing.T) {
	// One structurally invalid line injected into otherwise valid output
	// must yield the same parse result as the output without that line.
	lines := strings.Split(validOutput, "\n")
	broken := append([]string{}, lines[:3]...)
	broken = append(broken, `WARNING: license server unreachable`)
	broken = append(broken, lines[3:]...)

	repaired, err := Sanitize([]byte(strings.Join(broken, "\n")))
	require.NoError(t, err)

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(validOutput), &want))
	assert.Equal(t, want, repaired)
}

func TestSanitizeMultipleBadLines(t *testing.T) {
	input := "{\n" +
		"garbage one\n" +
		`  "a": 1,` + "\n" +
		"garbage two &&&\n" +
		`  "b": 2` + "\n" +
		"}"

	doc, err := Sanitize([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc["a"])
	assert.Equal(t, float64(2), doc["b"])
}

func TestSanitizeNeverParses(t *testing.T) {
	// Input that stays invalid no matter how many lines are removed must
	// produce a bounded ingestion failure, not an endless repair loop.
	input := "not json\nat all\n{{{{\n"

	_, err := Sanitize([]byte(input))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIngestion, errors.CodeOf(err))
}

func TestSanitizeEmptyInput(t *testing.T) {
	_, err := Sanitize(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIngestion, errors.CodeOf(err))
}

func TestSanitizeNonSyntaxError(t *testing.T) {
	// A top-level array unmarshals into the wrong Go type; that is not a
	// repairable line problem and must fail immediately.
	_, err := Sanitize([]byte(`[1, 2, 3]`))
	require.Error(t, err)

	var se *errors.StructuredError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, errors.ErrCodeIngestion, se.Code)
}

func TestLineOfOffset(t *testing.T) {
	text := "aaa\nbbb\nccc"
	tests := []struct {
		offset int64
		want   int
	}{
		{0, 0},
		{1, 0},
		{3, 0},
		{5, 1},
		{8, 1}, // offset just past the newline still blames the line before it
		{9, 2},
		{100, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lineOfOffset(text, tt.offset), "offset %d", tt.offset)
	}
}
