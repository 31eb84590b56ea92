package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFileStorePublishJSON(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, FormatJSON)

	doc := map[string]any{"timestamp": 1700000000, "Server": map[string]any{"head": map[string]any{}}}
	require.NoError(t, s.Publish(context.Background(), "pbs_hpc1", doc))

	data, err := os.ReadFile(s.Path("pbs_hpc1"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(1700000000), got["timestamp"])
}

func TestFileStorePublishYAML(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, FormatYAML)

	require.NoError(t, s.Publish(context.Background(), "pbs_hpc1", map[string]any{"timestamp": 42}))

	data, err := os.ReadFile(s.Path("pbs_hpc1"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 42, got["timestamp"])
}

func TestFileStoreOverwrite(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, FormatJSON)
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, "pbs_hpc1", map[string]any{"timestamp": 1}))
	require.NoError(t, s.Publish(ctx, "pbs_hpc1", map[string]any{"timestamp": 2}))

	data, err := os.ReadFile(s.Path("pbs_hpc1"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(2), got["timestamp"])

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreUnknownFormatDefaultsJSON(t *testing.T) {
	s := NewFileStore(t.TempDir(), Format("xml"))
	assert.Equal(t, FormatJSON, s.format)
}
