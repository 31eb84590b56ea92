package pbs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection(t *testing.T) {
	doc := map[string]any{
		"timestamp": float64(1714000000),
		"nodes": map[string]any{
			"cn01": map[string]any{"state": "free"},
			"bad":  "not an object",
		},
	}

	set := Section(doc, "nodes")
	require.Len(t, set, 1)
	assert.Equal(t, "free", set["cn01"].Str(AttrState))

	assert.Empty(t, Section(doc, "Jobs"))
}

func TestAttributesInt(t *testing.T) {
	attrs := Attributes{
		"ncpus":  float64(16),
		"ngpus":  "4",
		"mem":    "128gb",
		"label":  "compute",
		"absent": nil,
	}

	assert.Equal(t, 16, attrs.Int("ncpus"))
	assert.Equal(t, 4, attrs.Int("ngpus"))
	assert.Equal(t, 128, attrs.Int("mem"), "leading digits of size strings")
	assert.Equal(t, 0, attrs.Int("label"))
	assert.Equal(t, 0, attrs.Int("absent"))
	assert.Equal(t, 0, attrs.Int("missing"))
}

func TestAttributesOffline(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{"free", false},
		{"job-busy", false},
		{"offline", true},
		{"down,offline", true},
		{"state-unknown,down", true},
		{"free, offline", true},
		{"", false},
	}
	for _, tt := range tests {
		attrs := Attributes{AttrState: tt.state}
		assert.Equal(t, tt.want, attrs.Offline(), "state %q", tt.state)
	}
}

func TestQueueMembership(t *testing.T) {
	t.Run("explicit queue tag wins", func(t *testing.T) {
		attrs := Attributes{
			AttrQueue: "workq",
			AttrResourcesAvailable: map[string]any{
				ResQList: "a,b",
			},
		}
		assert.Equal(t, []string{"workq"}, attrs.QueueMembership())
	})

	t.Run("qlist", func(t *testing.T) {
		attrs := Attributes{
			AttrResourcesAvailable: map[string]any{
				ResQList: "workq, gpu ,",
			},
		}
		assert.Equal(t, []string{"workq", "gpu"}, attrs.QueueMembership())
	})

	t.Run("unresolved", func(t *testing.T) {
		assert.Nil(t, Attributes{}.QueueMembership())
	})
}

func TestOwner(t *testing.T) {
	assert.Equal(t, "alice", Attributes{AttrEuser: "alice"}.Owner())
	assert.Equal(t, "bob", Attributes{AttrJobOwner: "bob@login01"}.Owner())
	assert.Equal(t, "carol", Attributes{AttrJobOwner: "carol"}.Owner())
	assert.Equal(t, "", Attributes{}.Owner())
}
