package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuhak/pbs-cache/pkg/config"
)

func TestRootCommandWiring(t *testing.T) {
	root := rootCmd()
	assert.Equal(t, "pbscache", root.Name)

	var names []string
	for _, cmd := range root.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"sync", "serve", "apps"}, names)
}

func TestBuildPublisher(t *testing.T) {
	cfg := &config.Config{
		Stores: []config.StoreConfig{
			{Name: "primary", Addr: "localhost:6379"},
			{Name: "mirror", Addr: "remote:6379"},
		},
	}

	p, err := buildPublisher(cfg, "", "")
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestBuildPublisherNoStores(t *testing.T) {
	_, err := buildPublisher(&config.Config{}, "", "")
	assert.Error(t, err)
}

func TestBuildPublisherWithMirror(t *testing.T) {
	cfg := &config.Config{
		Stores: []config.StoreConfig{{Name: "primary", Addr: "localhost:6379"}},
	}

	p, err := buildPublisher(cfg, t.TempDir(), "yaml")
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
