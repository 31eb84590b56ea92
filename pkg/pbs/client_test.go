package pbs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbserrors "github.com/thuhak/pbs-cache/pkg/errors"
)

// fakeRunner serves canned output per binary and records invocations.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	for bin, err := range f.errs {
		if strings.Contains(name, bin) {
			return nil, err
		}
	}
	for bin, out := range f.outputs {
		if strings.Contains(name, bin) && strings.Contains(key, argsFor(bin, key)) {
			return out, nil
		}
	}
	return []byte("{}"), nil
}

// argsFor disambiguates the three qstat variants by their flag.
func argsFor(bin, key string) string {
	if bin != "qstat" {
		return ""
	}
	for _, flag := range []string{"-Bf", "-Qf", "-f"} {
		if strings.Contains(key, " "+flag+" ") {
			return flag
		}
	}
	return ""
}

func TestFetch(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"pbsnodes": []byte(`{"nodes": {"cn01": {"state": "free"}}}`),
		},
	}
	c := &Client{BinDir: "/opt/pbs/bin", Runner: runner}

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)

	nodes := Section(snap.Nodes, "nodes")
	assert.Contains(t, nodes, "cn01")
	assert.Len(t, runner.calls, 4, "all four queries issued")

	for _, call := range runner.calls {
		assert.True(t, strings.HasPrefix(call, "/opt/pbs/bin/"), "binary resolved under BinDir: %s", call)
	}
}

func TestFetchFailsWhole(t *testing.T) {
	// One failed query aborts the fetch: no partial-record aggregation.
	runner := &fakeRunner{
		errs: map[string]error{
			"pbsnodes": errors.New("connection refused"),
		},
	}
	c := &Client{BinDir: "/opt/pbs/bin", Runner: runner}

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, pbserrors.ErrCodeIngestion, pbserrors.CodeOf(err))
}

func TestFetchUnparseable(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"pbsnodes": []byte("total garbage\nmore garbage"),
		},
	}
	c := &Client{BinDir: "/opt/pbs/bin", Runner: runner}

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, pbserrors.ErrCodeIngestion, pbserrors.CodeOf(err))
}

func TestServerName(t *testing.T) {
	snap := &Snapshot{Server: map[string]any{"pbs_server": "hfe1-pbs"}}
	assert.Equal(t, "hfe1-pbs", snap.ServerName())
	assert.Equal(t, "", (&Snapshot{Server: map[string]any{}}).ServerName())
}
