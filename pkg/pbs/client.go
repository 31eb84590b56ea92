package pbs

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thuhak/pbs-cache/pkg/defaults"
	"github.com/thuhak/pbs-cache/pkg/errors"
)

// Client issues the four introspection queries against a pbs server
// through its command line tools.
type Client struct {
	// BinDir is the directory holding qstat and pbsnodes.
	BinDir string

	// Runner executes the binaries. Defaults to a LocalRunner.
	Runner Runner

	// Timeout bounds each individual query.
	Timeout time.Duration
}

// NewClient creates a Client with default transport and timeout.
func NewClient(binDir string) *Client {
	return &Client{
		BinDir:  binDir,
		Runner:  NewLocalRunner(),
		Timeout: defaults.QueryTimeout,
	}
}

// Snapshot holds the four parsed raw record documents of one pass.
type Snapshot struct {
	Server map[string]any
	Queue  map[string]any
	Nodes  map[string]any
	Jobs   map[string]any
}

// ServerName returns the server identifier reported by the server query.
func (s *Snapshot) ServerName() string {
	if name, ok := s.Server["pbs_server"].(string); ok {
		return name
	}
	return ""
}

// Fetch runs all four queries concurrently. All must succeed: a pass
// never aggregates partial record sets.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := c.query(gctx, "qstat", "-Bf", "-F", "json")
		snap.Server = doc
		return err
	})
	g.Go(func() error {
		doc, err := c.query(gctx, "qstat", "-Qf", "-F", "json")
		snap.Queue = doc
		return err
	})
	g.Go(func() error {
		doc, err := c.query(gctx, "pbsnodes", "-avj", "-F", "json")
		snap.Nodes = doc
		return err
	})
	g.Go(func() error {
		doc, err := c.query(gctx, "qstat", "-f", "-F", "json")
		snap.Jobs = doc
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// query invokes one scheduler binary and repairs its output into a
// parsed document.
func (c *Client) query(ctx context.Context, bin string, args ...string) (map[string]any, error) {
	runner := c.Runner
	if runner == nil {
		runner = NewLocalRunner()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaults.QueryTimeout
	}

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := filepath.Join(c.BinDir, bin)
	slog.Debug("querying pbs", "command", path, "args", args)

	out, err := runner.Run(qctx, path, args...)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeIngestion,
			"pbs query failed", err, map[string]any{"command": bin})
	}

	doc, err := Sanitize(out)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeIngestion,
			"pbs output rejected", err, map[string]any{"command": bin})
	}
	return doc, nil
}
