package sampler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuhak/pbs-cache/pkg/aggregator"
	"github.com/thuhak/pbs-cache/pkg/pbs"
)

type fakeFetcher struct {
	mu    sync.Mutex
	snap  *pbs.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context) (*pbs.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.err
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	keys []string
	docs []any
}

func (p *fakePublisher) Publish(_ context.Context, key string, doc any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.docs = append(p.docs, doc)
	return p.err
}

func emptySnapshot() *pbs.Snapshot {
	return &pbs.Snapshot{
		Server: map[string]any{"pbs_server": "head", "Server": map[string]any{"head": map[string]any{}}},
		Queue:  map[string]any{"Queue": map[string]any{}},
		Nodes:  map[string]any{"nodes": map[string]any{}},
		Jobs:   map[string]any{"Jobs": map[string]any{}},
	}
}

func TestRunOnce(t *testing.T) {
	fetcher := &fakeFetcher{snap: emptySnapshot()}
	publisher := &fakePublisher{}
	s := &Sampler{Location: "hpc1", Fetcher: fetcher, Publisher: publisher}

	require.NoError(t, s.RunOnce(context.Background()))

	require.Len(t, publisher.keys, 1)
	assert.Equal(t, "pbs_hpc1", publisher.keys[0])

	doc, ok := publisher.docs[0].(*aggregator.Document)
	require.True(t, ok)
	assert.NotZero(t, doc.Timestamp)
}

func TestRunOnceFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("qstat: command not found")}
	publisher := &fakePublisher{}
	s := &Sampler{Location: "hpc1", Fetcher: fetcher, Publisher: publisher}

	require.Error(t, s.RunOnce(context.Background()))
	assert.Empty(t, publisher.keys, "nothing published on fetch failure")
}

func TestRunOncePublishFailure(t *testing.T) {
	fetcher := &fakeFetcher{snap: emptySnapshot()}
	publisher := &fakePublisher{err: fmt.Errorf("connection refused")}
	s := &Sampler{Location: "hpc1", Fetcher: fetcher, Publisher: publisher}

	require.Error(t, s.RunOnce(context.Background()))
}

func TestRunLoopSurvivesFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("scheduler down")}
	publisher := &fakePublisher{}
	s := &Sampler{
		Location:  "hpc1",
		Fetcher:   fetcher,
		Publisher: publisher,
		Interval:  5 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, fetcher.count(), 2, "loop keeps sampling through failures")
}

func TestRunStopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{snap: emptySnapshot()}
	publisher := &fakePublisher{}
	s := &Sampler{Location: "hpc1", Fetcher: fetcher, Publisher: publisher, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fetcher.count(), "first pass runs before the wait")
}
