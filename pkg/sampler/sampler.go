package sampler

import (
	"context"
	"log/slog"
	"time"

	"github.com/thuhak/pbs-cache/pkg/aggregator"
	"github.com/thuhak/pbs-cache/pkg/defaults"
	"github.com/thuhak/pbs-cache/pkg/pbs"
	"github.com/thuhak/pbs-cache/pkg/store"
)

// Fetcher produces the raw record sets of one pass.
type Fetcher interface {
	Fetch(ctx context.Context) (*pbs.Snapshot, error)
}

// Publisher receives the finished pass document.
type Publisher interface {
	Publish(ctx context.Context, key string, doc any) error
}

// Sampler drives the sampling loop for one site: fetch the raw record
// sets, aggregate them into the site document, publish it. Passes run
// strictly sequentially; a slow pass delays the next one rather than
// overlapping it.
type Sampler struct {
	// Location is the site identifier the published key derives from.
	Location string

	// Fetcher produces raw record sets. Usually a pbs.Client.
	Fetcher Fetcher

	// Publisher receives the pass document.
	Publisher Publisher

	// Interval is the wait between passes. Defaults to defaults.SampleInterval.
	Interval time.Duration

	// PassTimeout bounds one complete pass. Defaults to defaults.PassTimeout.
	PassTimeout time.Duration
}

// RunOnce executes a single sampling pass.
func (s *Sampler) RunOnce(ctx context.Context) error {
	timeout := s.PassTimeout
	if timeout <= 0 {
		timeout = defaults.PassTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		passDuration.Observe(time.Since(start).Seconds())
	}()

	slog.Debug("starting sampling pass", "location", s.Location)

	fetchStart := time.Now()
	snap, err := s.Fetcher.Fetch(pctx)
	passStageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		passTotal.WithLabelValues("error").Inc()
		slog.Error("sampling pass failed", "location", s.Location, "stage", "fetch", "error", err)
		return err
	}

	aggStart := time.Now()
	doc := aggregator.Aggregate(snap)
	passStageDuration.WithLabelValues("aggregate").Observe(time.Since(aggStart).Seconds())

	pubStart := time.Now()
	err = s.Publisher.Publish(pctx, store.SiteKey(s.Location), doc)
	passStageDuration.WithLabelValues("publish").Observe(time.Since(pubStart).Seconds())
	if err != nil {
		passTotal.WithLabelValues("error").Inc()
		slog.Error("sampling pass failed", "location", s.Location, "stage", "publish", "error", err)
		return err
	}

	passTotal.WithLabelValues("success").Inc()
	passLastTimestamp.Set(float64(doc.Timestamp))

	slog.Info("sampling pass complete",
		"location", s.Location,
		"server", snap.ServerName(),
		"queues", len(doc.Queue),
		"nodes", len(doc.Nodes),
		"jobs", len(doc.Jobs),
		"duration", time.Since(start))
	return nil
}

// Run loops RunOnce until the context is canceled. Pass failures are
// logged and the loop keeps going; a transient scheduler or store
// outage must not stop sampling.
func (s *Sampler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = defaults.SampleInterval
	}

	slog.Info("sampler started", "location", s.Location, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Errors already logged and counted in RunOnce.
		_ = s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			slog.Info("sampler stopped", "location", s.Location)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
