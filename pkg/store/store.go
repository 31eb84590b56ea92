package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thuhak/pbs-cache/pkg/errors"
)

// SiteKeyPrefix prepends every published site document key.
const SiteKeyPrefix = "pbs_"

// AppKey is the document key of the application registry.
const AppKey = "app"

// SiteKey derives the store key of a site's published document.
func SiteKey(location string) string {
	return SiteKeyPrefix + location
}

// SiteFromKey reverses SiteKey. Returns false for foreign keys.
func SiteFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, SiteKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, SiteKeyPrefix), true
}

// Destination receives published documents. Implementations must be
// safe for sequential reuse across passes.
type Destination interface {
	// Name identifies the destination in logs.
	Name() string

	// Publish replaces the document stored under key.
	Publish(ctx context.Context, key string, doc any) error

	// Close releases the destination's resources.
	Close() error
}

// Publisher fans one document out to a set of destinations. The first
// destination is the primary: its failure fails the pass. Secondary
// failures are logged and swallowed so one degraded mirror never stops
// publication.
type Publisher struct {
	dests []Destination
}

// NewPublisher creates a Publisher over the given destinations in
// priority order.
func NewPublisher(dests ...Destination) *Publisher {
	return &Publisher{dests: dests}
}

// Publish writes the document to every destination sequentially. Each
// write is isolated: a failure never prevents the remaining writes.
func (p *Publisher) Publish(ctx context.Context, key string, doc any) error {
	if len(p.dests) == 0 {
		return errors.New(errors.ErrCodePublication, "no destinations configured")
	}

	var primaryErr error
	for i, dest := range p.dests {
		err := dest.Publish(ctx, key, doc)
		if err == nil {
			slog.Debug("document published", "destination", dest.Name(), "key", key)
			continue
		}
		if i == 0 {
			primaryErr = errors.WrapWithContext(errors.ErrCodePublication,
				"primary store write failed", err,
				map[string]any{"destination": dest.Name(), "key": key})
			continue
		}
		slog.Error("secondary store write failed",
			"destination", dest.Name(), "key", key, "error", err)
	}
	return primaryErr
}

// Close closes every destination, returning the first failure.
func (p *Publisher) Close() error {
	var first error
	for _, dest := range p.dests {
		if err := dest.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
