package defaults

import "time"

// Scheduler query timeouts.
const (
	// QueryTimeout is the default timeout for a single pbs CLI invocation.
	// Queries should respect parent context deadlines when shorter.
	QueryTimeout = 30 * time.Second

	// PassTimeout bounds one full sampling pass (fetch, aggregate, publish).
	PassTimeout = 90 * time.Second
)

// Sampling defaults.
const (
	// SampleInterval is the default wait between sampling passes.
	SampleInterval = 30 * time.Second

	// Freshness is the maximum age of a published document before
	// consumers must treat the site as stale.
	Freshness = 120 * time.Second
)

// Store timeouts for document store operations.
const (
	// StoreWriteTimeout is the timeout for publishing a document.
	StoreWriteTimeout = 10 * time.Second

	// StoreReadTimeout is the timeout for a path query.
	StoreReadTimeout = 5 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Directory service timeouts.
const (
	// DirectoryTimeout is the timeout for LDAP bind and search operations.
	DirectoryTimeout = 10 * time.Second
)
