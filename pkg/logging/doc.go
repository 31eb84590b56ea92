// Package logging wraps the standard library slog package with pbs-cache
// defaults: structured JSON output to stderr, module/version context on
// every record, LOG_LEVEL environment configuration, and source location
// tracking for debug logs.
//
// Usage:
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("pbscache", version)
//	    slog.Info("syncing pbs data", "site", site)
//	}
package logging
