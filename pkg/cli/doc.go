// Package cli implements the pbscache command line interface.
//
// # Commands
//
// sync - sample the local scheduler and publish the site document:
//
//	pbscache sync [--once] [--mirror-dir DIR]
//
// serve - run the HTTP query API over the published documents:
//
//	pbscache serve
//
// apps - publish the application registry from the drop-in directory:
//
//	pbscache apps [--dry-run]
//
// # Global behavior
//
// Every command reads the configuration file (default /etc/pbs_cache.yaml,
// override with --config or PBSCACHE_CONFIG) and logs structured JSON at
// the level given by --log-level or LOG_LEVEL.
package cli
