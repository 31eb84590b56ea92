// Package store publishes pass documents to their destinations and
// serves path queries against the primary RedisJSON store. A FileStore
// mirror exists for debugging and air-gapped inspection.
package store
