// Package defaults centralizes timeout and interval constants used across
// pbs-cache components so operational tuning happens in one place.
package defaults
