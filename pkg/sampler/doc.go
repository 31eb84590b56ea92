// Package sampler runs the periodic fetch, aggregate, publish loop for
// one scheduler site.
package sampler
