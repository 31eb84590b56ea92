// Package aggregator turns the four raw record sets of one sampling
// pass into the published site document: per-queue device trees and
// free block lists, queue and cluster statistics, and store-safe
// structural keys.
package aggregator
