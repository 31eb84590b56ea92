// Package resource holds the aggregation core: the per-queue device
// tree, the free allocatable block computation, and the queue/cluster
// statistics accumulators.
//
// A queue's tree is rooted at a synthetic cluster-root and descends
// switch-domain -> host -> socket -> vnode, with absent levels skipped.
// Trees and counters live for exactly one sampling pass.
package resource
