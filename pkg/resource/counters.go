package resource

import "math"

// Counters accumulates the per-scope utilization figures of one
// aggregation pass. Counters only ever increment; a fresh instance is
// created per pass per scope and discarded afterwards.
type Counters struct {
	WaitingCores int
	UsingCores   int
	FreeCores    int
	OfflineCores int

	WaitingGPUs int
	UsingGPUs   int
	FreeGPUs    int
	OfflineGPUs int

	RunningJobs int
	WaitingJobs int

	users    map[string]struct{}
	jobSizes []int
}

func newCounters() Counters {
	return Counters{users: make(map[string]struct{})}
}

// AddRunningJob records one running job's requested resources and owner.
func (c *Counters) AddRunningJob(owner string, req Pair) {
	c.UsingCores += req.Cores
	c.UsingGPUs += req.GPUs
	c.RunningJobs++
	if owner != "" {
		c.users[owner] = struct{}{}
	}
	c.jobSizes = append(c.jobSizes, req.Cores)
}

// AddQueuedJob records one queued job's requested resources.
func (c *Counters) AddQueuedJob(req Pair) {
	c.WaitingCores += req.Cores
	c.WaitingGPUs += req.GPUs
	c.WaitingJobs++
}

// UserCount returns the number of distinct active users seen.
func (c *Counters) UserCount() int {
	return len(c.users)
}

// Load is demand over available capacity: (using+waiting)/(using+free),
// rounded to two decimals, defined as 0.0 for an empty denominator.
func (c *Counters) Load() float64 {
	denom := c.UsingCores + c.FreeCores
	if denom == 0 {
		return 0.0
	}
	return round2(float64(c.UsingCores+c.WaitingCores) / float64(denom))
}

// JobSizeAvg is the mean requested core count over running jobs, rounded
// to two decimals, 0.0 when no samples were collected.
func (c *Counters) JobSizeAvg() float64 {
	if len(c.jobSizes) == 0 {
		return 0.0
	}
	total := 0
	for _, s := range c.jobSizes {
		total += s
	}
	return round2(float64(total) / float64(len(c.jobSizes)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// export flattens the base counters and derived metrics.
func (c *Counters) export() map[string]any {
	return map[string]any{
		"waiting_cores": c.WaitingCores,
		"using_cores":   c.UsingCores,
		"free_cores":    c.FreeCores,
		"offline_cores": c.OfflineCores,
		"waiting_gpus":  c.WaitingGPUs,
		"using_gpus":    c.UsingGPUs,
		"free_gpus":     c.FreeGPUs,
		"offline_gpus":  c.OfflineGPUs,
		"running_jobs":  c.RunningJobs,
		"waiting_jobs":  c.WaitingJobs,
		"user_count":    c.UserCount(),
		"job_size_avg":  c.JobSizeAvg(),
		"load":          c.Load(),
	}
}

// ClusterCounters is the cluster-wide accumulator. On top of the shared
// counters it tracks total known capacity.
type ClusterCounters struct {
	Counters
	TotalCores int
	TotalGPUs  int
}

// NewClusterCounters creates a fresh cluster scope for one pass.
func NewClusterCounters() *ClusterCounters {
	return &ClusterCounters{Counters: newCounters()}
}

// AddNode folds one compute node into the cluster scope. Offline nodes
// contribute their assigned capacity only; online nodes contribute full
// capacity and their unassigned remainder as free.
func (c *ClusterCounters) AddNode(all, assigned Pair, offline bool) {
	if offline {
		c.OfflineCores += all.Cores
		c.OfflineGPUs += all.GPUs
		c.TotalCores += assigned.Cores
		c.TotalGPUs += assigned.GPUs
		return
	}
	c.TotalCores += all.Cores
	c.TotalGPUs += all.GPUs
	free := all.Sub(assigned)
	c.FreeCores += free.Cores
	c.FreeGPUs += free.GPUs
}

// Export produces the flattened statistics mapping for the server entry.
func (c *ClusterCounters) Export() map[string]any {
	out := c.export()
	out["total_cores"] = c.TotalCores
	out["total_gpus"] = c.TotalGPUs
	return out
}

// QueueCounters is the per-queue accumulator. It owns one device tree
// rooted at a synthetic cluster-root and tracks the queue's observed
// capacity range: max counts every node the queue can see, min only the
// nodes it owns exclusively.
type QueueCounters struct {
	Counters
	MinCores int
	MaxCores int
	MinGPUs  int
	MaxGPUs  int

	tree *DeviceNode
	caps CapacityMap
}

// NewQueueCounters creates a fresh queue scope with the queue's declared
// per-level capacity map.
func NewQueueCounters(name string, caps CapacityMap) *QueueCounters {
	return &QueueCounters{
		Counters: newCounters(),
		tree:     NewTree(name),
		caps:     caps,
	}
}

// Tree exposes the queue's device tree, mainly for tests.
func (q *QueueCounters) Tree() *DeviceNode {
	return q.tree
}

// AddVnode folds one compute node into the queue scope and, when it has
// allocatable cores left, inserts it into the device tree at its
// topology path. Must be called once per node per queue it participates
// in; private marks nodes owned by exactly this queue.
func (q *QueueCounters) AddVnode(all, assigned Pair, offline, private bool, path DevicePath) {
	if offline {
		q.OfflineCores += all.Cores
		q.OfflineGPUs += all.GPUs
		q.MaxCores += assigned.Cores
		q.MaxGPUs += assigned.GPUs
		if private {
			q.MinCores += assigned.Cores
			q.MinGPUs += assigned.GPUs
		}
		return
	}

	q.MaxCores += all.Cores
	q.MaxGPUs += all.GPUs
	if private {
		q.MinCores += all.Cores
		q.MinGPUs += all.GPUs
	}

	free := all.Sub(assigned)
	q.FreeCores += free.Cores
	q.FreeGPUs += free.GPUs

	// Nothing allocatable: stay out of the tree.
	if free.Cores == 0 {
		return
	}
	q.tree.Insert(path, q.caps, free)
}

// Export produces the flattened statistics mapping for the queue entry,
// including the free allocatable block lists for cores and gpus.
func (q *QueueCounters) Export() map[string]any {
	out := q.export()
	out["min_cores"] = q.MinCores
	out["max_cores"] = q.MaxCores
	out["min_gpus"] = q.MinGPUs
	out["max_gpus"] = q.MaxGPUs
	out["free_cores_group"] = q.tree.FreeBlockSizes(DimCores)
	out["free_gpus_group"] = q.tree.FreeBlockSizes(DimGPUs)
	return out
}
