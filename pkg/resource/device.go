package resource

import (
	"sort"
)

// Kind identifies a level of the device hierarchy. The set is closed:
// aggregation switches over it exhaustively.
type Kind int

const (
	// KindClusterRoot is the synthetic root owning a queue's whole tree.
	KindClusterRoot Kind = iota
	// KindSwitchDomain groups hosts behind shared interconnect hardware.
	KindSwitchDomain
	// KindHost is one physical machine.
	KindHost
	// KindSocket is one CPU socket within a host.
	KindSocket
	// KindVnode is the finest-granularity schedulable unit.
	KindVnode
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindClusterRoot:
		return "cluster-root"
	case KindSwitchDomain:
		return "switch-domain"
	case KindHost:
		return "host"
	case KindSocket:
		return "socket"
	case KindVnode:
		return "vnode"
	default:
		return "unknown"
	}
}

// Pair carries a core count and a gpu count together.
type Pair struct {
	Cores int
	GPUs  int
}

// Sub returns p - o with components clamped at zero.
func (p Pair) Sub(o Pair) Pair {
	out := Pair{Cores: p.Cores - o.Cores, GPUs: p.GPUs - o.GPUs}
	if out.Cores < 0 {
		out.Cores = 0
	}
	if out.GPUs < 0 {
		out.GPUs = 0
	}
	return out
}

// Dimension selects the core or gpu component of a Pair.
type Dimension int

const (
	DimCores Dimension = iota
	DimGPUs
)

// Of extracts the selected component.
func (d Dimension) Of(p Pair) int {
	if d == DimGPUs {
		return p.GPUs
	}
	return p.Cores
}

// CapacityMap holds the per-kind capacity a queue declares for each
// hierarchy level. Levels without a declared density stay at zero, which
// free-block aggregation treats as "never fully free".
type CapacityMap map[Kind]Pair

// DevicePath locates a vnode within the hierarchy. Empty identifiers
// mean the level is absent and is skipped while walking.
type DevicePath struct {
	Switch string
	Host   string
	Socket string
	Vnode  string
}

type pathLevel struct {
	kind Kind
	name string
}

func (p DevicePath) levels() []pathLevel {
	all := []pathLevel{
		{KindSwitchDomain, p.Switch},
		{KindHost, p.Host},
		{KindSocket, p.Socket},
		{KindVnode, p.Vnode},
	}
	out := all[:0]
	for _, l := range all {
		if l.name != "" {
			out = append(out, l)
		}
	}
	return out
}

// DeviceNode is one node of a per-queue resource tree. Each node owns
// its children exclusively; the structure is strictly a tree, built
// fresh on every aggregation pass and discarded after publishing.
type DeviceNode struct {
	Kind     Kind
	Name     string
	Capacity Pair
	Free     Pair
	Children map[string]*DeviceNode
}

// NewTree creates a synthetic cluster-root for one queue.
func NewTree(name string) *DeviceNode {
	return &DeviceNode{
		Kind:     KindClusterRoot,
		Name:     name,
		Children: make(map[string]*DeviceNode),
	}
}

// child resolves the named child, creating it lazily on first visit.
func (n *DeviceNode) child(kind Kind, name string, capacity Pair) *DeviceNode {
	if c, ok := n.Children[name]; ok {
		return c
	}
	c := &DeviceNode{
		Kind:     kind,
		Name:     name,
		Capacity: capacity,
		Children: make(map[string]*DeviceNode),
	}
	n.Children[name] = c
	return c
}

// Insert walks the device path from the root, creating unvisited levels
// with their per-kind capacity, and stamps the free counts on the
// terminal node.
func (n *DeviceNode) Insert(path DevicePath, caps CapacityMap, free Pair) {
	cur := n
	for _, l := range path.levels() {
		cur = cur.child(l.kind, l.name, caps[l.kind])
	}
	if cur != n {
		cur.Free = free
	}
}

// FreeBlockSizes reports the maximal indivisible free-capacity blocks
// available under this subtree, largest first. A fully free child of an
// internal node is folded together with its fully free siblings into one
// combined figure; directly under the cluster-root, fully free children
// stay distinct because separate top-level units are not jointly
// allocatable as one block.
func (n *DeviceNode) FreeBlockSizes(d Dimension) []int {
	if len(n.Children) == 0 {
		if n.Kind == KindClusterRoot {
			return nil
		}
		if f := d.Of(n.Free); f > 0 {
			return []int{f}
		}
		return nil
	}

	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	agg := 0
	out := make([]int, 0, len(n.Children))
	for _, name := range names {
		c := n.Children[name]
		blocks := c.FreeBlockSizes(d)
		capacity := d.Of(c.Capacity)
		if capacity > 0 && sumOf(blocks) == capacity && n.Kind != KindClusterRoot {
			agg += capacity
			continue
		}
		out = append(out, blocks...)
	}

	if agg > 0 {
		out = append(out, agg)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func sumOf(blocks []int) int {
	total := 0
	for _, b := range blocks {
		total += b
	}
	return total
}
