package resource

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func leaf(name string, free Pair) *DeviceNode {
	return &DeviceNode{Kind: KindVnode, Name: name, Free: free, Children: map[string]*DeviceNode{}}
}

func internal(kind Kind, name string, capacity Pair, children ...*DeviceNode) *DeviceNode {
	n := &DeviceNode{Kind: kind, Name: name, Capacity: capacity, Children: map[string]*DeviceNode{}}
	for _, c := range children {
		n.Children[c.Name] = c
	}
	return n
}

func TestFreeBlockSizesLeaf(t *testing.T) {
	assert.Equal(t, []int{12}, leaf("v1", Pair{Cores: 12}).FreeBlockSizes(DimCores))
	assert.Empty(t, leaf("v1", Pair{Cores: 0}).FreeBlockSizes(DimCores))
	assert.Equal(t, []int{2}, leaf("v1", Pair{Cores: 12, GPUs: 2}).FreeBlockSizes(DimGPUs))
}

func TestFreeBlockSizesEmptyTree(t *testing.T) {
	assert.Empty(t, NewTree("workq").FreeBlockSizes(DimCores))
}

func TestFreeBlockSizesSortedNoZeros(t *testing.T) {
	root := internal(KindClusterRoot, "workq", Pair{},
		internal(KindHost, "h1", Pair{Cores: 16},
			leaf("h1v0", Pair{Cores: 4}),
			leaf("h1v1", Pair{Cores: 0}),
		),
		internal(KindHost, "h2", Pair{Cores: 16},
			leaf("h2v0", Pair{Cores: 9}),
		),
	)

	blocks := root.FreeBlockSizes(DimCores)
	assert.True(t, sort.SliceIsSorted(blocks, func(i, j int) bool { return blocks[i] > blocks[j] }),
		"blocks must be sorted descending: %v", blocks)
	for _, b := range blocks {
		assert.NotZero(t, b)
	}
	assert.Equal(t, []int{9, 4}, blocks)
}

func TestFullyFreeSiblingsCollapseBelowRoot(t *testing.T) {
	// Two fully free 16-core hosts under a socket fold into one 32-core
	// block; the same two hosts directly under the cluster-root stay
	// distinct.
	h1 := internal(KindHost, "h1", Pair{Cores: 16}, leaf("h1v0", Pair{Cores: 16}))
	h2 := internal(KindHost, "h2", Pair{Cores: 16}, leaf("h2v0", Pair{Cores: 16}))

	underSocket := internal(KindClusterRoot, "workq", Pair{},
		internal(KindSocket, "s0", Pair{Cores: 32}, h1, h2),
	)
	assert.Equal(t, []int{32}, underSocket.FreeBlockSizes(DimCores))

	underRoot := internal(KindClusterRoot, "workq", Pair{}, h1, h2)
	assert.Equal(t, []int{16, 16}, underRoot.FreeBlockSizes(DimCores))
}

func TestFragmentedChildKeptVerbatim(t *testing.T) {
	// h1 fully free (16), h2 fragmented (10 of 16). Under a switch the
	// free host folds into the accumulator while the fragmented host's
	// blocks pass through untouched.
	root := internal(KindClusterRoot, "workq", Pair{},
		internal(KindSwitchDomain, "sw0", Pair{Cores: 32},
			internal(KindHost, "h1", Pair{Cores: 16}, leaf("h1v0", Pair{Cores: 16})),
			internal(KindHost, "h2", Pair{Cores: 16},
				leaf("h2v0", Pair{Cores: 6}),
				leaf("h2v1", Pair{Cores: 4}),
			),
		),
	)

	assert.Equal(t, []int{16, 6, 4}, root.FreeBlockSizes(DimCores))
}

func TestUnknownCapacityNeverMerges(t *testing.T) {
	// A level with no declared density has capacity zero, so its subtree
	// can never be judged fully free.
	root := internal(KindClusterRoot, "workq", Pair{},
		internal(KindSwitchDomain, "sw0", Pair{Cores: 32},
			internal(KindHost, "h1", Pair{}, leaf("h1v0", Pair{Cores: 16})),
			internal(KindHost, "h2", Pair{}, leaf("h2v0", Pair{Cores: 16})),
		),
	)

	assert.Equal(t, []int{16, 16}, root.FreeBlockSizes(DimCores))
}

func TestGPUBlocksIndependentOfCores(t *testing.T) {
	root := internal(KindClusterRoot, "gpu", Pair{},
		internal(KindHost, "g1", Pair{Cores: 64, GPUs: 8},
			leaf("g1v0", Pair{Cores: 32, GPUs: 8}),
		),
	)

	assert.Equal(t, []int{32}, root.FreeBlockSizes(DimCores))
	assert.Equal(t, []int{8}, root.FreeBlockSizes(DimGPUs))
}

func TestInsertLazyCreation(t *testing.T) {
	caps := CapacityMap{
		KindSwitchDomain: {Cores: 128},
		KindHost:         {Cores: 32},
		KindVnode:        {Cores: 16},
	}
	tree := NewTree("workq")

	tree.Insert(DevicePath{Switch: "sw0", Host: "h1", Vnode: "h1v0"}, caps, Pair{Cores: 16})
	tree.Insert(DevicePath{Switch: "sw0", Host: "h1", Vnode: "h1v1"}, caps, Pair{Cores: 8})

	sw := tree.Children["sw0"]
	if assert.NotNil(t, sw) {
		assert.Equal(t, KindSwitchDomain, sw.Kind)
		assert.Equal(t, 128, sw.Capacity.Cores)
		assert.Len(t, sw.Children, 1, "revisited host resolves to the existing child")

		h1 := sw.Children["h1"]
		assert.Len(t, h1.Children, 2)
		assert.Equal(t, 16, h1.Children["h1v0"].Free.Cores)
		assert.Equal(t, 8, h1.Children["h1v1"].Free.Cores)
	}
}

func TestInsertSkipsAbsentLevels(t *testing.T) {
	caps := CapacityMap{KindHost: {Cores: 32}, KindVnode: {Cores: 32}}
	tree := NewTree("workq")

	tree.Insert(DevicePath{Host: "h1", Vnode: "h1v0"}, caps, Pair{Cores: 32})

	h1 := tree.Children["h1"]
	if assert.NotNil(t, h1) {
		assert.Equal(t, KindHost, h1.Kind)
		assert.Contains(t, h1.Children, "h1v0")
	}
}

func TestInsertEmptyPathLeavesRootUntouched(t *testing.T) {
	tree := NewTree("workq")
	tree.Insert(DevicePath{}, CapacityMap{}, Pair{Cores: 4})
	assert.Empty(t, tree.Children)
	assert.Zero(t, tree.Free)
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindClusterRoot:  "cluster-root",
		KindSwitchDomain: "switch-domain",
		KindHost:         "host",
		KindSocket:       "socket",
		KindVnode:        "vnode",
		Kind(99):         "unknown",
	}
	for k, want := range kinds {
		assert.Equal(t, want, k.String())
	}
}

func TestPairSubClamps(t *testing.T) {
	assert.Equal(t, Pair{Cores: 4, GPUs: 0}, Pair{Cores: 16, GPUs: 2}.Sub(Pair{Cores: 12, GPUs: 4}))
}
