package aggregator

import (
	"log/slog"
	"strings"
	"time"

	"github.com/thuhak/pbs-cache/pkg/pbs"
	"github.com/thuhak/pbs-cache/pkg/resource"
)

// Document is the externally published artifact of one pass. Section
// keys are scheduler-assigned identifiers, sanitized for the store's
// path query syntax; queue and server entries carry an attached
// statistics sub-object.
type Document struct {
	Timestamp int64                     `json:"timestamp"`
	Server    map[string]pbs.Attributes `json:"Server"`
	Queue     map[string]pbs.Attributes `json:"Queue"`
	Nodes     map[string]pbs.Attributes `json:"nodes"`
	Jobs      map[string]pbs.Attributes `json:"Jobs"`
}

// keyReplacer strips the characters that are illegal in the store's
// structured path syntax. The substitution is one-directional: callers
// needing the original identifier must keep it inside the record itself.
var keyReplacer = strings.NewReplacer(".", "_", "[", "_", "]", "")

// TransKey sanitizes an identifier used as a structural document key.
func TransKey(key string) string {
	return keyReplacer.Replace(key)
}

// now is swapped in tests.
var now = time.Now

// Aggregate cross-links the four raw record sets of one pass into the
// published document: it builds each declared queue's device tree and
// counters, folds every resolvable node and job into them, and stamps
// the freshness timestamp. Records with unknown queue references are
// skipped with a log line; they never abort the pass.
func Aggregate(snap *pbs.Snapshot) *Document {
	queues := pbs.Section(snap.Queue, "Queue")
	servers := pbs.Section(snap.Server, "Server")
	nodes := pbs.Section(snap.Nodes, "nodes")
	jobs := pbs.Section(snap.Jobs, "Jobs")

	cluster := resource.NewClusterCounters()
	queueCounters := make(map[string]*resource.QueueCounters, len(queues))
	for name, attrs := range queues {
		queueCounters[name] = resource.NewQueueCounters(name, capacityMapFor(attrs))
	}

	for id, attrs := range nodes {
		membership := attrs.QueueMembership()
		if len(membership) == 0 {
			slog.Debug("node has no queue membership, skipping", "node", id)
			continue
		}
		private := len(membership) == 1

		avail := attrs.Available()
		assigned := attrs.Assigned()
		all := resource.Pair{Cores: avail.Int(pbs.ResNCPUs), GPUs: avail.Int(pbs.ResNGPUs)}
		used := resource.Pair{Cores: assigned.Int(pbs.ResNCPUs), GPUs: assigned.Int(pbs.ResNGPUs)}
		offline := attrs.Offline()
		path := devicePath(id, attrs)

		cluster.AddNode(all, used, offline)
		for _, queue := range membership {
			qc, ok := queueCounters[queue]
			if !ok {
				slog.Warn("node references undeclared queue, skipping",
					"node", id, "queue", queue)
				continue
			}
			qc.AddVnode(all, used, offline, private, path)
		}
	}

	for id, attrs := range jobs {
		queue := attrs.Str(pbs.AttrQueue)
		qc, ok := queueCounters[queue]
		if !ok {
			slog.Warn("job references unknown queue, skipping",
				"job", id, "queue", queue)
			continue
		}

		req := attrs.Child(pbs.AttrResourceList)
		size := resource.Pair{Cores: req.Int(pbs.ResNCPUs), GPUs: req.Int(pbs.ResNGPUs)}

		switch attrs.Str(pbs.AttrJobState) {
		case pbs.JobStateRunning:
			owner := attrs.Owner()
			qc.AddRunningJob(owner, size)
			cluster.AddRunningJob(owner, size)
		case pbs.JobStateQueued:
			qc.AddQueuedJob(size)
			cluster.AddQueuedJob(size)
		default:
			// Held, exiting and other states carry no accounting weight.
		}
	}

	doc := &Document{
		Timestamp: now().Unix(),
		Server:    make(map[string]pbs.Attributes, len(servers)),
		Queue:     make(map[string]pbs.Attributes, len(queues)),
		Nodes:     make(map[string]pbs.Attributes, len(nodes)),
		Jobs:      make(map[string]pbs.Attributes, len(jobs)),
	}
	for id, attrs := range servers {
		attrs["statistics"] = cluster.Export()
		doc.Server[id] = attrs
	}
	for name, attrs := range queues {
		attrs["statistics"] = queueCounters[name].Export()
		doc.Queue[name] = attrs
	}
	for id, attrs := range nodes {
		doc.Nodes[TransKey(id)] = attrs
	}
	for id, attrs := range jobs {
		doc.Jobs[TransKey(id)] = attrs
	}
	return doc
}

// capacityMapFor derives a queue's per-level capacity map from its
// declared resource densities.
func capacityMapFor(q pbs.Attributes) resource.CapacityMap {
	avail := q.Available()
	return resource.CapacityMap{
		resource.KindSwitchDomain: {
			Cores: avail.Int("switch_ncpus"),
			GPUs:  avail.Int("switch_ngpus"),
		},
		resource.KindHost: {
			Cores: avail.Int("host_ncpus"),
			GPUs:  avail.Int("host_ngpus"),
		},
		resource.KindSocket: {
			Cores: avail.Int("socket_ncpus"),
			GPUs:  avail.Int("socket_ngpus"),
		},
		resource.KindVnode: {
			Cores: avail.Int("vnode_ncpus"),
			GPUs:  avail.Int("vnode_ngpus"),
		},
	}
}

// devicePath extracts a node's topology identifiers. The vnode level
// falls back to the record identifier itself.
func devicePath(id string, n pbs.Attributes) resource.DevicePath {
	avail := n.Available()
	vnode := avail.Str(pbs.ResVnode)
	if vnode == "" {
		vnode = id
	}
	return resource.DevicePath{
		Switch: avail.Str(pbs.ResSwitch),
		Host:   avail.Str(pbs.ResHost),
		Socket: avail.Str(pbs.ResSocket),
		Vnode:  vnode,
	}
}
