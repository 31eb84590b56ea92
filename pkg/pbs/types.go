package pbs

import (
	"strconv"
	"strings"
)

// Attribute names produced by the pbs json output mode.
const (
	AttrState              = "state"
	AttrQueue              = "queue"
	AttrMom                = "Mom"
	AttrResourcesAvailable = "resources_available"
	AttrResourcesAssigned  = "resources_assigned"
	AttrResourceList       = "Resource_List"
	AttrJobState           = "job_state"
	AttrJobOwner           = "Job_Owner"
	AttrEuser              = "euser"

	ResNCPUs  = "ncpus"
	ResNGPUs  = "ngpus"
	ResQList  = "Qlist"
	ResSwitch = "switch"
	ResHost   = "host"
	ResSocket = "socket"
	ResVnode  = "vnode"
)

// Job states relevant to accounting. Jobs in any other state (held,
// exiting, suspended) are not classified into counters.
const (
	JobStateRunning = "R"
	JobStateQueued  = "Q"
)

// Node state substrings marking a node as not schedulable.
var offlineStates = []string{"offline", "down", "stale", "state-unknown"}

// Attributes is one record's attribute map as parsed from scheduler
// output. Values keep their raw JSON shapes; accessors below normalize
// the number/string ambivalence of the pbs output mode.
type Attributes map[string]any

// RecordSet maps scheduler-assigned identifiers to their attributes.
type RecordSet map[string]Attributes

// Section extracts a named record set from a parsed query document.
// Missing or malformed sections yield an empty set.
func Section(doc map[string]any, key string) RecordSet {
	out := RecordSet{}
	raw, ok := doc[key].(map[string]any)
	if !ok {
		return out
	}
	for id, v := range raw {
		if attrs, ok := v.(map[string]any); ok {
			out[id] = Attributes(attrs)
		}
	}
	return out
}

// Str returns the attribute as a string, or "" when absent.
func (a Attributes) Str(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the attribute as an integer. The pbs json mode emits some
// numeric resources as strings (and values like "2gb" for sizes), so
// leading digits of a string value are honored. Absent or non-numeric
// values yield 0.
func (a Attributes) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		s := strings.TrimSpace(v)
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Child returns a nested attribute object, or an empty one when absent.
func (a Attributes) Child(key string) Attributes {
	if m, ok := a[key].(map[string]any); ok {
		return Attributes(m)
	}
	return Attributes{}
}

// Available returns the node's resources_available object.
func (a Attributes) Available() Attributes { return a.Child(AttrResourcesAvailable) }

// Assigned returns the node's resources_assigned object.
func (a Attributes) Assigned() Attributes { return a.Child(AttrResourcesAssigned) }

// Offline reports whether the node state marks it unavailable for
// scheduling. States are comma-separated in pbs output.
func (a Attributes) Offline() bool {
	state := strings.ToLower(a.Str(AttrState))
	for _, part := range strings.Split(state, ",") {
		part = strings.TrimSpace(part)
		for _, off := range offlineStates {
			if part == off {
				return true
			}
		}
	}
	return false
}

// QueueMembership resolves the queues a node belongs to: an explicit
// single-queue tag wins, else the comma-delimited Qlist resource. An
// empty result means membership could not be resolved.
func (a Attributes) QueueMembership() []string {
	if q := a.Str(AttrQueue); q != "" {
		return []string{q}
	}
	qlist := a.Available().Str(ResQList)
	if qlist == "" {
		return nil
	}
	var queues []string
	for _, q := range strings.Split(qlist, ",") {
		if q = strings.TrimSpace(q); q != "" {
			queues = append(queues, q)
		}
	}
	return queues
}

// Owner returns the bare user name of a job record. Job_Owner has the
// form user@submit-host; euser is preferred when the server exposes it.
func (a Attributes) Owner() string {
	if u := a.Str(AttrEuser); u != "" {
		return u
	}
	owner := a.Str(AttrJobOwner)
	if i := strings.IndexByte(owner, '@'); i >= 0 {
		return owner[:i]
	}
	return owner
}
