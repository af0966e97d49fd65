package fleet

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/fleetward/fleetward/pkg/match"
)

// Registry is the coordinator's in-memory view of the minions currently
// known, keyed by minion id. Heartbeats upsert concurrently; a matching
// pass takes a point-in-time slice via Snapshots.
type Registry struct {
	m cmap.ConcurrentMap
}

func NewRegistry() *Registry {
	return &Registry{m: cmap.New()}
}

// Upsert stores or replaces one minion's snapshot.
func (r *Registry) Upsert(s *match.Snapshot) {
	r.m.Set(s.ID, s)
}

func (r *Registry) Get(id string) (*match.Snapshot, bool) {
	v, ok := r.m.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*match.Snapshot), true
}

func (r *Registry) Remove(id string) {
	r.m.Remove(id)
}

func (r *Registry) Len() int {
	return r.m.Count()
}

// Snapshots returns the fleet view for one matching pass, ordered by id.
// The returned slice is the pass's own; stored snapshots are treated as
// immutable once registered.
func (r *Registry) Snapshots() []*match.Snapshot {
	out := make([]*match.Snapshot, 0, r.m.Count())
	for item := range r.m.IterBuffered() {
		out = append(out, item.Val.(*match.Snapshot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
