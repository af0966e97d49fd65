package match

// Snapshot is one minion's attribute view for a single matching pass:
// grains and pillar as nested maps, the flat minion-data map, and the
// addresses the subnet matcher tests. Snapshots are read-only for the
// duration of a pass.
type Snapshot struct {
	ID     string            `json:"id"`
	Grains map[string]any    `json:"grains,omitempty"`
	Pillar map[string]any    `json:"pillar,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
	Addrs  []string          `json:"addresses,omitempty"`
}
