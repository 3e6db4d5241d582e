package clusterkv

import (
	"clusterkv/internal/hashslot"
	"clusterkv/internal/snapshot"
)

// ExportTopology captures the current slot map as a compressed,
// JSON-serializable snapshot, for attaching to a bug report or diffing two
// snapshots after a resharding. It is a read-only debug/support-bundle
// feature, not part of the routing hot path.
func (c *Cluster) ExportTopology(codec snapshot.Codec) ([]byte, error) {
	return snapshot.Export(c.currentTopology(), codec)
}

// ImportTopology decompresses and decodes a topology previously produced by
// ExportTopology, for offline inspection; it does not affect routing.
func ImportTopology(data []byte, codec snapshot.Codec) (snapshot.Topology, error) {
	return snapshot.Import(data, codec)
}

// currentTopology folds the per-slot snapshot down to contiguous ranges
// sharing the same primary and replica set, the shape a snapshot.Topology
// stores.
func (c *Cluster) currentTopology() snapshot.Topology {
	m := c.slotsPtr.load()

	var t snapshot.Topology
	start := 0
	for slot := 1; slot <= hashslot.SlotCount; slot++ {
		if slot < hashslot.SlotCount && sameOwners(m.forSlot(start), m.forSlot(slot)) {
			continue
		}
		if a, ok := slotAssignment(m, start, slot-1); ok {
			t.Slots = append(t.Slots, a)
		}
		start = slot
	}
	return t
}

func slotAssignment(m *slotMap, start, end int) (snapshot.SlotAssignment, bool) {
	entries := m.forSlot(start)
	if len(entries) == 0 {
		return snapshot.SlotAssignment{}, false
	}
	a := snapshot.SlotAssignment{Start: start, End: end, Primary: entries[0].conn.Addr()}
	for _, e := range entries[1:] {
		a.Replicas = append(a.Replicas, e.conn.Addr())
	}
	return a, true
}

func sameOwners(a, b []*nodeEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
