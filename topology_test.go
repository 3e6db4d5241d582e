package clusterkv

import (
	"testing"

	"clusterkv/internal/hashslot"
	"clusterkv/internal/snapshot"
)

func TestExportTopologyGroupsContiguousSlotsAndRoundTrips(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})

	m := newEmptySlotMap()
	primary := c.entryFor(t, "10.0.0.1:7000")
	replica := c.entryFor(t, "10.0.0.1:7001")
	other := c.entryFor(t, "10.0.0.2:7000")
	for slot := 0; slot < 8192; slot++ {
		m.nodes[slot] = []*nodeEntry{primary, replica}
	}
	for slot := 8192; slot < hashslot.SlotCount; slot++ {
		m.nodes[slot] = []*nodeEntry{other}
	}
	c.slotsPtr.store(m)

	data, err := c.ExportTopology(snapshot.ZSTD{})
	if err != nil {
		t.Fatalf("ExportTopology: %v", err)
	}

	got, err := ImportTopology(data, snapshot.ZSTD{})
	if err != nil {
		t.Fatalf("ImportTopology: %v", err)
	}
	if len(got.Slots) != 2 {
		t.Fatalf("expected 2 contiguous ranges, got %d: %+v", len(got.Slots), got.Slots)
	}
	if got.Slots[0].Start != 0 || got.Slots[0].End != 8191 || got.Slots[0].Primary != "10.0.0.1:7000" {
		t.Fatalf("unexpected first range: %+v", got.Slots[0])
	}
	if len(got.Slots[0].Replicas) != 1 || got.Slots[0].Replicas[0] != "10.0.0.1:7001" {
		t.Fatalf("expected first range to carry its replica, got %+v", got.Slots[0].Replicas)
	}
	if got.Slots[1].Start != 8192 || got.Slots[1].End != hashslot.SlotCount-1 || got.Slots[1].Primary != "10.0.0.2:7000" {
		t.Fatalf("unexpected second range: %+v", got.Slots[1])
	}
}

func TestExportTopologySkipsUnassignedSlots(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})

	m := newEmptySlotMap()
	entry := c.entryFor(t, "10.0.0.1:7000")
	m.nodes[100] = []*nodeEntry{entry}
	c.slotsPtr.store(m)

	data, err := c.ExportTopology(snapshot.LZ4{})
	if err != nil {
		t.Fatalf("ExportTopology: %v", err)
	}
	got, err := ImportTopology(data, snapshot.LZ4{})
	if err != nil {
		t.Fatalf("ImportTopology: %v", err)
	}
	if len(got.Slots) != 1 || got.Slots[0].Start != 100 || got.Slots[0].End != 100 {
		t.Fatalf("expected a single-slot range for slot 100, got %+v", got.Slots)
	}
}
