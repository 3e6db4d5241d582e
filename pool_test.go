package clusterkv

import (
	"context"
	"testing"
)

func TestPoolGetCreatesAndReuses(t *testing.T) {
	fc := newFakeCluster()
	p := newPool(func(a Addr) (NodeConn, error) { return fc.factory(a, nil) }, newEventBus())

	addr := Addr{Host: "10.0.0.1", Port: 7000}
	e1, err := p.get(context.Background(), addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	e2, err := p.get(context.Background(), addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e1 != e2 {
		t.Fatalf("expected the same pooled entry on repeat get")
	}
	if !e1.ready.Load() {
		t.Fatalf("expected entry to be ready after a successful ping")
	}
}

func TestPoolTombstoneForcesRecreate(t *testing.T) {
	fc := newFakeCluster()
	p := newPool(func(a Addr) (NodeConn, error) { return fc.factory(a, nil) }, newEventBus())
	addr := Addr{Host: "10.0.0.1", Port: 7000}

	e1, _ := p.get(context.Background(), addr)
	p.tombstone(addr.String())

	e2, err := p.get(context.Background(), addr)
	if err != nil {
		t.Fatalf("get after tombstone: %v", err)
	}
	if e1 == e2 {
		t.Fatalf("expected a fresh entry after tombstone")
	}
}

func TestPoolPruneRemovesUnreferenced(t *testing.T) {
	fc := newFakeCluster()
	p := newPool(func(a Addr) (NodeConn, error) { return fc.factory(a, nil) }, newEventBus())

	keep := Addr{Host: "10.0.0.1", Port: 7000}
	drop := Addr{Host: "10.0.0.2", Port: 7000}
	p.get(context.Background(), keep)
	p.get(context.Background(), drop)

	p.prune(map[string]struct{}{keep.String(): {}})

	if e := p.getOrNil(keep.String()); e == nil {
		t.Fatalf("expected kept address to remain pooled")
	}
	if e := p.getOrNil(drop.String()); e != nil {
		t.Fatalf("expected dropped address to be tombstoned")
	}
}

func TestPoolAnyReadyOnlyReturnsReady(t *testing.T) {
	fc := newFakeCluster()
	p := newPool(func(a Addr) (NodeConn, error) { return fc.factory(a, nil) }, newEventBus())

	unreachable := Addr{Host: "10.0.0.9", Port: 7000}
	fc.node(unreachable.String()).pingErr = context.DeadlineExceeded
	p.get(context.Background(), unreachable)

	if e := p.anyReady(); e != nil {
		t.Fatalf("expected no ready node, got %v", e)
	}

	reachable := Addr{Host: "10.0.0.1", Port: 7000}
	p.get(context.Background(), reachable)

	if e := p.anyReady(); e == nil {
		t.Fatalf("expected a ready node")
	}
}
