package clusterkv

import (
	"context"
	"sync"
	"sync/atomic"
)

// pool owns at most one live NodeConn per "host:port", tombstoning entries
// on disconnect rather than deleting them until a lazy re-creation happens.
type pool struct {
	mu      sync.Mutex
	entries map[string]*nodeEntry // nil value = tombstone
	factory func(Addr) (NodeConn, error)
	events  *EventBus

	everReady atomic.Bool
}

func newPool(factory func(Addr) (NodeConn, error), events *EventBus) *pool {
	return &pool{
		entries: make(map[string]*nodeEntry),
		factory: factory,
		events:  events,
	}
}

// get returns the live entry for addr, creating one via the factory if the
// slot is empty or tombstoned. Idempotent for already-live entries.
func (p *pool) get(ctx context.Context, addr Addr) (*nodeEntry, error) {
	key := addr.String()

	p.mu.Lock()
	if e, ok := p.entries[key]; ok && e != nil {
		p.mu.Unlock()
		return e, nil
	}
	p.mu.Unlock()

	conn, err := p.factory(addr)
	if err != nil {
		return nil, err
	}
	entry := newNodeEntry(conn)

	// Readiness: a freshly dialed connection is probed once; failure does
	// not prevent the entry from being pooled (the caller's command will
	// surface the same error), but it does not flip aggregate readiness.
	if err := conn.Ping(ctx); err == nil {
		entry.ready.Store(true)
	}

	p.mu.Lock()
	// Another goroutine may have won the race; prefer its entry and close
	// ours to avoid leaking a second connection to the same node.
	if existing, ok := p.entries[key]; ok && existing != nil {
		p.mu.Unlock()
		_ = conn.Close()
		return existing, nil
	}
	p.entries[key] = entry
	p.mu.Unlock()

	if entry.ready.Load() {
		p.onReady()
	}
	return entry, nil
}

// getOrNil returns the live entry for addr without creating one.
func (p *pool) getOrNil(addr string) *nodeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries[addr]
}

// tombstone marks addr's entry as gone, forcing the next get to recreate
// it. The entry itself is closed best-effort.
func (p *pool) tombstone(addr string) {
	p.mu.Lock()
	e, ok := p.entries[addr]
	if ok {
		p.entries[addr] = nil
	}
	p.mu.Unlock()
	if e != nil {
		_ = e.conn.Close()
		e.ended.Store(true)
	}
	p.recomputeAfterLoss()
}

// prune tombstones every live entry whose address is absent from keep:
// any node endpoint no longer referenced by any slot in the latest
// discovery is quit and tombstoned.
func (p *pool) prune(keep map[string]struct{}) {
	p.mu.Lock()
	var stale []*nodeEntry
	for addr, e := range p.entries {
		if e == nil {
			continue
		}
		if _, ok := keep[addr]; !ok {
			stale = append(stale, e)
			p.entries[addr] = nil
		}
	}
	p.mu.Unlock()

	for _, e := range stale {
		_ = e.conn.Close()
		e.ended.Store(true)
	}
	if len(stale) > 0 {
		p.recomputeAfterLoss()
	}
}

// anyReady returns a random ready entry, or nil if none exists.
func (p *pool) anyReady() *nodeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e != nil && e.ready.Load() && !e.ended.Load() {
			return e
		}
	}
	return nil
}

// anyReadyExcluding returns a ready entry whose address is not in excl, or
// nil if every ready entry has already been excluded.
func (p *pool) anyReadyExcluding(excl map[string]struct{}) *nodeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, e := range p.entries {
		if e == nil || !e.ready.Load() || e.ended.Load() {
			continue
		}
		if _, skip := excl[addr]; skip {
			continue
		}
		return e
	}
	return nil
}

// allAddrs returns every non-tombstoned address currently pooled.
func (p *pool) allAddrs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	addrs := make([]string, 0, len(p.entries))
	for addr, e := range p.entries {
		if e != nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// quitAll closes every live entry and returns the first error observed, if
// any.
func (p *pool) quitAll() error {
	p.mu.Lock()
	entries := make([]*nodeEntry, 0, len(p.entries))
	for addr, e := range p.entries {
		if e != nil {
			entries = append(entries, e)
			p.entries[addr] = nil
		}
	}
	p.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		if err := e.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.ended.Store(true)
	}
	p.recomputeAfterLoss()
	return firstErr
}

// onConnectionError is invoked by the executor when a command against
// entry's node fails with a broken/uncertain-connection error. It
// tombstones the entry so the next get() reconnects, and always emits
// connectionError.
func (p *pool) onConnectionError(addr string, err error) {
	p.tombstone(addr)
	p.events.emitConnectionError(err, addr)
}

func (p *pool) onReady() {
	if p.everReady.Swap(true) {
		return
	}
	p.events.emitReady()
}

// recomputeAfterLoss re-evaluates aggregate readiness/endedness after an
// entry is tombstoned or closed, emitting unready/end as needed.
func (p *pool) recomputeAfterLoss() {
	p.mu.Lock()
	anyReady := false
	allEnded := true
	hasAny := false
	for _, e := range p.entries {
		if e == nil {
			continue
		}
		hasAny = true
		if e.ready.Load() && !e.ended.Load() {
			anyReady = true
		}
		if !e.ended.Load() {
			allEnded = false
		}
	}
	p.mu.Unlock()

	if !anyReady && p.everReady.Load() {
		p.events.emitUnready()
	}
	if hasAny && allEnded {
		p.events.emitEnd()
	}
}
