package clusterkv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"clusterkv/internal/hashslot"
	"clusterkv/internal/logger"
)

// refreshSync runs (or joins) a slot discovery and returns the resulting
// slot map. Concurrent callers while a discovery is already in flight are
// coalesced onto a single wait queue rather than each starting their own
// discovery, bounded by Options.MaxQueueLength with the QueueShift
// eviction-vs-rejection policy.
func (c *Cluster) refreshSync(ctx context.Context) (*slotMap, error) {
	if c.isQuitting() {
		return nil, ErrClusterQuitting
	}

	c.mu.Lock()
	if c.refreshInFlight {
		if len(c.pending) >= c.opts.maxQueueLength() {
			if !c.opts.queueShift() {
				c.mu.Unlock()
				return nil, ErrMaxQueueLengthReached
			}
			evicted := c.pending[0]
			c.pending = c.pending[1:]
			evicted <- discoveryResult{err: ErrMaxQueueLengthReached}
		}
		ch := make(chan discoveryResult, 1)
		c.pending = append(c.pending, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.m, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.refreshInFlight = true
	c.mu.Unlock()

	m, err := c.discover(ctx)

	c.mu.Lock()
	waiters := c.pending
	c.pending = nil
	c.refreshInFlight = false
	c.mu.Unlock()

	if err == nil {
		c.slotsPtr.store(m)
	}
	for _, ch := range waiters {
		ch <- discoveryResult{m: m, err: err}
	}
	return m, err
}

// discover performs one round of CLUSTER SLOTS discovery, warms up every
// node the topology names concurrently, builds the new slot map, and
// prunes pool entries for nodes no slot references any more. A node whose
// CLUSTER SLOTS call fails is excluded and another ready node is tried in
// its place; discovery only fails once every ready node has been tried,
// with the per-node errors aggregated into a DiscoveryError.
func (c *Cluster) discover(ctx context.Context) (*slotMap, error) {
	if c.refreshLimiter != nil {
		if err := c.refreshLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	entry, err := c.waitForReadyNode(ctx)
	if err != nil {
		return nil, err
	}

	tried := make(map[string]struct{})
	errs := make(map[string]error)
	var raw []redis.ClusterSlot
	for {
		addr := entry.conn.Addr()
		tried[addr] = struct{}{}

		r, slotsErr := entry.conn.ClusterSlots(ctx)
		if slotsErr == nil {
			raw = r
			break
		}
		errs[addr] = slotsErr

		next := c.pool.anyReadyExcluding(tried)
		if next == nil {
			return nil, newDiscoveryError(errs)
		}
		entry = next
	}

	addrSet := make(map[string]struct{})
	for _, r := range raw {
		for _, n := range r.Nodes {
			if n.Addr != "" {
				addrSet[n.Addr] = struct{}{}
			}
		}
	}

	// Warm up every node the topology names concurrently; a node whose
	// connection cannot be created is simply absent from the resulting
	// slot map rather than failing the whole discovery. A node that is
	// created but does not answer PING is still pooled and mapped.
	g, gctx := errgroup.WithContext(ctx)
	for addrStr := range addrSet {
		addrStr := addrStr
		g.Go(func() error {
			a, err := ParseAddr(addrStr)
			if err != nil {
				logger.Warn("clusterkv: skipping unparsable node address %q: %v", addrStr, err)
				return nil
			}
			if _, err := c.pool.get(gctx, a); err != nil {
				logger.Debug("clusterkv: warm-up failed for %s: %v", addrStr, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	m := newEmptySlotMap()
	for _, r := range raw {
		var entries []*nodeEntry
		for _, n := range r.Nodes {
			if n.Addr == "" {
				continue
			}
			if e := c.pool.getOrNil(n.Addr); e != nil {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			continue
		}
		for slot := r.Start; slot <= r.End && slot < hashslot.SlotCount; slot++ {
			m.nodes[slot] = entries
		}
	}

	c.pool.prune(addrSet)
	return m, nil
}

// waitForReadyNode blocks until pool.anyReady returns a candidate, a seed
// reconnects, Options.ReadyTimeout elapses, or ctx is cancelled.
func (c *Cluster) waitForReadyNode(ctx context.Context) (*nodeEntry, error) {
	if e := c.pool.anyReady(); e != nil {
		return e, nil
	}

	deadline := time.Time{}
	if c.opts.ReadyTimeout > 0 {
		deadline = time.Now().Add(c.opts.ReadyTimeout)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.isQuitting() {
			return nil, ErrClusterQuitting
		}
		for _, addr := range c.opts.Servers {
			if _, err := c.pool.get(ctx, addr); err == nil {
				if e := c.pool.anyReady(); e != nil {
					return e, nil
				}
			}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrReadyTimeoutReached
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
