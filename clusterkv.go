// Package clusterkv is a client for a sharded, replicated key/value store
// organized as a cluster of nodes: the keyspace is partitioned into 16384
// hash slots, each owned by one primary with zero or more replicas.
// Cluster dispatches commands to the correct node, reacting to slot
// migration, failover, transient unavailability, and multi-key commands
// whose keys span multiple slots.
//
// The wire protocol, the CRC16 hash function, and the command-name table
// are treated as external collaborators: commands are dispatched through
// github.com/redis/go-redis/v9, hashing lives in internal/hashslot, and the
// key-splitting table lives in internal/cmdtable. This package is the
// routing and reliability engine: topology discovery (discovery.go), the
// slot map (slotmap.go), per-key client selection (router.go), the
// redirect/retry state machine (executor.go), multi-key fan-out
// (multikey.go), and pool/lifecycle management (pool.go, node.go).
package clusterkv

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clusterkv/internal/logger"
)

// Cluster is a cluster-aware key/value client.
type Cluster struct {
	opts   Options
	pool   *pool
	events *EventBus

	slotsPtr slotMapPtr

	mu              sync.Mutex
	quitting        bool
	refreshInFlight bool
	pending         []chan discoveryResult

	refreshLimiter *rate.Limiter
	stopTicker     chan struct{}
	tickerDone     chan struct{}

	randMu sync.Mutex
	rnd    *rand.Rand
}

// discoveryResult is delivered to every pending-refresh waiter once the
// in-flight discovery completes.
type discoveryResult struct {
	m   *slotMap
	err error
}

// New builds a Cluster from the seed endpoints in opts.Servers and runs
// the first slot discovery before returning, since Go constructors that can
// fail return (T, error) rather than leaving the caller to poll readiness.
func New(ctx context.Context, opts Options) (*Cluster, error) {
	if len(opts.Servers) == 0 {
		return nil, fmt.Errorf("clusterkv: at least one seed server is required")
	}

	factory := opts.CreateClient
	if factory == nil {
		factory = defaultFactory
	}

	c := &Cluster{
		opts:       opts,
		events:     newEventBus(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		stopTicker: make(chan struct{}),
	}
	c.pool = newPool(func(a Addr) (NodeConn, error) {
		return factory(a, opts.RedisOptions)
	}, c.events)
	c.slotsPtr.store(newEmptySlotMap())

	// Capping refreshes at one per second regardless of SlotInterval
	// keeps a misconfigured caller from storming the seed nodes.
	c.refreshLimiter = rate.NewLimiter(rate.Limit(1), 1)

	for _, addr := range opts.Servers {
		if _, err := c.pool.get(ctx, addr); err != nil {
			logger.Warn("clusterkv: seed %s unreachable: %v", addr, err)
		}
	}

	if _, err := c.refreshSync(ctx); err != nil {
		return nil, err
	}

	if opts.SlotInterval > 0 {
		c.startPeriodicRefresh(opts.SlotInterval)
	}

	return c, nil
}

// Events returns the cluster's event publisher.
func (c *Cluster) Events() *EventBus {
	return c.events
}

// Healthy reports whether a random ready node considers the cluster state
// "ok" via CLUSTER INFO.
func (c *Cluster) Healthy(ctx context.Context) (bool, error) {
	entry := c.pool.anyReady()
	if entry == nil {
		return false, ErrNoClientAvailable
	}
	info, err := entry.conn.ClusterInfo(ctx)
	if err != nil {
		return false, err
	}
	return containsLine(info, "cluster_state:ok"), nil
}

func containsLine(info, needle string) bool {
	for i := 0; i+len(needle) <= len(info); i++ {
		if info[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func (c *Cluster) startPeriodicRefresh(interval time.Duration) {
	ticker := time.NewTicker(interval)
	c.tickerDone = make(chan struct{})
	go func() {
		defer close(c.tickerDone)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := c.refreshSync(ctx); err != nil {
					logger.Debug("clusterkv: periodic refresh failed: %v", err)
				}
				cancel()
			case <-c.stopTicker:
				return
			}
		}
	}()
}

// Quit terminates all connections. New commands submitted after Quit
// returns fail with ErrClusterQuitting.
func (c *Cluster) Quit(ctx context.Context) error {
	c.mu.Lock()
	if c.quitting {
		c.mu.Unlock()
		return nil
	}
	c.quitting = true
	hadTicker := c.tickerDone != nil
	c.mu.Unlock()

	if hadTicker {
		close(c.stopTicker)
		<-c.tickerDone
	}

	// Fail any waiters still queued on an in-flight refresh rather than
	// leaving them blocked on a channel nothing will ever signal.
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.refreshInFlight = false
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- discoveryResult{err: ErrClusterQuitting}
	}

	err := c.pool.quitAll()
	c.events.emitEnd()
	return err
}

func (c *Cluster) isQuitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitting
}

func (c *Cluster) randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	c.randMu.Lock()
	defer c.randMu.Unlock()
	return c.rnd.Intn(n)
}
