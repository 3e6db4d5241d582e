package clusterkv

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplicaMode controls whether read commands may be routed to replicas.
type ReplicaMode int

const (
	// ReplicaNever routes every command to the primary (default).
	ReplicaNever ReplicaMode = iota
	// ReplicaAlways routes read commands to a uniformly random replica;
	// only a slot with no replica sends them to its primary.
	ReplicaAlways
	// ReplicaShare routes read commands to a uniformly random node among
	// the primary and its replicas.
	ReplicaShare
)

// Factory builds a NodeConn for a given endpoint. Supplying one enables
// test doubles in place of the default github.com/redis/go-redis/v9-backed
// implementation.
type Factory func(addr Addr, opts *redis.Options) (NodeConn, error)

// Options configures a Cluster.
type Options struct {
	// Servers lists the seed endpoints used to bootstrap discovery.
	Servers []Addr

	// CreateClient overrides how node connections are built. Defaults to
	// a github.com/redis/go-redis/v9 *redis.Client wrapper.
	CreateClient Factory

	// RedisOptions is forwarded to CreateClient (or the default factory)
	// for every node connection; Addr is overwritten per node.
	RedisOptions *redis.Options

	// SlotInterval, if non-zero, re-runs discovery on this period in
	// addition to the redirect-triggered refreshes.
	SlotInterval time.Duration

	// ReadyTimeout bounds how long the first discovery waits for a node
	// to become ready. Zero means wait forever.
	ReadyTimeout time.Duration

	// MaxQueueLength bounds the pending-refresh queue. Defaults to 16.
	MaxQueueLength int

	// QueueShift controls pending-refresh queue overflow policy: true
	// (default) evicts the eldest waiter to admit the newcomer; false
	// rejects the newcomer instead.
	QueueShift *bool

	// ReplicaMode is the cluster-wide read/replica routing policy.
	ReplicaMode ReplicaMode
}

func (o Options) maxQueueLength() int {
	if o.MaxQueueLength > 0 {
		return o.MaxQueueLength
	}
	return 16
}

func (o Options) queueShift() bool {
	if o.QueueShift == nil {
		return true
	}
	return *o.QueueShift
}
