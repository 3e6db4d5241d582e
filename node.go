package clusterkv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// NodeConn is a single-node client connection, narrowed to the surface
// the routing engine actually drives: command dispatch, the
// cluster-topology command,
// read-mode directives, the single-shot ASKING directive, pipelining, and
// connection teardown. The default implementation wraps a
// github.com/redis/go-redis/v9 *redis.Client; tests substitute a fake.
type NodeConn interface {
	Addr() string
	Do(ctx context.Context, args ...interface{}) (interface{}, error)
	Ping(ctx context.Context) error
	ClusterSlots(ctx context.Context) ([]redis.ClusterSlot, error)
	ClusterInfo(ctx context.Context) (string, error)
	ReadOnly(ctx context.Context) error
	ReadWrite(ctx context.Context) error
	Asking(ctx context.Context) error
	Pipeline() redis.Pipeliner
	Close() error
}

// redisNodeConn is the default NodeConn, backed by go-redis/v9.
type redisNodeConn struct {
	addr string
	rdb  *redis.Client
}

func defaultFactory(addr Addr, opts *redis.Options) (NodeConn, error) {
	o := &redis.Options{}
	if opts != nil {
		*o = *opts
	}
	o.Addr = addr.String()
	return &redisNodeConn{addr: addr.String(), rdb: redis.NewClient(o)}, nil
}

func (n *redisNodeConn) Addr() string { return n.addr }

func (n *redisNodeConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	return n.rdb.Do(ctx, args...).Result()
}

func (n *redisNodeConn) Ping(ctx context.Context) error {
	return n.rdb.Ping(ctx).Err()
}

func (n *redisNodeConn) ClusterSlots(ctx context.Context) ([]redis.ClusterSlot, error) {
	return n.rdb.ClusterSlots(ctx).Result()
}

func (n *redisNodeConn) ClusterInfo(ctx context.Context) (string, error) {
	return n.rdb.ClusterInfo(ctx).Result()
}

func (n *redisNodeConn) ReadOnly(ctx context.Context) error {
	return n.rdb.ReadOnly(ctx).Err()
}

func (n *redisNodeConn) ReadWrite(ctx context.Context) error {
	return n.rdb.ReadWrite(ctx).Err()
}

func (n *redisNodeConn) Asking(ctx context.Context) error {
	return n.rdb.Do(ctx, "ASKING").Err()
}

func (n *redisNodeConn) Pipeline() redis.Pipeliner {
	return n.rdb.Pipeline()
}

func (n *redisNodeConn) Close() error {
	return n.rdb.Close()
}

// nodeEntry is the pool's bookkeeping around one NodeConn: a
// readModeReplica flag so the client can avoid redundant READONLY/
// READWRITE mode switches, plus the ready/ended bits lifecycle tracking
// needs.
type nodeEntry struct {
	conn NodeConn

	modeMu          sync.Mutex
	readModeReplica bool

	ready atomic.Bool
	ended atomic.Bool
}

func newNodeEntry(conn NodeConn) *nodeEntry {
	return &nodeEntry{conn: conn}
}

// reconcileReadMode sends READONLY/READWRITE only when the node's last
// known mode disagrees with wantReplica. Fire-and-forget: the reply is
// not awaited and its error, if any, is not inspected, since a
// mode-switch failure only costs one extra redirect on the next command
// and blocking routing on a round trip would defeat the point of a
// lock-free slot-map lookup.
func (e *nodeEntry) reconcileReadMode(wantReplica bool) {
	e.modeMu.Lock()
	cur := e.readModeReplica
	if cur == wantReplica {
		e.modeMu.Unlock()
		return
	}
	e.readModeReplica = wantReplica
	e.modeMu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if wantReplica {
			_ = e.conn.ReadOnly(ctx)
		} else {
			_ = e.conn.ReadWrite(ctx)
		}
	}()
}
