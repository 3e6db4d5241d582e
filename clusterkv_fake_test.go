package clusterkv

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
)

func newDeterministicRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// fakeNodeConn is an in-memory NodeConn test double: no network, no
// go-redis dial, just a key/value map per simulated node plus scripted
// errors, substituted in place of a real redis connection.
type fakeNodeConn struct {
	addr string

	mu     sync.Mutex
	data   map[string]interface{}
	closed bool

	pingErr     error
	slots       []redis.ClusterSlot
	slotsErr    error
	doErr       map[string]error // keyed by command name, one-shot
	persistErr  map[string]error // keyed by command name, returned every call until cleared
	askingErr   error
	asked       bool
}

func newFakeNodeConn(addr string) *fakeNodeConn {
	return &fakeNodeConn{
		addr:       addr,
		data:       make(map[string]interface{}),
		doErr:      make(map[string]error),
		persistErr: make(map[string]error),
	}
}

func (f *fakeNodeConn) Addr() string { return f.addr }

func (f *fakeNodeConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("fakeNodeConn: empty command")
	}
	cmd, _ := args[0].(string)

	f.mu.Lock()
	if err, ok := f.doErr[cmd]; ok {
		delete(f.doErr, cmd)
		f.mu.Unlock()
		return nil, err
	}
	if err, ok := f.persistErr[cmd]; ok {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	switch cmd {
	case "SET", "MSET":
		key := args[1].(string)
		f.mu.Lock()
		f.data[key] = args[2]
		f.mu.Unlock()
		return "OK", nil
	case "GET":
		key := args[1].(string)
		f.mu.Lock()
		v, ok := f.data[key]
		f.mu.Unlock()
		if !ok {
			return nil, nil
		}
		return v, nil
	case "DEL":
		key := args[1].(string)
		f.mu.Lock()
		_, existed := f.data[key]
		delete(f.data, key)
		f.mu.Unlock()
		if existed {
			return int64(1), nil
		}
		return int64(0), nil
	case "ASKING":
		f.mu.Lock()
		f.asked = true
		f.mu.Unlock()
		return "OK", nil
	}
	return "OK", nil
}

func (f *fakeNodeConn) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeNodeConn) ClusterSlots(ctx context.Context) ([]redis.ClusterSlot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeNodeConn) ClusterInfo(ctx context.Context) (string, error) {
	return "cluster_state:ok\r\n", nil
}

func (f *fakeNodeConn) ReadOnly(ctx context.Context) error  { return nil }
func (f *fakeNodeConn) ReadWrite(ctx context.Context) error { return nil }

func (f *fakeNodeConn) Asking(ctx context.Context) error {
	f.mu.Lock()
	f.asked = true
	f.mu.Unlock()
	return f.askingErr
}

func (f *fakeNodeConn) Pipeline() redis.Pipeliner {
	panic("fakeNodeConn: Pipeline not supported by this test double")
}

func (f *fakeNodeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// fakeCluster is a small registry of fakeNodeConn by address, used as the
// factory backing a *Cluster under test.
type fakeCluster struct {
	mu    sync.Mutex
	nodes map[string]*fakeNodeConn
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{nodes: make(map[string]*fakeNodeConn)}
}

func (fc *fakeCluster) node(addr string) *fakeNodeConn {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	n, ok := fc.nodes[addr]
	if !ok {
		n = newFakeNodeConn(addr)
		fc.nodes[addr] = n
	}
	return n
}

func (fc *fakeCluster) factory(a Addr, _ *redis.Options) (NodeConn, error) {
	return fc.node(a.String()), nil
}

// newTestCluster builds a *Cluster wired to fc without running real
// discovery, so tests can set up an exact slotsPtr snapshot by hand.
func newTestCluster(fc *fakeCluster, opts Options) *Cluster {
	if opts.MaxQueueLength == 0 {
		opts.MaxQueueLength = 16
	}
	c := &Cluster{
		opts:       opts,
		events:     newEventBus(),
		rnd:        newDeterministicRand(),
		stopTicker: make(chan struct{}),
	}
	c.pool = newPool(func(a Addr) (NodeConn, error) {
		return fc.factory(a, opts.RedisOptions)
	}, c.events)
	c.slotsPtr.store(newEmptySlotMap())
	return c
}

// entryFor connects (or reuses) the pooled entry for addr, for building a
// slotMap to inject into a test Cluster.
func (c *Cluster) entryFor(t *testing.T, addr string) *nodeEntry {
	t.Helper()
	a, err := ParseAddr(addr)
	if err != nil {
		t.Fatalf("ParseAddr(%q): %v", addr, err)
	}
	e, err := c.pool.get(context.Background(), a)
	if err != nil {
		t.Fatalf("pool.get(%q): %v", addr, err)
	}
	return e
}
