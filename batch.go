package clusterkv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// batchedCmd is one command queued onto a Batch.
type batchedCmd struct {
	args []interface{}
	key  string
}

// Batch groups commands by destination node and sends each node's commands
// as a single go-redis pipeline. A multi-key command already has to be
// split per slot, so a batch is simply many single-key commands amortizing
// that same per-node round trip; it does not provide cross-slot atomicity.
type Batch struct {
	c    *Cluster
	cmds []batchedCmd
}

// Batch starts a new pipelined batch.
func (c *Cluster) Batch() *Batch {
	return &Batch{c: c}
}

// Queue adds a command to the batch. key is the routing key for args.
func (b *Batch) Queue(key string, args ...interface{}) {
	b.cmds = append(b.cmds, batchedCmd{args: args, key: key})
}

// Exec sends every queued command, grouped one pipeline per destination
// node, and returns results in the original queue order. A command whose
// slot is not currently covered goes to any ready node. A command for which
// no node can be picked, or whose reply is an error, reports that error in
// its position; other commands in the batch still complete.
func (b *Batch) Exec(ctx context.Context) ([]interface{}, error) {
	type group struct {
		entry   *nodeEntry
		indices []int
	}
	groups := make(map[string]*group)
	results := make([]interface{}, len(b.cmds))

	for i, cmd := range b.cmds {
		cmdName, _ := cmd.args[0].(string)
		pol := b.c.routeKey(normalizeCmd(cmdName), cmd.key)
		entry, err := b.c.pickClient(ctx, pol)
		if err != nil {
			results[i] = err
			continue
		}
		g, ok := groups[entry.conn.Addr()]
		if !ok {
			g = &group{entry: entry}
			groups[entry.conn.Addr()] = g
		}
		g.indices = append(g.indices, i)
	}

	for _, g := range groups {
		pipe := g.entry.conn.Pipeline()
		cmders := make([]*redis.Cmd, 0, len(g.indices))
		for _, idx := range g.indices {
			cmders = append(cmders, pipe.Do(ctx, b.cmds[idx].args...))
		}
		_, _ = pipe.Exec(ctx)
		for i, idx := range g.indices {
			val, err := cmders[i].Result()
			if err != nil {
				results[idx] = err
				continue
			}
			results[idx] = val
		}
	}

	return results, nil
}
