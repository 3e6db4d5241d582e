package clusterkv

import (
	"context"
	"fmt"
	"strings"

	"clusterkv/internal/cmdtable"
	"clusterkv/internal/hashslot"
)

// routingPolicy captures what the router needs to pick a client: the slot
// a command's key hashes to, and whether the command may go to a replica.
type routingPolicy struct {
	slot     int
	readOnly bool
}

// routeKey computes the routing policy for a single-key command. cmd is
// the command name (e.g. "GET"); key is the first key argument.
func (c *Cluster) routeKey(cmd, key string) routingPolicy {
	d, _ := cmdtable.Lookup(cmd)
	return routingPolicy{
		slot:     hashslot.Of(key),
		readOnly: d.ReadOnly,
	}
}

// pickClient resolves a routing policy to a concrete node connection,
// honoring ReplicaMode for read-only commands and reconciling the chosen
// node's READONLY/READWRITE mode before returning.
func (c *Cluster) pickClient(ctx context.Context, pol routingPolicy) (*nodeEntry, error) {
	m := c.slotsPtr.load()
	entries := m.forSlot(pol.slot)
	if len(entries) == 0 {
		// Uncovered slot: fall back to any ready node so the command can
		// still surface a MOVED/CLUSTERDOWN reply rather than failing
		// locally.
		e := c.pool.anyReady()
		if e == nil {
			return nil, ErrNoClientAvailable
		}
		return e, nil
	}

	wantReplica := pol.readOnly && c.opts.ReplicaMode != ReplicaNever
	entry := c.selectFromEntries(entries, wantReplica)
	if entry == nil {
		return nil, ErrNoClientAvailable
	}

	isReplica := entry != entries[0]
	entry.reconcileReadMode(isReplica)
	return entry, nil
}

// selectFromEntries applies ReplicaMode to entries (primary first,
// replicas following) and returns the chosen candidate.
func (c *Cluster) selectFromEntries(entries []*nodeEntry, wantReplica bool) *nodeEntry {
	if !wantReplica || len(entries) == 1 {
		return entries[0]
	}
	switch c.opts.ReplicaMode {
	case ReplicaAlways:
		replicas := entries[1:]
		return replicas[c.randIntn(len(replicas))]
	case ReplicaShare:
		return entries[c.randIntn(len(entries))]
	default:
		return entries[0]
	}
}

// firstKeyArg returns the first routable key among args, or false if none
// is present.
func firstKeyArg(args []interface{}) (string, bool) {
	for _, a := range args {
		switch v := a.(type) {
		case string:
			return v, true
		case []byte:
			return string(v), true
		case fmt.Stringer:
			return v.String(), true
		}
	}
	return "", false
}

func normalizeCmd(cmd string) string {
	return strings.ToUpper(cmd)
}
