// Package cmdtable describes which Redis commands carry keys, how many
// argument positions each logical sub-command occupies, and how to merge
// the per-slot results of a split multi-key command back into one reply.
//
// This is a small static table rather than a wire-protocol command
// catalogue, since the routing engine only needs interval/group/read-only
// metadata, not full argument schemas.
package cmdtable

import "strings"

// Descriptor describes the key-splitting shape of one command.
type Descriptor struct {
	// Interval is the number of argument positions that make up one
	// logical sub-command: 1 for single-key commands (MGET), 2 for
	// key/value pairs (MSET).
	Interval int
	// ReadOnly marks commands eligible for replica routing.
	ReadOnly bool
	// Group merges the ordered per-sub-command results back into the
	// shape the caller expects for the original command. nil means the
	// command is never split (Interval covers the whole call already).
	Group func(results []interface{}) interface{}
}

var table = map[string]Descriptor{
	"GET":      {Interval: 1, ReadOnly: true},
	"SET":      {Interval: 2},
	"DEL":      {Interval: 1, Group: sumInt64},
	"UNLINK":   {Interval: 1, Group: sumInt64},
	"EXISTS":   {Interval: 1, ReadOnly: true, Group: sumInt64},
	"EXPIRE":   {Interval: 1},
	"TTL":      {Interval: 1, ReadOnly: true},
	"INCR":     {Interval: 1},
	"INCRBY":   {Interval: 1},
	"HGET":     {Interval: 1, ReadOnly: true},
	"HSET":     {Interval: 1},
	"HDEL":     {Interval: 1},
	"HMGET":    {Interval: 1, ReadOnly: true},
	"HMSET":    {Interval: 1},
	"MGET":     {Interval: 1, ReadOnly: true, Group: concat},
	"MSET":     {Interval: 2, Group: discard},
	"MSETNX":   {Interval: 2, Group: discard},
	"PFCOUNT":  {Interval: 1, ReadOnly: true, Group: sumInt64},
	"PFMERGE":  {Interval: 1, Group: discard},
	"SDIFF":    {Interval: 1, ReadOnly: true},
	"SINTER":   {Interval: 1, ReadOnly: true},
	"SUNION":   {Interval: 1, ReadOnly: true},
	"WATCH":    {Interval: 1, Group: discard},
	"TOUCH":    {Interval: 1, ReadOnly: true},
}

// Lookup returns the descriptor for cmd (case-insensitive) and whether it
// is known. Unknown commands are treated as single-key, non-splittable,
// write commands by the caller.
func Lookup(cmd string) (Descriptor, bool) {
	d, ok := table[strings.ToUpper(cmd)]
	return d, ok
}

// concat flattens ordered single-value sub-results into one array reply,
// the shape MGET's own server-side multi-key reply would have produced.
func concat(results []interface{}) interface{} {
	out := make([]interface{}, len(results))
	copy(out, results)
	return out
}

// discard drops individual sub-results; MSET-like commands reply OK once
// for the whole operation regardless of how many slots it touched.
func discard(results []interface{}) interface{} {
	for _, r := range results {
		if err, ok := r.(error); ok && err != nil {
			return r
		}
	}
	return "OK"
}

// sumInt64 adds together per-slot integer replies (PFCOUNT's cardinality
// estimates do not literally sum across shards, but in the absence of a
// server-side merge this is the best approximation available client-side).
func sumInt64(results []interface{}) interface{} {
	var total int64
	for _, r := range results {
		switch v := r.(type) {
		case int64:
			total += v
		case int:
			total += int64(v)
		}
	}
	return total
}
