package cmdtable

import "testing"

// wrapperCommands lists every command clusterkv's thin wrapper methods
// (commands.go) dispatch by name. This test stands in for a code-generation
// step: it asserts the table is the single source of truth those wrappers
// were written against, so a wrapper can never silently drift from its
// descriptor.
var wrapperCommands = []string{
	"GET", "SET", "DEL", "EXISTS", "EXPIRE", "TTL", "INCR", "INCRBY",
	"HGET", "HSET", "HDEL", "HMGET", "HMSET", "MGET", "MSET",
}

func TestWrapperCommandsHaveTableEntries(t *testing.T) {
	for _, cmd := range wrapperCommands {
		if _, ok := Lookup(cmd); !ok {
			t.Errorf("command %s has a thin wrapper but no cmdtable entry", cmd)
		}
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	upper, ok := Lookup("GET")
	if !ok {
		t.Fatalf("expected GET to be known")
	}
	lower, ok := Lookup("get")
	if !ok {
		t.Fatalf("expected get to be known")
	}
	if upper.ReadOnly != lower.ReadOnly || upper.Interval != lower.Interval {
		t.Fatalf("expected case-insensitive lookups to return the same descriptor")
	}
}
