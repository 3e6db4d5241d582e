// Package protoerr classifies Redis Cluster error replies into the
// redirect/retry/surface buckets the executor state machine acts on.
//
// Classification is plain string-prefix matching on the error message,
// covering the full set of cluster redirect and transient-error replies
// the executor needs to react to.
package protoerr

import "strings"

// Redirect describes a MOVED or ASK reply.
type Redirect struct {
	Kind string // "MOVED" or "ASK"
	Slot int
	Addr string
}

// ParseRedirect extracts a MOVED/ASK redirect from err, if any.
func ParseRedirect(err error) (Redirect, bool) {
	if err == nil {
		return Redirect{}, false
	}
	fields := strings.Fields(err.Error())
	if len(fields) < 3 {
		return Redirect{}, false
	}
	kind := strings.ToUpper(fields[0])
	if kind != "MOVED" && kind != "ASK" {
		return Redirect{}, false
	}
	slot := atoiSafe(fields[1])
	return Redirect{Kind: kind, Slot: slot, Addr: fields[2]}, true
}

// IsTryAgain reports whether err is a TRYAGAIN reply.
func IsTryAgain(err error) bool {
	return hasPrefix(err, "TRYAGAIN")
}

// IsClusterDown reports whether err carries the CLUSTERDOWN error code.
func IsClusterDown(err error) bool {
	return hasPrefix(err, "CLUSTERDOWN")
}

// IsClusterSupportDisabled reports whether err indicates the target server
// is not running in cluster mode at all.
func IsClusterSupportDisabled(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "cluster support disabled")
}

// IsConnectionBroken reports whether err indicates the connection to a
// node is broken or its state is uncertain (closed socket, dial failure,
// reset), as opposed to a well-formed server error reply.
func IsConnectionBroken(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection to"):
		return strings.Contains(msg, "failed") || strings.Contains(msg, "closed")
	case strings.Contains(msg, "EOF"):
		return true
	case strings.Contains(msg, "connection reset"):
		return true
	case strings.Contains(msg, "broken pipe"):
		return true
	case strings.Contains(msg, "use of closed network connection"):
		return true
	case strings.Contains(msg, "i/o timeout"):
		return true
	}
	return false
}

func hasPrefix(err error, prefix string) bool {
	if err == nil {
		return false
	}
	msg := strings.TrimSpace(err.Error())
	return strings.HasPrefix(strings.ToUpper(msg), prefix)
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
