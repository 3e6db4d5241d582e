package clusterkv

import (
	"context"
	"time"

	"clusterkv/internal/protoerr"
)

// maxRedirectAttempts bounds the MOVED/ASK/TRYAGAIN/CLUSTERDOWN retry loop:
// no command retries more than this many times.
const maxRedirectAttempts = 16

// backoff computes the TRYAGAIN/CLUSTERDOWN retry delay: doubling from
// 10ms, capped at 1280ms.
func backoff(attempt int) time.Duration {
	d := 10 * time.Millisecond
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= 1280*time.Millisecond {
			return 1280 * time.Millisecond
		}
	}
	return d
}

// Exec dispatches a single command, following MOVED/ASK redirects and
// retrying TRYAGAIN/CLUSTERDOWN replies up to maxRedirectAttempts times.
// cmd is the command name; key is the routing key; args is the full
// command line including the command name. Fails with *NoKeyError if key
// or args is empty.
func (c *Cluster) Exec(ctx context.Context, cmd string, key string, args []interface{}) (interface{}, error) {
	if c.isQuitting() {
		return nil, ErrClusterQuitting
	}
	if len(args) == 0 || key == "" {
		return nil, &NoKeyError{Cmd: cmd}
	}

	pol := c.routeKey(normalizeCmd(cmd), key)
	entry, err := c.pickClient(ctx, pol)
	if err != nil {
		return nil, err
	}

	return c.execWithRetry(ctx, entry, pol, args, false)
}

// execWithRetry runs args against entry, handling redirects and transient
// errors in place. asking is true for the single retry hop right after an
// ASK redirect, where the ASKING directive must precede the command on the
// same connection.
func (c *Cluster) execWithRetry(ctx context.Context, entry *nodeEntry, pol routingPolicy, args []interface{}, asking bool) (interface{}, error) {
	for attempt := 0; attempt < maxRedirectAttempts; attempt++ {
		if c.isQuitting() {
			return nil, ErrClusterQuitting
		}

		if asking {
			if err := entry.conn.Asking(ctx); err != nil {
				return nil, c.handleNodeError(entry, err)
			}
			asking = false
		}

		result, err := entry.conn.Do(ctx, args...)
		if err == nil {
			return result, nil
		}

		if protoerr.IsConnectionBroken(err) {
			c.pool.onConnectionError(entry.conn.Addr(), err)
			if _, rerr := c.refreshSync(ctx); rerr != nil {
				return nil, err
			}
			newEntry, perr := c.pickClient(ctx, pol)
			if perr != nil {
				return nil, err
			}
			entry = newEntry
			continue
		}

		if redirect, ok := protoerr.ParseRedirect(err); ok {
			next, rerr := c.pool.get(ctx, addrFromString(redirect.Addr))
			if rerr != nil {
				return nil, rerr
			}
			if redirect.Kind == "MOVED" {
				// A MOVED reply means our slot map is stale; refresh in
				// the background is triggered, but this command proceeds
				// immediately against the authoritative node.
				go c.triggerBackgroundRefresh()
				entry = next
				continue
			}
			// ASK: retry once against the target with ASKING first,
			// without updating the slot map — an ASK redirect is a
			// one-off hop, not a confirmed ownership change.
			entry = next
			asking = true
			continue
		}

		if protoerr.IsTryAgain(err) || protoerr.IsClusterDown(err) {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		// Any other server error is a well-formed reply, not a routing
		// failure: surface it directly.
		return nil, err
	}
	return nil, ErrTooManyRedirects
}

func (c *Cluster) handleNodeError(entry *nodeEntry, err error) error {
	if protoerr.IsConnectionBroken(err) {
		c.pool.onConnectionError(entry.conn.Addr(), err)
	}
	return err
}

func (c *Cluster) triggerBackgroundRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.refreshSync(ctx); err != nil {
		c.events.emitError(err, "")
	}
}

func addrFromString(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		return Addr{Host: s}
	}
	return a
}
