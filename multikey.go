package clusterkv

import (
	"context"

	"clusterkv/internal/cmdtable"
)

// execMultiKey splits a multi-key command into one Exec call per
// sub-command (each Interval-sized chunk of keyArgs), dispatching each
// along its own slot boundary, and merges the ordered results back with
// the command's Group function.
//
// keyArgs holds only the key (or key/value-pair) arguments, in the order
// the caller supplied them. Each sub-command is sent as the command name
// followed by its chunk, except that a split MGET sends one GET per key.
func (c *Cluster) execMultiKey(ctx context.Context, cmd string, keyArgs []interface{}) (interface{}, error) {
	d, known := cmdtable.Lookup(cmd)
	interval := 1
	if known && d.Interval > 0 {
		interval = d.Interval
	}
	if len(keyArgs) == 0 {
		return nil, &NoKeyError{Cmd: cmd}
	}

	if len(keyArgs) <= interval {
		key, ok := firstKeyArg(keyArgs)
		if !ok {
			return nil, &NoKeyError{Cmd: cmd}
		}
		full := append([]interface{}{cmd}, keyArgs...)
		return c.Exec(ctx, cmd, key, full)
	}

	// A per-key GET yields a single value, which is what Group expects
	// for each position of the merged MGET reply.
	subCmd := cmd
	if normalizeCmd(cmd) == "MGET" {
		subCmd = "GET"
	}

	var results []interface{}
	for i := 0; i+interval <= len(keyArgs); i += interval {
		chunk := keyArgs[i : i+interval]
		key, ok := firstKeyArg(chunk)
		if !ok {
			return nil, &NoKeyError{Cmd: cmd}
		}
		full := append([]interface{}{subCmd}, chunk...)
		res, err := c.Exec(ctx, subCmd, key, full)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if known && d.Group != nil {
		return d.Group(results), nil
	}
	return results, nil
}
