package clusterkv

import "context"

// The wrapper methods below are thin conveniences over Exec/execMultiKey.
// Each resolves its own routing key, so callers never have to compute a
// hash slot by hand.

func (c *Cluster) Get(ctx context.Context, key string) (interface{}, error) {
	return c.Exec(ctx, "GET", key, []interface{}{"GET", key})
}

func (c *Cluster) Set(ctx context.Context, key string, value interface{}) (interface{}, error) {
	return c.Exec(ctx, "SET", key, []interface{}{"SET", key, value})
}

func (c *Cluster) Del(ctx context.Context, keys ...string) (interface{}, error) {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return c.execMultiKey(ctx, "DEL", args)
}

func (c *Cluster) MGet(ctx context.Context, keys ...string) (interface{}, error) {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return c.execMultiKey(ctx, "MGET", args)
}

func (c *Cluster) MSet(ctx context.Context, pairs ...interface{}) (interface{}, error) {
	return c.execMultiKey(ctx, "MSET", pairs)
}

func (c *Cluster) Exists(ctx context.Context, keys ...string) (interface{}, error) {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return c.execMultiKey(ctx, "EXISTS", args)
}

func (c *Cluster) Expire(ctx context.Context, key string, seconds int64) (interface{}, error) {
	return c.Exec(ctx, "EXPIRE", key, []interface{}{"EXPIRE", key, seconds})
}

func (c *Cluster) TTL(ctx context.Context, key string) (interface{}, error) {
	return c.Exec(ctx, "TTL", key, []interface{}{"TTL", key})
}

func (c *Cluster) Incr(ctx context.Context, key string) (interface{}, error) {
	return c.Exec(ctx, "INCR", key, []interface{}{"INCR", key})
}

func (c *Cluster) IncrBy(ctx context.Context, key string, delta int64) (interface{}, error) {
	return c.Exec(ctx, "INCRBY", key, []interface{}{"INCRBY", key, delta})
}

func (c *Cluster) HGet(ctx context.Context, key, field string) (interface{}, error) {
	return c.Exec(ctx, "HGET", key, []interface{}{"HGET", key, field})
}

func (c *Cluster) HSet(ctx context.Context, key, field string, value interface{}) (interface{}, error) {
	return c.Exec(ctx, "HSET", key, []interface{}{"HSET", key, field, value})
}

func (c *Cluster) HDel(ctx context.Context, key string, fields ...string) (interface{}, error) {
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, "HDEL", key)
	for _, f := range fields {
		args = append(args, f)
	}
	return c.Exec(ctx, "HDEL", key, args)
}

func (c *Cluster) HMGet(ctx context.Context, key string, fields ...string) (interface{}, error) {
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, "HMGET", key)
	for _, f := range fields {
		args = append(args, f)
	}
	return c.Exec(ctx, "HMGET", key, args)
}

func (c *Cluster) HMSet(ctx context.Context, key string, fieldValues ...interface{}) (interface{}, error) {
	args := make([]interface{}, 0, len(fieldValues)+2)
	args = append(args, "HMSET", key)
	args = append(args, fieldValues...)
	return c.Exec(ctx, "HMSET", key, args)
}
