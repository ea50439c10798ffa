package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisStore layers periodic durable flushes over the in-memory copy. Reads
// and updates never touch redis on the hot path; the hash per namespace is
// written on Flush and read once at startup to seed the memory copy.
type RedisStore struct {
	*MemoryStore
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects the store to a redis backend and seeds the memory
// copy from the given namespaces. Seed failures are not fatal: the store
// starts empty and logs a warning (ConfigMissing semantics).
func NewRedisStore(ctx context.Context, client redis.UniversalClient, prefix string, namespaces ...string) (*RedisStore, error) {
	rs := &RedisStore{
		MemoryStore: NewMemoryStore(),
		client:      client,
		prefix:      prefix,
	}

	for _, ns := range namespaces {
		vals, err := client.HGetAll(ctx, rs.hashKey(ns)).Result()
		if err != nil {
			log.Warn().Err(err).Str("namespace", ns).Msg("state seed unavailable, starting empty")
			continue
		}
		for key, raw := range vals {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Warn().Str("namespace", ns).Str("key", key).Str("value", raw).Msg("skipping unparsable state entry")
				continue
			}
			if err := rs.MemoryStore.SetFloat(ctx, ns, key, v); err != nil {
				return nil, err
			}
		}
	}

	return rs, nil
}

// Flush writes the full in-memory state to redis hashes.
func (rs *RedisStore) Flush(ctx context.Context) error {
	for ns, vals := range rs.snapshot() {
		if len(vals) == 0 {
			continue
		}
		fields := make(map[string]interface{}, len(vals))
		for k, v := range vals {
			fields[k] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := rs.client.HSet(ctx, rs.hashKey(ns), fields).Err(); err != nil {
			return fmt.Errorf("failed to flush namespace %s: %w", ns, err)
		}
	}
	return nil
}

// Close flushes once more and closes the client.
func (rs *RedisStore) Close(ctx context.Context) error {
	if err := rs.Flush(ctx); err != nil {
		return err
	}
	return rs.client.Close()
}

// RunFlushLoop flushes on the given interval until ctx is done.
func (rs *RedisStore) RunFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rs.Flush(ctx); err != nil {
				log.Warn().Err(err).Msg("state flush failed")
			}
		}
	}
}

func (rs *RedisStore) hashKey(ns string) string {
	return rs.prefix + ":" + ns
}
