package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis maps sets onto Redis SETs and bundles onto hashes, all under a common
// key prefix so several installations can share one server.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// NewRedisFromURL parses a redis:// URL and verifies connectivity.
func NewRedisFromURL(ctx context.Context, url, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) setKey(set string) string    { return r.prefix + "set:" + set }
func (r *Redis) bundleKey(key string) string { return r.prefix + "bundle:" + key }

func (r *Redis) Members(ctx context.Context, set string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.setKey(set)).Result()
	if err != nil {
		return nil, fmt.Errorf("read set %q: %w", set, err)
	}
	return members, nil
}

// ReplaceSet runs DEL + SADD in one MULTI/EXEC block.
func (r *Redis) ReplaceSet(ctx context.Context, set string, members []string) error {
	key := r.setKey(set)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			args := make([]any, 0, len(members))
			for _, m := range dedupe(members) {
				args = append(args, m)
			}
			pipe.SAdd(ctx, key, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace set %q: %w", set, err)
	}
	return nil
}

func (r *Redis) Bundle(ctx context.Context, key string) (Bundle, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.bundleKey(key)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read bundle %q: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return Bundle(fields), true, nil
}

func (r *Redis) PutBundle(ctx context.Context, key string, b Bundle) error {
	rk := r.bundleKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		if len(b) > 0 {
			args := make([]any, 0, 2*len(b))
			for k, v := range b {
				args = append(args, k, v)
			}
			pipe.HSet(ctx, rk, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write bundle %q: %w", key, err)
	}
	return nil
}

func (r *Redis) DeleteBundle(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.bundleKey(key)).Err(); err != nil {
		return fmt.Errorf("delete bundle %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
