package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/hasti304/ai-pdf-rag/internal/store"
)

// KVGet retrieves a value by key.
func (s *Store) KVGet(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(s.keyPrefix + key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// KVSet stores a value at the given key.
func (s *Store) KVSet(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(s.keyPrefix + key).Value(string(value)).Build()
	return s.do(ctx, cmd).Error()
}

// KVSetWithTTL stores a value with an expiration.
func (s *Store) KVSetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(s.keyPrefix + key).Value(string(value)).Ex(ttl).Build()
	return s.do(ctx, cmd).Error()
}

// KVDel removes a key.
func (s *Store) KVDel(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(s.keyPrefix + key).Build()
	return s.do(ctx, cmd).Error()
}

// KVScan returns all keys matching the pattern (prefix stripped).
func (s *Store) KVScan(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.scanKeys(ctx, s.keyPrefix+pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k[len(s.keyPrefix):]
	}
	return out, nil
}
