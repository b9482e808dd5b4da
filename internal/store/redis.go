package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const changeChannelPrefix = "store:"

// RedisStore keeps every path as a Redis key holding a JSON document.
// Counters are plain integer keys driven by INCR, which gives the atomic
// read-modify-write the identifier issuer depends on. Writes are fanned
// out on pub/sub channels so subscribers see changes live.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the Redis backend.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, path string, dest any) error {
	data, err := s.client.Get(ctx, path).Result()
	if err == redis.Nil {
		return ErrPathNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := s.client.Set(ctx, path, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// Change notification is best-effort; a missed publish only affects
	// live subscribers, never the persisted value.
	s.client.Publish(ctx, changeChannelPrefix+path, data)
	return nil
}

func (s *RedisStore) Push(ctx context.Context, collectionPath string, value any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collectionPath+"/"+id, value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) AtomicIncrement(ctx context.Context, counterPath string) (int64, error) {
	n, err := s.client.Incr(ctx, counterPath).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", counterPath, err)
	}
	return n, nil
}

func (s *RedisStore) List(ctx context.Context, collectionPath string) (map[string]json.RawMessage, error) {
	prefix := collectionPath + "/"
	out := make(map[string]json.RawMessage)

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, prefix)
		// Skip grandchildren: List is a single-level collection read.
		if strings.Contains(id, "/") {
			continue
		}
		data, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		out[id] = json.RawMessage(data)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", collectionPath, err)
	}
	return out, nil
}

// Subscribe consumes change notifications for every path under pathPrefix
// until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context, pathPrefix string, onChange ChangeHandler) error {
	sub := s.client.PSubscribe(ctx, changeChannelPrefix+pathPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed for %s", pathPrefix)
			}
			path := strings.TrimPrefix(msg.Channel, changeChannelPrefix)
			onChange(path, json.RawMessage(msg.Payload))
		}
	}
}
