package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thuhak/pbs-cache/pkg/config"
	"github.com/thuhak/pbs-cache/pkg/defaults"
	"github.com/thuhak/pbs-cache/pkg/errors"
)

// rootPath addresses the whole stored document.
const rootPath = "$"

// RedisStore publishes and queries documents in a RedisJSON instance.
type RedisStore struct {
	name         string
	rdb          *redis.Client
	writeTimeout time.Duration
	readTimeout  time.Duration
}

// NewRedisStore connects a store from its configuration block. The
// connection is lazy: failures surface on first use, not here.
func NewRedisStore(cfg config.StoreConfig) *RedisStore {
	return &RedisStore{
		name: cfg.Name,
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		writeTimeout: defaults.StoreWriteTimeout,
		readTimeout:  defaults.StoreReadTimeout,
	}
}

// Name identifies the store in logs.
func (s *RedisStore) Name() string {
	return s.name
}

// Publish replaces the JSON document stored under key.
func (s *RedisStore) Publish(ctx context.Context, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodePublication, "document not serializable", err)
	}

	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.rdb.JSONSet(wctx, key, rootPath, string(payload)).Err(); err != nil {
		return errors.WrapWithContext(errors.ErrCodePublication,
			"redis write failed", err, map[string]any{"store": s.name, "key": key})
	}
	return nil
}

// Query evaluates a JSONPath expression against the document stored
// under key and returns the raw JSON result. RedisJSON wraps results of
// "$"-rooted paths in an array; callers unwrap as needed.
func (s *RedisStore) Query(ctx context.Context, key string, paths ...string) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	res, err := s.rdb.JSONGet(rctx, key, paths...).Result()
	if err == redis.Nil || res == "" {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"document not found", map[string]any{"key": key})
	}
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable,
			"redis read failed", err, map[string]any{"store": s.name, "key": key})
	}
	return []byte(res), nil
}

// QueryOne evaluates a JSONPath expression expected to match a single
// value and unwraps the RedisJSON result array around it.
func (s *RedisStore) QueryOne(ctx context.Context, key, path string) (json.RawMessage, error) {
	raw, err := s.Query(ctx, key, path)
	if err != nil {
		return nil, err
	}
	var matches []json.RawMessage
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "malformed store result", err)
	}
	if len(matches) == 0 {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"path matched nothing", map[string]any{"key": key, "path": path})
	}
	return matches[0], nil
}

// Timestamp reads the freshness timestamp of the document under key.
func (s *RedisStore) Timestamp(ctx context.Context, key string) (int64, error) {
	match, err := s.QueryOne(ctx, key, "$.timestamp")
	if err != nil {
		return 0, err
	}
	var ts int64
	if err := json.Unmarshal(match, &ts); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "malformed timestamp", err)
	}
	return ts, nil
}

// Ping verifies the store connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	if err := s.rdb.Ping(rctx).Err(); err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable,
			"redis unreachable", err, map[string]any{"store": s.name})
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
