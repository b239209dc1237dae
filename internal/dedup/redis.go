package dedup

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// LeaseStore is the slice of redisstore.Store the Redis locker needs.
type LeaseStore interface {
	AcquireLease(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, token string) error
}

// RedisLocker shares leases between process instances. The TTL bounds how
// long a crashed holder can block a key.
type RedisLocker struct {
	store  LeaseStore
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisLocker(store LeaseStore, prefix string, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 330 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{store: store, prefix: prefix, ttl: ttl, log: log}
}

// redisKey hashes the caller key; message content can be arbitrarily long.
func (r *RedisLocker) redisKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (Release, bool, error) {
	rk := r.redisKey(key)
	token := uuid.NewString()

	ok, err := r.store.AcquireLease(ctx, rk, token, r.ttl)
	if err != nil || !ok {
		return nil, false, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may already be cancelled
			cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := r.store.ReleaseLease(cctx, rk, token); err != nil {
				r.log.Warn("release dedup lease failed", zap.String("lease", rk), zap.Error(err))
			}
		})
	}, true, nil
}
