package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"phone-otp-auth/backend/internal/attempt/domain"
)

const noPhone = "-"

// MinKeyTTL keeps every failure alive through the limiter's 1h window.
const MinKeyTTL = time.Hour

// RedisLedger stores each (source, phone, kind) triple as a sorted set scored by unix milliseconds.
type RedisLedger struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisLedger returns a Ledger on redisClient. Keys expire retention after their last append
// so abandoned triples do not accumulate when the purge job is not running.
// A retention below MinKeyTTL is raised to it.
func NewRedisLedger(redisClient redis.UniversalClient, prefix string, retention time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "fa"
	}
	if retention < MinKeyTTL {
		retention = MinKeyTTL
	}
	return &RedisLedger{redis: redisClient, prefix: prefix, retention: retention}
}

// key escapes phone and source so neither can forge a separator.
func (l *RedisLedger) key(k domain.Key) string {
	phone := noPhone
	if k.PhoneNumber != nil {
		phone = url.QueryEscape(*k.PhoneNumber)
	}
	return l.prefix + ":" + string(k.Kind) + ":" + phone + ":" + url.QueryEscape(k.Source)
}

func (l *RedisLedger) Append(ctx context.Context, a *domain.FailedAttempt) error {
	key := l.key(domain.Key{Source: a.Source, PhoneNumber: a.PhoneNumber, Kind: a.Kind})
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(a.CreatedAt.UnixMilli()), Member: uuid.NewString()})
		pipe.Expire(ctx, key, l.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	return nil
}

func (l *RedisLedger) CountSince(ctx context.Context, key domain.Key, since time.Time) (int, error) {
	n, err := l.redis.ZCount(ctx, l.key(key), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("ledger count: %w", err)
	}
	return int(n), nil
}

// DeleteBefore walks every ledger key with SCAN and trims entries scored below cutoff.
func (l *RedisLedger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	max := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	var total int64
	iter := l.redis.Scan(ctx, 0, l.prefix+":*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := l.redis.ZRemRangeByScore(ctx, iter.Val(), "-inf", max).Result()
		if err != nil {
			return total, fmt.Errorf("ledger purge: %w", err)
		}
		total += n
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("ledger scan: %w", err)
	}
	return total, nil
}
