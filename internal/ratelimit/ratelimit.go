// Package ratelimit limits requests per client. It uses a Redis fixed
// window when Redis is reachable so limits hold across instances, and
// per-client token buckets in process otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Backend() string
	Close() error
}

// New returns a Redis limiter when addr is set and answers a ping, and a
// local limiter otherwise.
func New(addr string, rpm int, logger *zap.SugaredLogger) Limiter {
	if addr == "" {
		return NewLocal(rpm)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("Redis unavailable; using in-process rate limiter", "addr", addr, "error", err)
		client.Close()
		return NewLocal(rpm)
	}

	logger.Infow("Using Redis rate limiter", "addr", addr, "rpm", rpm)
	return NewRedis(client, rpm)
}

// Local keeps a token bucket per client. Buckets idle for longer than
// idleTTL are dropped.
type Local struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	swept   time.Time
	idleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocal(rpm int) *Local {
	burst := rpm / 6 // Allow burst of 1/6th of rpm
	if burst < 1 {
		burst = 1
	}
	return &Local{
		limit:   rate.Limit(float64(rpm) / 60.0),
		burst:   burst,
		buckets: make(map[string]*bucket),
		swept:   time.Now(),
		idleTTL: 10 * time.Minute,
	}
}

func (l *Local) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.swept) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1), nil
}

func (l *Local) Backend() string { return "local" }

func (l *Local) Close() error { return nil }

// Redis counts requests per client in one-minute windows
type Redis struct {
	client *redis.Client
	rpm    int
	prefix string
	now    func() time.Time
}

func NewRedis(client *redis.Client, rpm int) *Redis {
	return &Redis{
		client: client,
		rpm:    rpm,
		prefix: "publicator:ratelimit:",
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	window := r.now().Unix() / 60
	redisKey := r.prefix + key + ":" + strconv.FormatInt(window, 10)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, 2*time.Minute)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	return incr.Val() <= int64(r.rpm), nil
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Close() error {
	return r.client.Close()
}
