package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// memRedis is an in-memory RedisClient for unit tests. Expirations are not
// simulated; tests control state directly.
type memRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
	err    error // returned by every call when set
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memRedis) Ping(ctx context.Context) error { return m.err }

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := value.(string)
	m.data[key] = s
	return nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRedis) Expire(ctx context.Context, key string, exp time.Duration) error { return m.err }

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		delete(m.counts, k)
	}
	return nil
}

func (m *memRedis) Close() error { return nil }

type countingFeed struct {
	rate  float64
	err   error
	calls int
}

func (f *countingFeed) ONEUSD(ctx context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

func TestPriceCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	client := newMemRedis()
	upstream := &countingFeed{rate: 0.0123}
	cache := NewPriceCache(client, upstream, time.Minute)

	for i := 0; i < 3; i++ {
		rate, err := cache.ONEUSD(ctx)
		if err != nil {
			t.Fatalf("ONEUSD: %v", err)
		}
		if rate != 0.0123 {
			t.Errorf("rate = %f", rate)
		}
	}
	if upstream.calls != 1 {
		t.Errorf("upstream called %d times, want 1", upstream.calls)
	}
}

func TestPriceCacheFallsThroughWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	client := newMemRedis()
	client.err = errors.New("connection refused")
	upstream := &countingFeed{rate: 0.02}
	cache := NewPriceCache(client, upstream, time.Minute)

	rate, err := cache.ONEUSD(ctx)
	if err != nil {
		t.Fatalf("ONEUSD with redis down: %v", err)
	}
	if rate != 0.02 || upstream.calls != 1 {
		t.Errorf("rate = %f, upstream calls = %d", rate, upstream.calls)
	}
}

func TestPriceCacheIgnoresGarbage(t *testing.T) {
	ctx := context.Background()
	client := newMemRedis()
	client.data[oneUSDKey] = "not-a-number"
	upstream := &countingFeed{rate: 0.03}
	cache := NewPriceCache(client, upstream, time.Minute)

	rate, err := cache.ONEUSD(ctx)
	if err != nil {
		t.Fatalf("ONEUSD: %v", err)
	}
	if rate != 0.03 || upstream.calls != 1 {
		t.Errorf("rate = %f, upstream calls = %d", rate, upstream.calls)
	}
}

func TestPriceCacheUpstreamError(t *testing.T) {
	cache := NewPriceCache(newMemRedis(), &countingFeed{err: errors.New("api down")}, time.Minute)
	if _, err := cache.ONEUSD(context.Background()); err == nil {
		t.Fatal("upstream error was swallowed")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(newMemRedis())
	key := UserCommandKey(7, "message")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d blocked: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Error("fourth request in window was allowed")
	}

	// Another user is unaffected.
	ok, _ = limiter.Allow(ctx, UserCommandKey(8, "message"), 3, time.Minute)
	if !ok {
		t.Error("unrelated user was rate limited")
	}
}

func TestUserCommandKey(t *testing.T) {
	if got := UserCommandKey(42, "message"); got != "rate_limit:42:message" {
		t.Errorf("key = %q", got)
	}
}
