package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemLockerSerializesSameKey(t *testing.T) {
	l := NewMemLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, Key("g1", "u1"))
			if err != nil {
				t.Errorf("Lock() error: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if n := l.held(); n != 0 {
		t.Errorf("slots left = %d, want 0", n)
	}
}

func TestMemLockerIndependentKeys(t *testing.T) {
	l := NewMemLocker()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	u1, err := l.Lock(ctx, Key("g1", "u1"))
	if err != nil {
		t.Fatalf("Lock(u1) error: %v", err)
	}
	defer u1()

	u2, err := l.Lock(ctx, Key("g1", "u2"))
	if err != nil {
		t.Fatalf("Lock(u2) should not block: %v", err)
	}
	u2()
}

func TestMemLockerHonoursContext(t *testing.T) {
	l := NewMemLocker()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock() // idempotente
	if n := l.held(); n != 0 {
		t.Errorf("slots left = %d, want 0", n)
	}
}

func setupRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, 5*time.Second)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestRedisLockerExclusive(t *testing.T) {
	l, mr := setupRedisLocker(t)
	key := Key("g1", "u1")

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if !mr.Exists(keyPrefix + key) {
		t.Fatal("lock key not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock() err = %v, want DeadlineExceeded", err)
	}

	unlock()
	if mr.Exists(keyPrefix + key) {
		t.Fatal("lock key not released")
	}

	again, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() after release error: %v", err)
	}
	again()
}

func TestRedisLockerExpiredTokenDoesNotReleaseNewHolder(t *testing.T) {
	l, mr := setupRedisLocker(t)
	key := Key("g1", "u1")

	stale, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	// el TTL vence y otra instancia toma la clave
	mr.FastForward(6 * time.Second)
	fresh, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() after expiry error: %v", err)
	}

	stale()
	if !mr.Exists(keyPrefix + key) {
		t.Fatal("stale unlock removed the new holder's key")
	}
	fresh()
	if mr.Exists(keyPrefix + key) {
		t.Fatal("fresh unlock did not release")
	}
}

func TestRedisUnlockConcurrentCallsAreSafe(t *testing.T) {
	l, mr := setupRedisLocker(t)
	key := Key("g1", "u1")

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()
	if mr.Exists(keyPrefix + key) {
		t.Fatal("lock key not released")
	}

	// un unlock tardío no puede soltar al siguiente dueño
	next, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock() after release error: %v", err)
	}
	unlock()
	if !mr.Exists(keyPrefix + key) {
		t.Fatal("repeated unlock released the next holder")
	}
	next()
}

func TestClaimFirstWins(t *testing.T) {
	redisLocker, mr := setupRedisLocker(t)
	mem := NewMemLocker()
	clock := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return clock }

	tests := []struct {
		name    string
		c       Claimer
		advance func(d time.Duration)
	}{
		{"memory", mem, func(d time.Duration) { clock = clock.Add(d) }},
		{"redis", redisLocker, mr.FastForward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := tt.c.Claim(ctx, "job:digest:202503101800", time.Minute)
			if err != nil || !ok {
				t.Fatalf("first Claim() = %v, %v", ok, err)
			}
			if ok, _ := tt.c.Claim(ctx, "job:digest:202503101800", time.Minute); ok {
				t.Error("second Claim() should lose")
			}
			if ok, _ := tt.c.Claim(ctx, "job:reminder:202503101800", time.Minute); !ok {
				t.Error("other keys are independent")
			}
			tt.advance(2 * time.Minute)
			if ok, _ := tt.c.Claim(ctx, "job:digest:202503101800", time.Minute); !ok {
				t.Error("Claim() after ttl should win again")
			}
		})
	}
}
