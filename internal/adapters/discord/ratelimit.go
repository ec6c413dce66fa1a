package discord

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jose-valero/away-tracker-bot/internal/infra/metrics"
	"golang.org/x/time/rate"
)

const limiterCacheSize = 4096

// userLimiter: token bucket por usuario; el LRU acota la memoria.
type userLimiter struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *rate.Limiter]
	every time.Duration
	burst int
}

func newUserLimiter(every time.Duration, burst int) *userLimiter {
	cache, _ := lru.New[string, *rate.Limiter](limiterCacheSize)
	return &userLimiter{cache: cache, every: every, burst: max(1, burst)}
}

func (l *userLimiter) Allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.cache.Get(userID)
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.cache.Add(userID, lim)
	}
	l.mu.Unlock()

	if !lim.Allow() {
		metrics.RateLimited.Inc()
		return false
	}
	return true
}
