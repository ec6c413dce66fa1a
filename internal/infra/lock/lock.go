// Package lock serializa las operaciones de contabilidad por (guild, user).
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker bloquea hasta obtener la clave o hasta que ctx expire. unlock es
// idempotente.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Claimer reparte trabajos programados entre instancias: la primera que
// reclama la clave lo corre, el resto lo salta hasta que vence el ttl.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

func Key(guildID, userID string) string { return guildID + ":" + userID }

// MemLocker sirve para una sola instancia del bot.
type MemLocker struct {
	mu     sync.Mutex
	slots  map[string]*slot
	claims map[string]time.Time
	now    func() time.Time
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemLocker() *MemLocker {
	return &MemLocker{slots: map[string]*slot{}, claims: map[string]time.Time{}, now: time.Now}
}

func (l *MemLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

// release libera la referencia; el slot se borra cuando nadie lo espera.
func (l *MemLocker) release(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

func (l *MemLocker) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, exp := range l.claims {
		if !now.Before(exp) {
			delete(l.claims, k)
		}
	}
	if _, taken := l.claims[key]; taken {
		return false, nil
	}
	l.claims[key] = now.Add(ttl)
	return true, nil
}

// held es para tests.
func (l *MemLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
