package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "awaybot:lock:"
	claimPrefix = "awaybot:claim:"
)

// releaseScript borra la clave sólo si sigue siendo nuestra.
const releaseScript = `
local key = KEYS[1]   -- awaybot:lock:{guild}:{user}
local token = ARGV[1]

if redis.call('GET', key) == token then
  return redis.call('DEL', key)
end
return 0
`

var release = redis.NewScript(releaseScript)

// RedisLocker coordina varias instancias del bot con SET NX PX. El TTL acota
// cuánto puede quedar tomada una clave si el proceso muere.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

// OpenRedis parsea la URL y verifica la conexión.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	t := time.NewTicker(l.retry)
	defer t.Stop()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// el ctx del llamador puede estar vencido; la liberación usa el suyo
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = release.Run(rctx, l.client, []string{k}, token).Err()
		})
	}, nil
}

// Claim toma key por ttl sin liberarla; sólo la primera instancia gana.
func (l *RedisLocker) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, claimPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}
