package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker 互斥锁接口，用于多实例间的定时任务互斥
type Locker interface {
	// TryLock 尝试加锁，未获取到锁时 acquired 为 false
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// RedisLocker 基于 SET NX PX 的分布式锁
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// 仅删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLocker 创建Redis锁实例
func NewRedisLocker(config *Config) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "rentbook:lock"
	}

	return &RedisLocker{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Ping 测试Redis连接
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// TryLock 尝试加锁
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.prefix + ":" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// 使用独立context，避免调用方context已取消导致锁无法释放
		releaseScript.Run(context.Background(), l.client, []string{fullKey}, token)
	}
	return release, true, nil
}

// LocalLocker 进程内锁，未启用Redis时使用
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

// TryLock 尝试加锁，过期的锁视为已释放
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, held := l.locks[key]; held && l.now().Before(expiresAt) {
		return nil, false, nil
	}

	expiresAt := l.now().Add(ttl)
	l.locks[key] = expiresAt

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.locks[key]; ok && current.Equal(expiresAt) {
			delete(l.locks, key)
		}
	}
	return release, true, nil
}
