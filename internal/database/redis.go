package database

import (
	"sync"

	"rentbook/pkg/config"
	"rentbook/pkg/lock"
)

var (
	lockerInstance lock.Locker
	redisLocker    *lock.RedisLocker
	lockerOnce     sync.Once
)

// GetLocker 获取分布式锁的单例实例，未启用Redis时退化为进程内锁
func GetLocker() lock.Locker {
	lockerOnce.Do(func() {
		cfg := config.GetConfig()
		if !cfg.Redis.Enabled {
			lockerInstance = lock.NewLocalLocker()
			return
		}
		redisLocker = lock.NewRedisLocker(&lock.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		lockerInstance = redisLocker
	})
	return lockerInstance
}

// CloseLocker 关闭Redis连接
func CloseLocker() error {
	if redisLocker != nil {
		return redisLocker.Close()
	}
	return nil
}
