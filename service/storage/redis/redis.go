package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	redisMgr  *Manager
)

// Manager holds the three logical connections the relay needs. A client
// in subscribe mode cannot issue regular commands, so publish, subscribe
// and key/value traffic each get their own client.
type Manager struct {
	pub *redis.Client
	sub *redis.Client
	kv  *redis.Client
}

// Config for InitRedis.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func newClient(c Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})
}

// InitRedis initializes the manager (singleton). All three clients must
// answer a ping before the manager is published.
func InitRedis(c Config) error {
	var initErr error
	redisOnce.Do(func() {
		m := &Manager{
			pub: newClient(c),
			sub: newClient(c),
			kv:  newClient(c),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		for _, cli := range []*redis.Client{m.pub, m.sub, m.kv} {
			if err := cli.Ping(ctx).Err(); err != nil {
				initErr = err
				_ = m.close()
				return
			}
		}

		redisMgr = m
	})
	return initErr
}

// GetPub returns the publish client.
func GetPub() *redis.Client {
	return get().pub
}

// GetSub returns the client reserved for subscribe mode.
func GetSub() *redis.Client {
	return get().sub
}

// GetKV returns the key/value client.
func GetKV() *redis.Client {
	return get().kv
}

func get() *Manager {
	if redisMgr == nil {
		panic("Redis not initialized, call InitRedis first")
	}
	return redisMgr
}

// HealthCheck pings all three clients.
func HealthCheck(ctx context.Context) error {
	m := get()
	for _, cli := range []*redis.Client{m.pub, m.sub, m.kv} {
		if err := cli.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) close() error {
	var firstErr error
	for _, cli := range []*redis.Client{m.pub, m.sub, m.kv} {
		if cli == nil {
			continue
		}
		if err := cli.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CloseRedis closes all three clients, returning the first error seen.
func CloseRedis() error {
	if redisMgr != nil {
		return redisMgr.close()
	}
	return nil
}
