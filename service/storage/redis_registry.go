package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"PRelay/logger"
	redis2 "PRelay/service/storage/redis"
	"PRelay/tools/errs"
)

// ===== redis-backed registry =====

type RedisRegistryConf struct {
	TTL time.Duration // record lifetime, DefaultConnTTL when zero
}

type RedisRegistry struct {
	conf RedisRegistryConf
}

func NewRedisRegistry(conf RedisRegistryConf) *RedisRegistry {
	if conf.TTL <= 0 {
		conf.TTL = DefaultConnTTL
	}
	return &RedisRegistry{conf: conf}
}

func (r *RedisRegistry) Record(ctx context.Context, info ConnectionInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return errs.WrapMsg(err, "marshal connection", "connId", info.ConnID)
	}
	if err := redis2.GetKV().Set(ctx, ConnKey(info.ConnID), b, r.conf.TTL).Err(); err != nil {
		return errs.WrapMsg(err, "record connection", "connId", info.ConnID)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, connID string) error {
	if err := redis2.GetKV().Del(ctx, ConnKey(connID)).Err(); err != nil {
		return errs.WrapMsg(err, "remove connection", "connId", connID)
	}
	return nil
}

// Scan walks every connection key. Records that fail to decode are
// deleted in place and skipped, the walk itself keeps going.
func (r *RedisRegistry) Scan(ctx context.Context) ([]ConnectionInfo, error) {
	kv := redis2.GetKV()
	out := make([]ConnectionInfo, 0, 64)

	iter := kv.Scan(ctx, 0, connKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := kv.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// expired between SCAN and GET
				continue
			}
			return nil, errs.WrapMsg(err, "read connection", "key", key)
		}

		var info ConnectionInfo
		if err := json.Unmarshal(val, &info); err != nil || info.ConnID == "" {
			logger.Warnf("[registry] corrupt record at %s, deleting", key)
			if delErr := kv.Del(ctx, key).Err(); delErr != nil {
				logger.Warnf("[registry] delete corrupt %s: %v", key, delErr)
			}
			continue
		}
		out = append(out, info)
	}
	if err := iter.Err(); err != nil {
		return nil, errs.WrapMsg(err, "scan connections")
	}
	return out, nil
}
