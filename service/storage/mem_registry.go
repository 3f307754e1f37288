package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// ===== in-memory registry =====

type MemRegistryConf struct {
	TTL   time.Duration    // record lifetime, DefaultConnTTL when zero
	Clock func() time.Time // injectable for expiry tests
}

// MemRegistry keeps raw bytes like the real backend, so expiry and
// corrupt-record handling behave the same way. Used by tests and by
// single-instance deployments without a shared backend.
type MemRegistry struct {
	conf MemRegistryConf

	mu   sync.RWMutex
	data map[string]memRecord
}

type memRecord struct {
	raw      []byte
	expireAt time.Time
}

func NewMemRegistry(conf MemRegistryConf) *MemRegistry {
	if conf.TTL <= 0 {
		conf.TTL = DefaultConnTTL
	}
	if conf.Clock == nil {
		conf.Clock = time.Now
	}
	return &MemRegistry{
		conf: conf,
		data: make(map[string]memRecord),
	}
}

func (r *MemRegistry) Record(ctx context.Context, info ConnectionInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return errs.WrapMsg(err, "marshal connection", "connId", info.ConnID)
	}
	r.mu.Lock()
	r.data[ConnKey(info.ConnID)] = memRecord{
		raw:      b,
		expireAt: r.conf.Clock().Add(r.conf.TTL),
	}
	r.mu.Unlock()
	return nil
}

func (r *MemRegistry) Remove(ctx context.Context, connID string) error {
	r.mu.Lock()
	delete(r.data, ConnKey(connID))
	r.mu.Unlock()
	return nil
}

func (r *MemRegistry) Scan(ctx context.Context) ([]ConnectionInfo, error) {
	now := r.conf.Clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ConnectionInfo, 0, len(r.data))
	for key, rec := range r.data {
		if !rec.expireAt.After(now) {
			delete(r.data, key)
			continue
		}
		var info ConnectionInfo
		if err := json.Unmarshal(rec.raw, &info); err != nil || info.ConnID == "" {
			logger.Warnf("[registry] corrupt record at %s, deleting", key)
			delete(r.data, key)
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// PutRaw writes an arbitrary value under key, bypassing the schema.
// Test hook for planting corrupt records.
func (r *MemRegistry) PutRaw(key string, raw []byte) {
	r.mu.Lock()
	r.data[key] = memRecord{
		raw:      append([]byte(nil), raw...),
		expireAt: r.conf.Clock().Add(r.conf.TTL),
	}
	r.mu.Unlock()
}

// Has reports whether key is still stored, expired or not.
func (r *MemRegistry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.data[key]
	return ok
}

// Len reports the number of stored records, expired or not.
func (r *MemRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
