// Package cache ERP 查询结果缓存（内存或 Redis）
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL 默认过期时间
const DefaultTTL = 10 * time.Minute

// Cache 字节缓存；未命中时返回 (nil, false, nil)
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON 读取并解码
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 编码并写入
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Fetch 先查缓存，未命中时调用 load 并写回；缓存读写失败不影响结果
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		if ok, err := GetJSON(ctx, c, key, &v); err == nil && ok {
			return v, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		_ = SetJSON(ctx, c, key, v, ttl)
	}
	return v, nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory 进程内缓存
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory 创建内存缓存
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// ObrasKey 项目列表缓存键
func ObrasKey(empresa string) string {
	return fmt.Sprintf("erp:obras:%s", empresa)
}

// UnitsKey 单元明细缓存键
func UnitsKey(empresa, codigoObra string) string {
	return fmt.Sprintf("erp:unidades:%s:%s", empresa, codigoObra)
}

// CustomFieldsKey 自定义字段缓存键
func CustomFieldsKey(empresa, codigoObra string) string {
	return fmt.Sprintf("erp:campos:%s:%s", empresa, codigoObra)
}

// UnitStatusesKey 目标状态列表缓存键
func UnitStatusesKey() string {
	return "erp:status-unidades"
}
