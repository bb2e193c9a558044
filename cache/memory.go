package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultMemoryConfig 默认内存缓存配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		NumCounters: 100000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// Memory 基于 ristretto 的内存缓存，值以 JSON 保存
type Memory struct {
	client *ristretto.Cache
}

// NewMemory 创建新的内存缓存提供者
func NewMemory(config MemoryConfig) (*Memory, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{client: client}, nil
}

// Set 设置缓存项
func (m *Memory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if m.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 等待值被实际设置
		m.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (m *Memory) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrCacheMiss
	}
	return nil
}

// Delete 删除缓存项
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

// Close 关闭缓存
func (m *Memory) Close() error {
	m.client.Close()
	return nil
}

// Name 返回缓存提供者名称
func (m *Memory) Name() string {
	return "memory"
}
