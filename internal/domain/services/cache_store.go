package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"house-rent-service/internal/infrastructure/config"
)

// ErrCacheMiss 键不存在或已过期
var ErrCacheMiss = errors.New("cache: key not found")

// InterfaceCacheStore 缓存存储能力，由Redis或进程内存实现
type InterfaceCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// RedisCacheStore 基于Redis的缓存存储
type RedisCacheStore struct {
	Client *redis.Client
}

// NewRedisCacheStore 创建Redis缓存存储
func NewRedisCacheStore(cfg *config.Config) *RedisCacheStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisCacheStore{Client: client}
}

// NewRedisCacheStoreWithClient 使用已有客户端创建缓存存储
func NewRedisCacheStoreWithClient(client *redis.Client) *RedisCacheStore {
	return &RedisCacheStore{Client: client}
}

// 1 Get 读取并反序列化JSON值
func (s *RedisCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// 2 Set 以JSON格式写入并设置过期时间
func (s *RedisCacheStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, jsonValue, expiration).Err()
}

// 3 Delete 删除一个或多个键
func (s *RedisCacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}

// 4 Ping 检查连接
func (s *RedisCacheStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Close 关闭客户端
func (s *RedisCacheStore) Close() error {
	return s.Client.Close()
}

type memoryEntry struct {
	data       []byte
	expiration time.Time
}

// MemoryCacheStore 进程内缓存存储，用于未启用Redis的部署与测试
type MemoryCacheStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCacheStore 创建进程内缓存存储
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get 读取未过期的值
func (s *MemoryCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return ErrCacheMiss
	}
	if s.expired(item) {
		s.mu.Lock()
		// 读锁释放后该键可能已被重新写入，只删除仍然过期的条目
		if current, ok := s.items[key]; ok && s.expired(current) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (s *MemoryCacheStore) expired(item memoryEntry) bool {
	return !item.expiration.IsZero() && s.now().After(item.expiration)
}

// Set 写入值，expiration 为0表示不过期
func (s *MemoryCacheStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if expiration > 0 {
		entry.expiration = s.now().Add(expiration)
	}
	s.mu.Lock()
	s.items[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete 删除键
func (s *MemoryCacheStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

// Ping 内存存储始终可用
func (s *MemoryCacheStore) Ping(ctx context.Context) error {
	return nil
}

// Len 返回当前条目数（包含未清理的过期条目）
func (s *MemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// NewCacheStore 根据配置选择缓存实现，Redis不可达时回退到内存存储
func NewCacheStore(ctx context.Context, cfg *config.Config) InterfaceCacheStore {
	if !cfg.CacheEnabled {
		return NewMemoryCacheStore()
	}
	store := NewRedisCacheStore(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		cacheLog().WithError(err).Warn("Redis不可用，使用进程内缓存")
		_ = store.Close()
		return NewMemoryCacheStore()
	}
	return store
}
