// Package memory 提供内存键值存储实现，主要用于测试
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
)

// Store 基于map的内存存储，实现KVStore接口
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New 创建内存存储实例
func New() storage.KVStore {
	return &Store{data: make(map[string][]byte)}
}

// Close 关闭存储
func (s *Store) Close() error {
	s.mu.Lock()
	s.data = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

// Get 获取指定键的值，键不存在时返回(nil, nil)
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set 设置键值对
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[string(key)] = stored
	return nil
}

// Delete 删除指定键
func (s *Store) Delete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

// Exists 检查键是否存在
func (s *Store) Exists(ctx context.Context, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

// PrefixScan 按前缀扫描键值对
func (s *Store) PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]byte)
	p := string(prefix)
	for k, v := range s.data {
		if strings.HasPrefix(k, p) {
			out := make([]byte, len(v))
			copy(out, v)
			result[k] = out
		}
	}
	return result, nil
}

// RunInTransaction 在单个原子事务中执行fn
// 写入先缓冲，fn成功后整体提交；fn返回错误则全部丢弃
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store:   s,
		pending: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k := range tx.deleted {
		delete(s.data, k)
	}
	for k, v := range tx.pending {
		s.data[k] = v
	}
	return nil
}

// transaction 内存事务，缓冲写入直到提交
type transaction struct {
	store   *Store
	pending map[string][]byte
	deleted map[string]bool
}

// Get 事务内读取，优先返回未提交的写入
func (t *transaction) Get(key []byte) ([]byte, error) {
	k := string(key)
	if t.deleted[k] {
		return nil, nil
	}
	if value, ok := t.pending[k]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}
	value, ok := t.store.data[k]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set 事务内写入
func (t *transaction) Set(key, value []byte) error {
	k := string(key)
	delete(t.deleted, k)
	stored := make([]byte, len(value))
	copy(stored, value)
	t.pending[k] = stored
	return nil
}

// Delete 事务内删除
func (t *transaction) Delete(key []byte) error {
	k := string(key)
	delete(t.pending, k)
	t.deleted[k] = true
	return nil
}
