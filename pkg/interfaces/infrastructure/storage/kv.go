// Package storage 定义键值存储接口
// 核心全部持久化状态经由本接口读写；键按组件前缀命名空间划分，
// 值为确定性编码后的字节串
package storage

import "context"

// KVStore 键值存储接口
// 生产实现基于BadgerDB（internal/core/infrastructure/storage/badger），
// 测试实现基于内存映射（internal/core/infrastructure/storage/memory）
type KVStore interface {
	// Close 关闭存储并释放资源
	Close() error

	// Get 获取指定键的值
	// 键不存在时返回 (nil, nil)
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 设置键值对，已存在时覆盖
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除指定键，键不存在时不报错
	Delete(ctx context.Context, key []byte) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// PrefixScan 按前缀扫描
	// 返回map的键为完整键的字符串表示
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// RunInTransaction 在单个原子事务中执行fn
	// fn返回错误时全部变更回滚；状态机的apply步骤依赖此原子性
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Transaction 事务内的读写句柄
type Transaction interface {
	// Get 事务内读取，键不存在时返回 (nil, nil)
	Get(key []byte) ([]byte, error)

	// Set 事务内写入
	Set(key, value []byte) error

	// Delete 事务内删除
	Delete(key []byte) error
}
