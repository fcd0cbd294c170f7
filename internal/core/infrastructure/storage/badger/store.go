// Package badger 提供基于BadgerDB的键值存储实现
package badger

import (
	"context"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"
	badgerconfig "github.com/xchain/v1/internal/config/storage/badger"
	log "github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	storage "github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
)

// Store 实现KVStore接口
type Store struct {
	db     *badgerdb.DB
	config *badgerconfig.Config
	logger log.Logger
}

// New 创建BadgerDB存储实例
func New(config *badgerconfig.Config, logger log.Logger) (storage.KVStore, error) {
	var opts badgerdb.Options
	if config.IsInMemory() {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		dataDir := config.GetPath()
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("创建BadgerDB数据目录失败: %w", err)
		}
		opts = badgerdb.DefaultOptions(dataDir)
		opts.SyncWrites = config.IsSyncWritesEnabled()
		opts.MemTableSize = config.GetMemTableSize()
	}
	// 核心状态量小，统一使用保守的缓存配置
	opts.BlockCacheSize = 64 << 20
	opts.IndexCacheSize = 64 << 20
	opts.NumMemtables = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}

	logger.Infof("BadgerDB存储初始化完成: path=%s in_memory=%v", config.GetPath(), config.IsInMemory())
	return &Store{db: db, config: config, logger: logger}, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("关闭BadgerDB存储")
	return s.db.Close()
}

// Get 获取指定键的值，键不存在时返回(nil, nil)
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取键失败: %w", err)
	}
	return value, nil
}

// Set 设置键值对
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete 删除指定键
func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(key)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Exists 检查键是否存在
func (s *Store) Exists(ctx context.Context, key []byte) (bool, error) {
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PrefixScan 按前缀扫描键值对
func (s *Store) PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(item.KeyCopy(nil))] = value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("前缀扫描失败: %w", err)
	}
	return result, nil
}

// RunInTransaction 在单个原子事务中执行fn
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(&transaction{txn: txn})
	})
}

// transaction 事务句柄，包装badger事务
type transaction struct {
	txn *badgerdb.Txn
}

// Get 事务内读取
func (t *transaction) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set 事务内写入
func (t *transaction) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

// Delete 事务内删除
func (t *transaction) Delete(key []byte) error {
	err := t.txn.Delete(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil
	}
	return err
}

// badgerLogger 将badger内部日志桥接到系统日志
type badgerLogger struct {
	logger log.Logger
}

func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger.With("module", "storage")}
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }
