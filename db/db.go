package db

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v2"

	"sealedtx/config"
	"sealedtx/keys"
	"sealedtx/logs"
)

// maxCountPerTxn 单个 badger 事务最多写入的条数，超过则拆分
const maxCountPerTxn = 1000

var ErrClosed = errors.New("db: manager closed")

// Manager wraps a BadgerDB instance. All access goes through mu so that
// Close can run concurrently with readers.
type Manager struct {
	Db     *badger.DB
	mu     sync.RWMutex
	seq    *badger.Sequence // 队列自增发号器
	Logger logs.Logger
	cfg    config.QueueConfig
}

// NewManager 以默认配置打开 path 下的数据库
func NewManager(path string, logger logs.Logger) (*Manager, error) {
	cfg := config.DefaultConfig().Queue
	cfg.Backend = config.QueueBackendBadger
	cfg.Path = path
	return NewManagerWithConfig(cfg, logger)
}

// NewManagerWithConfig 按 QueueConfig 打开数据库
func NewManagerWithConfig(cfg config.QueueConfig, logger logs.Logger) (*Manager, error) {
	if logger == nil {
		logger = logs.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("db: empty path")
	}
	if cfg.SequenceBandwidth == 0 {
		cfg.SequenceBandwidth = 1000
	}
	// badger v2 不自动创建父目录，需要手动创建
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(cfg.Path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(keys.KeyTxQueueSeq()), cfg.SequenceBandwidth)
	if err != nil {
		_ = db.Close() // 清理已打开的数据库
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	logger.Info("[DB] opened %s", cfg.Path)
	return &Manager{
		Db:     db,
		seq:    seq,
		Logger: logger,
		cfg:    cfg,
	}, nil
}

// Close 释放发号器并关闭数据库，可重复调用
func (manager *Manager) Close() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.seq != nil {
		_ = manager.seq.Release() // 未用完的号段丢弃即可
		manager.seq = nil
	}
	if manager.Db != nil {
		if err := manager.Db.Close(); err != nil {
			manager.Logger.Error("[DB] close failed: %v", err)
		}
		manager.Db = nil
	}
}

// NextIndex 获取下一个自增索引，从 1 开始
func (manager *Manager) NextIndex() (uint64, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.seq == nil {
		return 0, ErrClosed
	}
	id, err := manager.seq.Next()
	if err != nil {
		return 0, err
	}
	return id + 1, nil
}

// Get 读取单个 key，不存在时返回 (nil, nil)
func (manager *Manager) Get(key string) ([]byte, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return nil, ErrClosed
	}
	var out []byte
	err := manager.Db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

// ScanKVWithLimit 按 key 升序扫描前缀，limit<=0 表示不限
func (manager *Manager) ScanKVWithLimit(prefix string, limit int) ([]KV, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return nil, ErrClosed
	}
	var out []KV
	err := manager.Db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, KV{Key: string(item.KeyCopy(nil)), Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountPrefix 统计前缀下的 key 数量，只遍历 key
func (manager *Manager) CountPrefix(prefix string) (int, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return 0, ErrClosed
	}
	n := 0
	err := manager.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// KV is one result of an ordered scan.
type KV struct {
	Key   string
	Value []byte
}

// WriteBatch 同步提交一组写请求，按条数拆成多个事务
func (manager *Manager) WriteBatch(batch []WriteTask) error {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return ErrClosed
	}
	for start := 0; start < len(batch); start += maxCountPerTxn {
		end := start + maxCountPerTxn
		if end > len(batch) {
			end = len(batch)
		}
		if err := manager.flushRange(batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (manager *Manager) flushRange(batch []WriteTask) error {
	return manager.Db.Update(func(txn *badger.Txn) error {
		for _, t := range batch {
			var err error
			switch t.Op {
			case OpSet:
				err = txn.Set(t.Key, t.Value)
			case OpDelete:
				err = txn.Delete(t.Key)
			default:
				err = fmt.Errorf("unknown write op %d", t.Op)
			}
			if err != nil {
				return fmt.Errorf("key %s: %w", t.Key, err)
			}
		}
		return nil
	})
}
