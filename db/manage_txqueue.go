package db

import (
	"encoding/binary"
	"fmt"

	"sealedtx/keys"
	"sealedtx/txqueue"
)

var _ txqueue.Store = (*Manager)(nil)

// Push 持久化一个待解密条目，key 为 v1_txqueue_<seq>
func (manager *Manager) Push(e *txqueue.Entry) error {
	data, err := e.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode queue entry: %w", err)
	}
	seq, err := manager.NextIndex()
	if err != nil {
		return err
	}
	return manager.WriteBatch([]WriteTask{setTask(keys.KeyTxQueue(seq), data)})
}

// Entries 按入队顺序读出全部条目
func (manager *Manager) Entries() ([]*txqueue.Entry, error) {
	kvs, err := manager.ScanKVWithLimit(keys.KeyTxQueuePrefix(), 0)
	if err != nil {
		return nil, err
	}
	out := make([]*txqueue.Entry, 0, len(kvs))
	for _, kv := range kvs {
		e, err := txqueue.UnmarshalEntry(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("decode queue entry %s: %w", kv.Key, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Truncate 删除最早的 n 个条目
func (manager *Manager) Truncate(n int) error {
	if n <= 0 {
		return nil
	}
	kvs, err := manager.ScanKVWithLimit(keys.KeyTxQueuePrefix(), n)
	if err != nil {
		return err
	}
	batch := make([]WriteTask, 0, len(kvs))
	for _, kv := range kvs {
		batch = append(batch, deleteTask(kv.Key))
	}
	if err := manager.WriteBatch(batch); err != nil {
		return err
	}
	manager.Logger.Debug("[TxQueue] truncated %d entries", len(batch))
	return nil
}

// Len counts queued entries without reading values.
func (manager *Manager) Len() (int, error) {
	return manager.CountPrefix(keys.KeyTxQueuePrefix())
}

// SetQueueHeight 记录最近一次入队所在高度
func (manager *Manager) SetQueueHeight(height uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return manager.WriteBatch([]WriteTask{setTask(keys.KeyTxQueueHeight(), buf[:])})
}

// QueueHeight 读取 SetQueueHeight 写入的高度，未写过时为 0
func (manager *Manager) QueueHeight() (uint64, error) {
	v, err := manager.Get(keys.KeyTxQueueHeight())
	if err != nil || len(v) == 0 {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("corrupt queue height: %d bytes", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}
