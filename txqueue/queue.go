package txqueue

import (
	"sync"

	"sealedtx/logs"
)

// Store persists the queue across heights. Entries come back in push order.
type Store interface {
	Push(e *Entry) error
	Entries() ([]*Entry, error)
	// Truncate drops the first n entries.
	Truncate(n int) error
	Len() (int, error)
}

// MemStore 内存实现，测试和单机模式使用
type MemStore struct {
	mu      sync.Mutex
	entries []*Entry
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Push(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemStore) Entries() ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Entry(nil), m.entries...), nil
}

func (m *MemStore) Truncate(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.entries) {
		n = len(m.entries)
	}
	if n > 0 {
		m.entries = append([]*Entry(nil), m.entries[n:]...)
	}
	return nil
}

func (m *MemStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Queue is a FIFO of entries owned by a single proposal call.
type Queue struct {
	entries []*Entry
}

// New returns a queue holding entries in the given order.
func New(entries ...*Entry) *Queue {
	return &Queue{entries: append([]*Entry(nil), entries...)}
}

// Snapshot loads the current contents of a store. Draining the snapshot
// leaves the store untouched.
func Snapshot(s Store) (*Queue, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	logs.Debug("[TxQueue] snapshot of %d entries", len(entries))
	return &Queue{entries: entries}, nil
}

// Push 追加到队尾
func (q *Queue) Push(e *Entry) {
	q.entries = append(q.entries, e)
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Iter calls fn on every entry in enqueue order without removing any. It
// stops early when fn returns false.
func (q *Queue) Iter(fn func(*Entry) bool) {
	for _, e := range q.entries {
		if !fn(e) {
			return
		}
	}
}

// Iterate returns the entries in enqueue order without removing them.
func (q *Queue) Iterate() []*Entry {
	return append([]*Entry(nil), q.entries...)
}

// Drain 按入队顺序取出全部条目，之后队列为空
func (q *Queue) Drain() []*Entry {
	out := q.entries
	q.entries = nil
	return out
}

// Finalize trims the n entries resolved by the proposal at the previous
// height from the store, then appends the wrappers committed in the current
// block.
func Finalize(s Store, resolved int, committed []*Entry) error {
	if err := s.Truncate(resolved); err != nil {
		return err
	}
	for _, e := range committed {
		if err := s.Push(e); err != nil {
			return err
		}
	}
	logs.Debug("[TxQueue] finalized: resolved=%d committed=%d", resolved, len(committed))
	return nil
}
