package db

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedtx/keys"
	"sealedtx/logs"
	"sealedtx/tx"
	"sealedtx/txqueue"
)

func openTestDB(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(t.TempDir(), logs.NewNop())
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr
}

func testEntry(t *testing.T, code string) *txqueue.Entry {
	t.Helper()
	w := tx.NewTx(tx.NewWrapperTx(tx.Fee{Amount: uint256.NewInt(3), Token: "NAM"}, []byte("payer"), 1, 10, nil))
	w.SetCode(tx.NewCode([]byte(code)))
	w.SetData(tx.NewData([]byte("data")))
	e, err := txqueue.NewEntry(w)
	require.NoError(t, err)
	return e
}

// 测试 Push 与 Entries 保持入队顺序
func TestQueueStoreOrder(t *testing.T) {
	mgr := openTestDB(t)

	var want []*txqueue.Entry
	for _, c := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		e := testEntry(t, c)
		require.NoError(t, mgr.Push(e))
		want = append(want, e)
	}

	got, err := mgr.Entries()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	n, err := mgr.Len()
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
}

func TestQueueStoreTruncate(t *testing.T) {
	mgr := openTestDB(t)
	a, b, c := testEntry(t, "a"), testEntry(t, "b"), testEntry(t, "c")
	require.NoError(t, txqueue.Finalize(mgr, 0, []*txqueue.Entry{a, b}))

	// 快照 drain 不影响持久化数据
	q, err := txqueue.Snapshot(mgr)
	require.NoError(t, err)
	assert.Len(t, q.Drain(), 2)
	n, err := mgr.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, txqueue.Finalize(mgr, 2, []*txqueue.Entry{c}))
	got, err := mgr.Entries()
	require.NoError(t, err)
	assert.Equal(t, []*txqueue.Entry{c}, got)

	require.NoError(t, mgr.Truncate(0))
	require.NoError(t, mgr.Truncate(10))
	n, err = mgr.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueStoreReopen(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, logs.NewNop())
	require.NoError(t, err)
	a := testEntry(t, "a")
	require.NoError(t, mgr.Push(a))
	require.NoError(t, mgr.SetQueueHeight(7))
	mgr.Close()
	mgr.Close()

	mgr, err = NewManager(dir, logs.NewNop())
	require.NoError(t, err)
	defer mgr.Close()

	b := testEntry(t, "b")
	require.NoError(t, mgr.Push(b))
	got, err := mgr.Entries()
	require.NoError(t, err)
	assert.Equal(t, []*txqueue.Entry{a, b}, got)

	h, err := mgr.QueueHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), h)
}

func TestClosedManager(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logs.NewNop())
	require.NoError(t, err)
	mgr.Close()

	_, err = mgr.Entries()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, mgr.Push(testEntry(t, "a")), ErrClosed)
}

func TestGetMissingKey(t *testing.T) {
	mgr := openTestDB(t)
	v, err := mgr.Get(keys.KeyTxQueue(1))
	require.NoError(t, err)
	assert.Nil(t, v)

	h, err := mgr.QueueHeight()
	require.NoError(t, err)
	assert.Zero(t, h)
}
