package txpool

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedtx/config"
	"sealedtx/logs"
	"sealedtx/tpke"
	"sealedtx/tx"
)

func newPool(t *testing.T, maxPending int, v TxValidator) *TxPool {
	t.Helper()
	cfg := config.DefaultConfig().TxPool
	cfg.MaxPendingTxs = maxPending
	tp, err := NewTxPool(cfg, v, logs.NewNop(), nil)
	require.NoError(t, err)
	return tp
}

// buildWrapper 构造 wrapper；sign=false 时不带签名
func buildWrapper(t *testing.T, code string, sign bool) *tx.Tx {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	w := tx.NewTx(tx.NewWrapperTx(tx.Fee{Amount: uint256.NewInt(100), Token: "NAM"}, schnorr.SerializePubKey(key.PubKey()), 1, 1000, nil))
	w.SetCode(tx.NewCode([]byte(code)))
	w.SetData(tx.NewData([]byte("data")))
	if sign {
		require.NoError(t, w.Sign(key))
	}
	require.NoError(t, w.Encrypt(tpke.DefaultPublicKey()))
	return w
}

func reason(err error) string {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

func TestSubmitAndReapOrder(t *testing.T) {
	tp := newPool(t, 10, nil)
	var want [][]byte
	for _, c := range []string{"a", "b", "c", "d"} {
		raw := buildWrapper(t, c, true).MustBytes()
		require.NoError(t, tp.Submit(raw))
		want = append(want, raw)
	}
	// Get 不改变顺序
	_, ok := tp.Get(TxID(want[0]))
	require.True(t, ok)

	assert.Equal(t, want, tp.Reap(0))
	assert.Equal(t, want[:2], tp.Reap(len(want[0])+len(want[1])))
	assert.Equal(t, 4.0, testutil.ToFloat64(tp.metrics.Accepted))
}

func TestSubmitDuplicate(t *testing.T) {
	tp := newPool(t, 10, nil)
	raw := buildWrapper(t, "a", true).MustBytes()
	require.NoError(t, tp.Submit(raw))
	require.NoError(t, tp.Submit(raw))
	assert.Equal(t, 1, tp.PendingLen())
}

func TestAdmissionRejects(t *testing.T) {
	tp := newPool(t, 10, nil)

	err := tp.Submit([]byte{0x0a, 0x09})
	assert.Equal(t, rejectDecode, reason(err))
	assert.True(t, errors.Is(err, tx.ErrOuterFraming))

	raw := tx.NewTx(tx.RawHeader{})
	raw.SetCode(tx.NewCode([]byte("code")))
	err = tp.Submit(raw.MustBytes())
	assert.Equal(t, rejectNotWrapper, reason(err))
	assert.ErrorIs(t, err, ErrNotWrapper)

	err = tp.Submit(buildWrapper(t, "unsigned", false).MustBytes())
	assert.Equal(t, rejectSignature, reason(err))
	assert.ErrorIs(t, err, tx.ErrMissingSignature)

	bad := buildWrapper(t, "tampered", true)
	c := bad.Sections[0].(tx.Ciphertext)
	c.Opaque = append([]byte{}, c.Opaque...)
	c.Opaque[len(c.Opaque)-1] ^= 0xff
	bad.Sections[0] = c
	err = tp.Submit(bad.MustBytes())
	assert.Equal(t, rejectCipher, reason(err))

	assert.Zero(t, tp.PendingLen())
	assert.Equal(t, 1.0, testutil.ToFloat64(tp.metrics.Rejected.WithLabelValues(rejectSignature)))
}

func TestUnsignedAllowedWhenNotRequired(t *testing.T) {
	cfg := config.DefaultConfig().TxPool
	cfg.RequireSignature = false
	tp, err := NewTxPool(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, tp.Submit(buildWrapper(t, "unsigned", false).MustBytes()))
}

type feeFloor uint64

func (f feeFloor) CheckWrapper(w tx.WrapperTx) error {
	if w.Fee.Amount.Uint64() < uint64(f) {
		return errors.New("fee too low")
	}
	return nil
}

func TestCustomValidator(t *testing.T) {
	tp := newPool(t, 10, feeFloor(1000))
	err := tp.Submit(buildWrapper(t, "cheap", true).MustBytes())
	assert.Equal(t, rejectValidator, reason(err))

	tp = newPool(t, 10, feeFloor(10))
	assert.NoError(t, tp.Submit(buildWrapper(t, "ok", true).MustBytes()))
}

func TestPoolFull(t *testing.T) {
	tp := newPool(t, 2, nil)
	require.NoError(t, tp.Submit(buildWrapper(t, "a", true).MustBytes()))
	require.NoError(t, tp.Submit(buildWrapper(t, "b", true).MustBytes()))
	err := tp.Submit(buildWrapper(t, "c", true).MustBytes())
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, 2, tp.PendingLen())
}

func TestRemoveCommitted(t *testing.T) {
	tp := newPool(t, 10, nil)
	a := buildWrapper(t, "a", true).MustBytes()
	b := buildWrapper(t, "b", true).MustBytes()
	require.NoError(t, tp.Submit(a))
	require.NoError(t, tp.Submit(b))

	tp.Remove(TxID(a))
	assert.False(t, tp.Has(TxID(a)))
	assert.Equal(t, [][]byte{b}, tp.Reap(0))

	// 已上链的交易不会重新入池
	require.NoError(t, tp.Submit(a))
	assert.False(t, tp.Has(TxID(a)))

	tp.Clear()
	assert.Zero(t, tp.PendingLen())
	assert.Empty(t, tp.Reap(0))
}
