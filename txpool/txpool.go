package txpool

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"sealedtx/config"
	"sealedtx/logs"
	"sealedtx/stats"
	"sealedtx/tx"
)

var (
	ErrNotWrapper        = errors.New("txpool: only wrapper transactions are accepted")
	ErrInvalidCiphertext = errors.New("txpool: invalid ciphertext")
	ErrPoolFull          = errors.New("txpool: pending is full")
)

// 拒绝原因，同时作为 metrics label
const (
	rejectDecode     = "decode"
	rejectNotWrapper = "not_wrapper"
	rejectSignature  = "signature"
	rejectCipher     = "ciphertext"
	rejectValidator  = "validator"
	rejectFull       = "full"
)

// TxValidator 额外的 wrapper 检查（费用、epoch 等），可以为 nil
type TxValidator interface {
	CheckWrapper(w tx.WrapperTx) error
}

// TxID identifies a tx by the sha256 of its raw bytes.
func TxID(raw []byte) tx.Hash {
	return sha256.Sum256(raw)
}

// TxPool 交易池：只接收加密的 wrapper，按到达顺序交给提案构建器
type TxPool struct {
	mu        sync.RWMutex
	Logger    logs.Logger
	pending   *lru.Cache // TxID -> raw bytes，Keys() 按到达顺序返回
	committed *lru.Cache // 已上链的 TxID，避免重复入池
	validator TxValidator
	cfg       config.TxPoolConfig
	metrics   *stats.PoolMetrics
}

// NewTxPool 创建交易池。metrics 为 nil 时使用未注册的指标
func NewTxPool(cfg config.TxPoolConfig, validator TxValidator, logger logs.Logger, metrics *stats.PoolMetrics) (*TxPool, error) {
	if cfg.MaxPendingTxs <= 0 {
		return nil, errors.New("txpool: MaxPendingTxs must be positive")
	}
	// 容量多留一格，满员由 Submit 显式拒绝，不靠 LRU 淘汰
	pending, err := lru.New(cfg.MaxPendingTxs + 1)
	if err != nil {
		return nil, err
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 100000
	}
	committed, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logs.Default()
	}
	if metrics == nil {
		if metrics, err = stats.NewPoolMetrics(nil); err != nil {
			return nil, err
		}
	}
	return &TxPool{
		Logger:    logger,
		pending:   pending,
		committed: committed,
		validator: validator,
		cfg:       cfg,
		metrics:   metrics,
	}, nil
}

// Validate 准入检查：能解码、是 wrapper、签名有效、密文通过公开校验
func (tp *TxPool) Validate(raw []byte) (*tx.Tx, error) {
	t, err := tx.Decode(raw)
	if err != nil {
		return nil, &RejectError{Reason: rejectDecode, Err: err}
	}
	w, ok := t.Wrapper()
	if !ok {
		return nil, &RejectError{Reason: rejectNotWrapper, Err: fmt.Errorf("%w: got %s", ErrNotWrapper, t.Header.Kind())}
	}
	if tp.cfg.RequireSignature {
		if err := t.VerifySignature(w.PublicKey, t.HeaderHash()); err != nil {
			return nil, &RejectError{Reason: rejectSignature, Err: err}
		}
	}
	if !t.ValidateCiphertext() {
		return nil, &RejectError{Reason: rejectCipher, Err: ErrInvalidCiphertext}
	}
	if tp.validator != nil {
		if err := tp.validator.CheckWrapper(w); err != nil {
			return nil, &RejectError{Reason: rejectValidator, Err: err}
		}
	}
	return t, nil
}

// Submit 提交交易（对外的主要接口）。重复或已上链的交易视为接收成功
func (tp *TxPool) Submit(raw []byte) error {
	id := TxID(raw)
	if tp.Has(id) || tp.isCommitted(id) {
		tp.Logger.Debug("[TxPool] tx %s already known", id)
		return nil
	}
	if _, err := tp.Validate(raw); err != nil {
		var re *RejectError
		if errors.As(err, &re) {
			tp.metrics.Rejected.WithLabelValues(re.Reason).Inc()
		}
		tp.Logger.Debug("[TxPool] reject tx %s: %v", id, err)
		return err
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.pending.Contains(id) {
		return nil
	}
	if tp.pending.Len() >= tp.cfg.MaxPendingTxs {
		tp.metrics.Rejected.WithLabelValues(rejectFull).Inc()
		return &RejectError{Reason: rejectFull, Err: fmt.Errorf("%w (%d/%d)", ErrPoolFull, tp.pending.Len(), tp.cfg.MaxPendingTxs)}
	}
	tp.pending.Add(id, append([]byte(nil), raw...))
	tp.metrics.Accepted.Inc()
	tp.metrics.Pending.Set(float64(tp.pending.Len()))
	return nil
}

func (tp *TxPool) Has(id tx.Hash) bool {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.pending.Contains(id)
}

// Get 按 ID 取交易原文，不改变到达顺序
func (tp *TxPool) Get(id tx.Hash) ([]byte, bool) {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	v, ok := tp.pending.Peek(id)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Reap 按到达顺序返回待打包交易，即提案请求中的 mempool 快照。
// maxBytes<=0 表示不限；超出时在第一笔放不下的交易处截断
func (tp *TxPool) Reap(maxBytes int) [][]byte {
	tp.mu.RLock()
	defer tp.mu.RUnlock()

	var out [][]byte
	total := 0
	for _, k := range tp.pending.Keys() {
		v, ok := tp.pending.Peek(k)
		if !ok {
			continue
		}
		raw := v.([]byte)
		if maxBytes > 0 && total+len(raw) > maxBytes {
			break
		}
		total += len(raw)
		out = append(out, raw)
	}
	return out
}

// Remove 移除已上链的交易，之后再提交会被忽略
func (tp *TxPool) Remove(ids ...tx.Hash) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	for _, id := range ids {
		tp.pending.Remove(id)
		tp.committed.Add(id, struct{}{})
	}
	tp.metrics.Pending.Set(float64(tp.pending.Len()))
}

func (tp *TxPool) PendingLen() int {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.pending.Len()
}

// Clear 清空待打包交易
func (tp *TxPool) Clear() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.pending.Purge()
	tp.metrics.Pending.Set(0)
}

func (tp *TxPool) isCommitted(id tx.Hash) bool {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.committed.Contains(id)
}

// RejectError is returned by Validate and Submit. Reason doubles as the
// metrics label.
type RejectError struct {
	Reason string
	Err    error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("txpool: rejected (%s): %v", e.Reason, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }
