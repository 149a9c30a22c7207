package consensus

import (
	"crypto/sha256"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"sealedtx/config"
	"sealedtx/logs"
	"sealedtx/pb"
	"sealedtx/stats"
	"sealedtx/tpke"
	"sealedtx/tx"
	"sealedtx/txqueue"
)

// 候选交易被排除的原因，同时作为 metrics 的 label
const (
	excludeDecode     = "decode"
	excludeNotWrapper = "not_wrapper"
)

// Candidate 请求中的一个 mempool 候选及其去留
type Candidate struct {
	Tx   []byte
	Kept bool
}

// Proposal 一次提案的结果
type Proposal struct {
	Mempool []Candidate // 全部 mempool 候选，保持输入顺序
	Queue   [][]byte    // 队列条目的解密结果，保持入队顺序
	// Resolved 与 Queue 一一对应的解码形式
	Resolved []*tx.Tx
	// Drained is how many entries were taken from the queue. Finalization
	// truncates the store by this count, not by len(Queue).
	Drained int
}

// Txs 提案的交易列表：保留的 mempool wrapper 在前，队列解密结果在后
func (p *Proposal) Txs() [][]byte {
	var out [][]byte
	for _, c := range p.Mempool {
		if c.Kept {
			out = append(out, c.Tx)
		}
	}
	return append(out, p.Queue...)
}

// Proposer 区块提案构建器，本身不持有跨高度的状态
type Proposer struct {
	mode     Mode
	cfg      config.ProposalConfig
	format   ProposalWireFormat
	classify *lru.Cache // sha256(raw tx) -> 排除原因，"" 表示保留
	metrics  *stats.ProposalMetrics
	Logger   logs.Logger
}

// NewProposer 创建提案构建器。metrics 为 nil 时使用未注册的指标
func NewProposer(mode Mode, cfg config.ProposalConfig, logger logs.Logger, metrics *stats.ProposalMetrics) (*Proposer, error) {
	if cfg.HalfMaxProposalSize <= 0 || cfg.HalfMaxProposalSize > config.MaxProposalSize {
		return nil, errors.New("invalid half max proposal size")
	}
	format, err := NewWireFormat(cfg.WireFormat)
	if err != nil {
		return nil, err
	}
	size := cfg.ClassifyCacheSize
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logs.Default()
	}
	if metrics == nil {
		if metrics, err = stats.NewProposalMetrics(nil); err != nil {
			return nil, err
		}
	}
	return &Proposer{
		mode:     mode,
		cfg:      cfg,
		format:   format,
		classify: cache,
		metrics:  metrics,
		Logger:   logger,
	}, nil
}

func (p *Proposer) WireFormat() ProposalWireFormat { return p.format }

// PrepareProposal 构建提案并按配置的格式编码
func (p *Proposer) PrepareProposal(req *pb.RequestPrepareProposal, queue *txqueue.Queue, key *tpke.PrivateKey) *pb.ResponsePrepareProposal {
	return p.format.Encode(p.Build(req, queue, key))
}

// Build 构建提案：
//  1. 非 validator 直接返回空提案；req 为 nil 时视为空 mempool
//  2. 按顺序扫描 mempool 候选，只保留能解码的 wrapper；累计字节数一旦超过半块预算立即停止扫描
//  3. drain 队列，逐个用 key 解密，成功为 Resolved，失败为 Unresolvable，不受预算限制
//  4. mempool 部分在前，队列部分在后
//
// 相同的 (req.Txs, 队列, key) 总是得到相同的结果。
func (p *Proposer) Build(req *pb.RequestPrepareProposal, queue *txqueue.Queue, key *tpke.PrivateKey) *Proposal {
	if p.mode != ModeValidator {
		return &Proposal{}
	}
	if req == nil {
		req = &pb.RequestPrepareProposal{}
	}
	start := time.Now()
	defer func() { p.metrics.BuildDuration.Observe(time.Since(start).Seconds()) }()

	prop := &Proposal{}
	p.filterMempool(req.Txs, prop)

	var entries []*txqueue.Entry
	if queue != nil {
		entries = queue.Drain()
	}
	prop.Drained = len(entries)
	for _, e := range entries {
		out := p.resolve(e, key)
		raw, err := out.Bytes()
		if err != nil {
			// 只有 header 为空时才会失败，队列条目总是带 wrapper header
			p.Logger.Error("[Proposer] encode resolved tx: %v", err)
			continue
		}
		prop.Queue = append(prop.Queue, raw)
		prop.Resolved = append(prop.Resolved, out)
	}

	p.metrics.ProposalsBuilt.Inc()
	p.Logger.Debug("[Proposer] height=%d mempool=%d kept=%d queue=%d",
		req.Height, len(req.Txs), len(prop.Txs())-len(prop.Queue), len(prop.Queue))
	return prop
}

func (p *Proposer) filterMempool(candidates [][]byte, prop *Proposal) {
	budget := p.cfg.HalfMaxProposalSize
	total := 0
	stopped := false
	prop.Mempool = make([]Candidate, 0, len(candidates))
	for _, raw := range candidates {
		if stopped {
			p.metrics.MempoolTruncated.Inc()
			prop.Mempool = append(prop.Mempool, Candidate{Tx: raw})
			continue
		}
		if reason := p.classifyTx(raw); reason != "" {
			p.metrics.MempoolExcluded.WithLabelValues(reason).Inc()
			prop.Mempool = append(prop.Mempool, Candidate{Tx: raw})
			continue
		}
		if total+len(raw) > budget {
			// 贪心前缀：后面更小的候选也不再考虑
			stopped = true
			p.metrics.MempoolTruncated.Inc()
			prop.Mempool = append(prop.Mempool, Candidate{Tx: raw})
			continue
		}
		total += len(raw)
		p.metrics.MempoolKept.Inc()
		prop.Mempool = append(prop.Mempool, Candidate{Tx: raw, Kept: true})
	}
	p.metrics.MempoolBytes.Set(float64(total))
}

// classifyTx 返回排除原因，结果按内容哈希缓存
func (p *Proposer) classifyTx(raw []byte) string {
	key := sha256.Sum256(raw)
	if v, ok := p.classify.Get(key); ok {
		return v.(string)
	}
	reason := ""
	t, err := tx.Decode(raw)
	switch {
	case err != nil:
		reason = excludeDecode
	case t.Header.Kind() != tx.KindWrapper:
		reason = excludeNotWrapper
	}
	p.classify.Add(key, reason)
	return reason
}

// resolve 在副本上解密，队列条目本身不被修改
func (p *Proposer) resolve(e *txqueue.Entry, key *tpke.PrivateKey) *tx.Tx {
	inner := tx.NewTx(e.Wrapper)
	if e.Tx != nil {
		inner = e.Tx.Clone()
	}
	if err := inner.Decrypt(key); err != nil {
		var de *tx.DecryptError
		reason := "unknown"
		if errors.As(err, &de) {
			reason = de.Reason.String()
		}
		p.metrics.QueueUnresolved.WithLabelValues(reason).Inc()
		p.Logger.Warn("[Proposer] wrapper %s unresolvable: %v", tx.HashHeader(e.Wrapper), err)
		inner.Header = tx.Unresolvable{Wrapper: e.Wrapper}
		return inner
	}

	resolved := tx.Resolved{
		HeaderHash: inner.HeaderHash(),
		CodeHash:   e.Wrapper.CodeHash,
		DataHash:   e.Wrapper.DataHash,
	}
	if p.cfg.ProofOfWork {
		valid := e.HasValidPoW
		resolved.HasValidPoW = &valid
	}
	p.metrics.QueueResolved.Inc()
	inner.Header = resolved
	return inner
}
