// Package stats exposes prometheus metrics for proposal building and mempool
// admission.
package stats

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sealedtx"

// ProposalMetrics 区块提案构建指标
type ProposalMetrics struct {
	ProposalsBuilt   prometheus.Counter
	MempoolKept      prometheus.Counter
	MempoolExcluded  *prometheus.CounterVec // reason: decode, not_wrapper
	MempoolTruncated prometheus.Counter
	QueueResolved    prometheus.Counter
	QueueUnresolved  *prometheus.CounterVec // reason: DecryptReason
	MempoolBytes     prometheus.Gauge
	BuildDuration    prometheus.Histogram
}

// NewProposalMetrics creates the proposal metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewProposalMetrics(reg prometheus.Registerer) (*ProposalMetrics, error) {
	m := &ProposalMetrics{
		ProposalsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "built_total",
			Help: "提案构建次数（仅 validator 模式）",
		}),
		MempoolKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "mempool_kept_total",
			Help: "进入提案的 mempool wrapper 交易数",
		}),
		MempoolExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "mempool_excluded_total",
			Help: "被过滤的 mempool 候选交易数",
		}, []string{"reason"}),
		MempoolTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "mempool_truncated_total",
			Help: "因超出半块预算而未扫描的候选交易数",
		}),
		QueueResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "queue_resolved_total",
			Help: "成功解密的队列交易数",
		}),
		QueueUnresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "queue_unresolvable_total",
			Help: "无法解密的队列交易数",
		}, []string{"reason"}),
		MempoolBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "mempool_bytes",
			Help: "最近一次提案中 mempool 部分的字节数",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "proposal", Name: "build_duration_seconds",
			Help:    "提案构建耗时",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if err := register(reg,
		m.ProposalsBuilt, m.MempoolKept, m.MempoolExcluded, m.MempoolTruncated,
		m.QueueResolved, m.QueueUnresolved, m.MempoolBytes, m.BuildDuration,
	); err != nil {
		return nil, err
	}
	return m, nil
}

// PoolMetrics tracks mempool admission.
type PoolMetrics struct {
	Accepted prometheus.Counter
	Rejected *prometheus.CounterVec // reason: decode, not_wrapper, signature, ciphertext, duplicate, full
	Pending  prometheus.Gauge
}

func NewPoolMetrics(reg prometheus.Registerer) (*PoolMetrics, error) {
	m := &PoolMetrics{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "txpool", Name: "accepted_total",
			Help: "准入成功的交易数",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "txpool", Name: "rejected_total",
			Help: "准入失败的交易数",
		}, []string{"reason"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "txpool", Name: "pending",
			Help: "交易池当前交易数",
		}),
	}
	if err := register(reg, m.Accepted, m.Rejected, m.Pending); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	if reg == nil {
		return nil
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}
