package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Proposal size limits. Tendermint defaults to 20 MiB blocks; 5 MiB leaves
// room for header data, evidence and protobuf framing overhead.
const (
	MaxProposalSize     = 5 << 20
	HalfMaxProposalSize = MaxProposalSize / 2
)

// Wire formats understood by the proposal builder.
const (
	WireFormatTxs     = "txs"
	WireFormatRecords = "records"
)

// Queue backends.
const (
	QueueBackendMemory = "memory"
	QueueBackendBadger = "badger"
)

// Config 主配置结构
type Config struct {
	Proposal ProposalConfig `yaml:"proposal"`
	Queue    QueueConfig    `yaml:"queue"`
	TxPool   TxPoolConfig   `yaml:"txpool"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Log      LogConfig      `yaml:"log"`
}

// ProposalConfig controls block proposal construction.
type ProposalConfig struct {
	HalfMaxProposalSize int    `yaml:"halfMaxProposalSize"` // 2621440, budget of the mempool phase only
	WireFormat          string `yaml:"wireFormat"`          // "txs"
	ProofOfWork         bool   `yaml:"proofOfWork"`         // true, carry has_valid_pow in resolved headers
	ClassifyCacheSize   int    `yaml:"classifyCacheSize"`   // 10000
}

// QueueConfig selects the store behind the pending decryption queue.
type QueueConfig struct {
	Backend           string `yaml:"backend"`           // "memory"
	Path              string `yaml:"path"`              // "data/txqueue"
	SequenceBandwidth uint64 `yaml:"sequenceBandwidth"` // 1000
}

// TxPoolConfig 交易池配置
type TxPoolConfig struct {
	MaxPendingTxs    int  `yaml:"maxPendingTxs"`    // 10000
	CacheSize        int  `yaml:"cacheSize"`        // 100000
	RequireSignature bool `yaml:"requireSignature"` // true
}

// CryptoConfig holds the validator's decryption key material as hex.
// An empty PrivateKeyHex selects the placeholder generator key.
type CryptoConfig struct {
	PrivateKeyHex string `yaml:"privateKey"`
	PublicKeyHex  string `yaml:"publicKey"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // "info"
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Proposal: ProposalConfig{
			HalfMaxProposalSize: HalfMaxProposalSize,
			WireFormat:          WireFormatTxs,
			ProofOfWork:         true,
			ClassifyCacheSize:   10000,
		},
		Queue: QueueConfig{
			Backend:           QueueBackendMemory,
			Path:              "data/txqueue",
			SequenceBandwidth: 1000,
		},
		TxPool: TxPoolConfig{
			MaxPendingTxs:    10000,
			CacheSize:        100000,
			RequireSignature: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile reads a YAML config. Fields absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Proposal.HalfMaxProposalSize <= 0 {
		return errors.New("proposal.halfMaxProposalSize must be positive")
	}
	if c.Proposal.HalfMaxProposalSize > MaxProposalSize {
		return fmt.Errorf("proposal.halfMaxProposalSize exceeds max proposal size %d", MaxProposalSize)
	}
	switch c.Proposal.WireFormat {
	case WireFormatTxs, WireFormatRecords:
	default:
		return fmt.Errorf("unknown proposal.wireFormat %q", c.Proposal.WireFormat)
	}
	switch c.Queue.Backend {
	case QueueBackendMemory:
	case QueueBackendBadger:
		if c.Queue.Path == "" {
			return errors.New("queue.path is required for the badger backend")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", c.Queue.Backend)
	}
	if c.TxPool.MaxPendingTxs <= 0 {
		return errors.New("txpool.maxPendingTxs must be positive")
	}
	return nil
}
