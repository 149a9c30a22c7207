package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"sealedtx/config"
	"sealedtx/db"
	"sealedtx/logs"
	"sealedtx/tpke"
	"sealedtx/txqueue"
)

// parseFeeAmount 把十进制金额按 decimals 位精度换算成最小单位，
// 例如 "1.5" 在 decimals=6 时为 1500000
func parseFeeAmount(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid fee amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("fee amount %q is negative", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("fee amount %q has more than %d decimal places", s, decimals)
	}
	amount, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("fee amount %q overflows 256 bits", s)
	}
	return amount, nil
}

// readHexTxs 读取每行一笔 hex 编码的交易，忽略空行和 # 注释
func readHexTxs(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var txs [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), config.MaxProposalSize*2+1)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		txs = append(txs, b)
	}
	return txs, sc.Err()
}

func parseSigningKey(s string) (*btcec.PrivateKey, error) {
	if s == "" {
		return nil, errors.New("signing key is required")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signing key hex: %w", err)
	}
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

// 命令行参数优先于配置文件，两者都为空时使用占位密钥
func encryptionKey(flag string) (*tpke.PublicKey, error) {
	if flag == "" {
		flag = cfg.Crypto.PublicKeyHex
	}
	return tpke.PublicKeyFromHex(flag)
}

func decryptionKey(flag string) (*tpke.PrivateKey, error) {
	if flag == "" {
		flag = cfg.Crypto.PrivateKeyHex
	}
	return tpke.PrivateKeyFromHex(flag)
}

// openQueueStore 按配置打开待解密队列的存储，返回的 close 函数总是非 nil
func openQueueStore(qc config.QueueConfig) (txqueue.Store, func(), error) {
	switch qc.Backend {
	case config.QueueBackendBadger:
		mgr, err := db.NewManagerWithConfig(qc, logs.Default())
		if err != nil {
			return nil, func() {}, err
		}
		return mgr, mgr.Close, nil
	default:
		return txqueue.NewMemStore(), func() {}, nil
	}
}
