package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"sealedtx/consensus"
	"sealedtx/logs"
	"sealedtx/pb"
	"sealedtx/stats"
	"sealedtx/txpool"
	"sealedtx/txqueue"
)

var (
	proposeMempool  string
	proposeQueue    string
	proposeMode     string
	proposeHeight   int64
	proposeKey      string
	proposeFormat   string
	proposeAdmit    bool
	proposeFinalize bool
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "构建区块提案",
	Long: `读取 mempool 候选（每行一笔 hex），对配置的待解密队列做一次快照，
运行提案构建器并按配置的 wire format 输出结果。

--admit 先让候选经过交易池准入检查；--finalize 在提案之后把已解密的条目从持久化队列中移除`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := consensus.ParseMode(proposeMode)
		if err != nil {
			return err
		}
		pcfg := cfg.Proposal
		if proposeFormat != "" {
			pcfg.WireFormat = proposeFormat
		}
		sk, err := decryptionKey(proposeKey)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		pm, err := stats.NewProposalMetrics(reg)
		if err != nil {
			return err
		}
		proposer, err := consensus.NewProposer(mode, pcfg, logs.Default(), pm)
		if err != nil {
			return err
		}

		var candidates [][]byte
		if proposeMempool != "" {
			if candidates, err = readHexTxs(proposeMempool); err != nil {
				return err
			}
		}
		if proposeAdmit {
			if candidates, err = admit(candidates, reg); err != nil {
				return err
			}
		}

		store, closeFn, err := openQueueStore(cfg.Queue)
		if err != nil {
			return err
		}
		defer closeFn()
		if proposeQueue != "" {
			raws, err := readHexTxs(proposeQueue)
			if err != nil {
				return err
			}
			entries, err := queueEntries(raws)
			if err != nil {
				return err
			}
			if err := txqueue.Finalize(store, 0, entries); err != nil {
				return err
			}
		}
		queue, err := txqueue.Snapshot(store)
		if err != nil {
			return err
		}

		req := &pb.RequestPrepareProposal{Txs: candidates, Height: proposeHeight}
		prop := proposer.Build(req, queue, sk)
		resp := proposer.WireFormat().Encode(prop)
		printResponse(cmd.OutOrStdout(), resp)

		logs.Info("[CLI] height=%d candidates=%d txs=%d resolved=%d",
			proposeHeight, len(candidates), len(prop.Txs()), len(prop.Queue))

		if proposeFinalize {
			return txqueue.Finalize(store, prop.Drained, nil)
		}
		return nil
	},
}

func init() {
	f := proposeCmd.Flags()
	f.StringVar(&proposeMempool, "mempool", "", "mempool 候选文件，每行一笔 hex")
	f.StringVar(&proposeQueue, "queue", "", "先追加到待解密队列的 wrapper 文件 (可选)")
	f.StringVar(&proposeMode, "mode", "validator", "节点模式: validator|full|seed")
	f.Int64Var(&proposeHeight, "height", 1, "提案高度")
	f.StringVar(&proposeKey, "decryption-key", "", "解密私钥 hex (默认取配置，空为占位密钥)")
	f.StringVar(&proposeFormat, "format", "", "覆盖配置中的 wire format: txs|records")
	f.BoolVar(&proposeAdmit, "admit", false, "先经过交易池准入检查")
	f.BoolVar(&proposeFinalize, "finalize", false, "提案后从队列移除已解密的条目")
}

// admit 把候选交给交易池，返回按到达顺序通过准入的交易
func admit(candidates [][]byte, reg prometheus.Registerer) ([][]byte, error) {
	poolCfg := cfg.TxPool
	if poolCfg.MaxPendingTxs < len(candidates) {
		poolCfg.MaxPendingTxs = len(candidates)
	}
	if poolCfg.MaxPendingTxs == 0 {
		poolCfg.MaxPendingTxs = 1
	}
	metrics, err := stats.NewPoolMetrics(reg)
	if err != nil {
		return nil, err
	}
	pool, err := txpool.NewTxPool(poolCfg, nil, logs.Default(), metrics)
	if err != nil {
		return nil, err
	}
	for i, raw := range candidates {
		if err := pool.Submit(raw); err != nil {
			logs.Warn("[CLI] candidate %d rejected: %v", i, err)
		}
	}
	return pool.Reap(0), nil
}

func printResponse(w io.Writer, resp *pb.ResponsePrepareProposal) {
	for _, r := range resp.TxRecords {
		fmt.Fprintf(w, "%-10s %s\n", r.Action, hex.EncodeToString(r.Tx))
	}
	for _, raw := range resp.Txs {
		fmt.Fprintln(w, hex.EncodeToString(raw))
	}
}
