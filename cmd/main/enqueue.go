package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sealedtx/db"
	"sealedtx/logs"
	"sealedtx/tx"
	"sealedtx/txqueue"
)

var (
	enqueueFile   string
	enqueueHeight uint64
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [hex...]",
	Short: "把已上链的 wrapper 写入待解密队列",
	Long:  "模拟区块提交：把 wrapper 交易追加到持久化的待解密队列，下一高度的提案会解密它们",
	RunE: func(cmd *cobra.Command, args []string) error {
		raws := make([][]byte, 0, len(args))
		for _, a := range args {
			b, err := hex.DecodeString(strings.TrimPrefix(a, "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}
			raws = append(raws, b)
		}
		if enqueueFile != "" {
			more, err := readHexTxs(enqueueFile)
			if err != nil {
				return err
			}
			raws = append(raws, more...)
		}
		if len(raws) == 0 {
			return errors.New("没有要入队的交易")
		}

		entries, err := queueEntries(raws)
		if err != nil {
			return err
		}

		store, closeFn, err := openQueueStore(cfg.Queue)
		if err != nil {
			return err
		}
		defer closeFn()
		if _, ok := store.(*db.Manager); !ok {
			logs.Warn("[CLI] queue backend is %q, entries are dropped on exit", cfg.Queue.Backend)
		}
		if err := txqueue.Finalize(store, 0, entries); err != nil {
			return err
		}
		if mgr, ok := store.(*db.Manager); ok && enqueueHeight > 0 {
			if err := mgr.SetQueueHeight(enqueueHeight); err != nil {
				return err
			}
		}
		n, err := store.Len()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d, queue length %d\n", len(entries), n)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueFile, "file", "", "每行一笔 hex 交易的文件")
	enqueueCmd.Flags().Uint64Var(&enqueueHeight, "height", 0, "提交所在高度")
}

// queueEntries 解码并检查每一笔都是 wrapper
func queueEntries(raws [][]byte) ([]*txqueue.Entry, error) {
	entries := make([]*txqueue.Entry, 0, len(raws))
	for i, raw := range raws {
		t, err := tx.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		e, err := txqueue.NewEntry(t)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
