package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"

	"sealedtx/tx"
)

var (
	wrapCodeFile  string
	wrapDataFile  string
	wrapFee       string
	wrapToken     string
	wrapDecimals  int32
	wrapEpoch     uint64
	wrapGasLimit  uint64
	wrapSignKey   string
	wrapEncKey    string
	wrapPoW       uint8
	wrapExtraFile string
)

var wrapCmd = &cobra.Command{
	Use:   "wrap",
	Short: "构造加密的 wrapper 交易",
	Long: `读取 code/data 文件，构造 wrapper header，用签名密钥对 header_hash 签名，
再用门限加密公钥加密全部 section，最后以 hex 输出外层编码`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if wrapCodeFile == "" {
			return errors.New("必须指定 --code")
		}
		code, err := os.ReadFile(wrapCodeFile)
		if err != nil {
			return err
		}
		var data []byte
		if wrapDataFile != "" {
			if data, err = os.ReadFile(wrapDataFile); err != nil {
				return err
			}
		}

		amount, err := parseFeeAmount(wrapFee, wrapDecimals)
		if err != nil {
			return err
		}
		key, err := parseSigningKey(wrapSignKey)
		if err != nil {
			return err
		}
		pk, err := encryptionKey(wrapEncKey)
		if err != nil {
			return err
		}

		pub := schnorr.SerializePubKey(key.PubKey())
		var pow *tx.PoWSolution
		if wrapPoW > 0 {
			sol := tx.SolvePoW(pub, wrapPoW)
			pow = &sol
		}
		w := tx.NewTx(tx.NewWrapperTx(tx.Fee{Amount: amount, Token: wrapToken}, pub, wrapEpoch, wrapGasLimit, pow))
		w.SetCode(tx.NewCode(code))
		w.SetData(tx.NewData(data))
		if wrapExtraFile != "" {
			extra, err := os.ReadFile(wrapExtraFile)
			if err != nil {
				return err
			}
			w.AddSection(tx.NewExtraData(extra))
		}
		if err := w.Sign(key); err != nil {
			return fmt.Errorf("签名失败: %w", err)
		}
		if err := w.Encrypt(pk); err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}
		raw, err := w.Bytes()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(raw))
		return nil
	},
}

func init() {
	f := wrapCmd.Flags()
	f.StringVar(&wrapCodeFile, "code", "", "交易代码文件")
	f.StringVar(&wrapDataFile, "data", "", "交易数据文件 (可选)")
	f.StringVar(&wrapExtraFile, "extra", "", "附加数据文件 (可选)")
	f.StringVar(&wrapFee, "fee", "0", "手续费金额，十进制")
	f.StringVar(&wrapToken, "token", "NAM", "手续费代币")
	f.Int32Var(&wrapDecimals, "decimals", 6, "手续费代币精度")
	f.Uint64Var(&wrapEpoch, "epoch", 0, "epoch")
	f.Uint64Var(&wrapGasLimit, "gas-limit", 0, "gas 上限")
	f.StringVar(&wrapSignKey, "key", "", "schnorr 签名私钥 hex")
	f.StringVar(&wrapEncKey, "encryption-key", "", "门限加密公钥 hex (默认取配置)")
	f.Uint8Var(&wrapPoW, "pow", 0, "工作量证明难度，0 表示不附带")
}
