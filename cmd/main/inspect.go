package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sealedtx/tx"
)

var (
	inspectFile     string
	inspectDecrypt  bool
	inspectKey      string
	inspectDecimals int32
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [hex]",
	Short: "解码并展示交易",
	Long:  "解码外层编码和内层信封，打印 header 与各个 section；--decrypt 时用解密私钥尝试解密",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var s string
		switch {
		case len(args) == 1:
			s = args[0]
		case inspectFile != "":
			b, err := os.ReadFile(inspectFile)
			if err != nil {
				return err
			}
			s = string(b)
		default:
			return errors.New("需要 hex 参数或 --file")
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		t, err := tx.Decode(raw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if inspectDecrypt {
			sk, err := decryptionKey(inspectKey)
			if err != nil {
				return err
			}
			if err := t.Decrypt(sk); err != nil {
				fmt.Fprintf(out, "decrypt: %v\n", err)
			}
		}
		describeTx(out, t, inspectDecimals)
		return nil
	},
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFile, "file", "", "从文件读取 hex")
	f.BoolVar(&inspectDecrypt, "decrypt", false, "尝试解密")
	f.StringVar(&inspectKey, "decryption-key", "", "解密私钥 hex (默认取配置)")
	f.Int32Var(&inspectDecimals, "decimals", 6, "手续费代币精度")
}

func describeTx(w io.Writer, t *tx.Tx, decimals int32) {
	fmt.Fprintf(w, "kind:        %s\n", t.Header.Kind())
	fmt.Fprintf(w, "header_hash: %s\n", t.HeaderHash())
	switch h := t.Header.(type) {
	case tx.WrapperTx:
		describeWrapper(w, h, decimals)
	case tx.Resolved:
		fmt.Fprintf(w, "resolved:    inner=%s\n", h.HeaderHash)
		if h.HasValidPoW != nil {
			fmt.Fprintf(w, "valid_pow:   %t\n", *h.HasValidPoW)
		}
	case tx.Unresolvable:
		fmt.Fprintln(w, "unresolvable wrapper:")
		describeWrapper(w, h.Wrapper, decimals)
	case tx.ProtocolTx:
		fmt.Fprintf(w, "protocol:    type=%d signer=%x\n", h.Type, h.PublicKey)
	}
	fmt.Fprintf(w, "code_hash:   %s\n", t.CodeHash())
	fmt.Fprintf(w, "data_hash:   %s\n", t.DataHash())

	fmt.Fprintf(w, "sections:    %d\n", len(t.Sections))
	for i, s := range t.Sections {
		fmt.Fprintf(w, "  [%d] %-10s %s %s\n", i, s.Kind(), tx.HashSection(s), sectionSummary(s))
	}
}

func describeWrapper(w io.Writer, h tx.WrapperTx, decimals int32) {
	amount := "0"
	if h.Fee.Amount != nil {
		amount = decimal.NewFromBigInt(h.Fee.Amount.ToBig(), -decimals).String()
	}
	fmt.Fprintf(w, "fee:         %s %s\n", amount, h.Fee.Token)
	fmt.Fprintf(w, "signer:      %x\n", h.PublicKey)
	fmt.Fprintf(w, "epoch:       %d\n", h.Epoch)
	fmt.Fprintf(w, "gas_limit:   %d\n", h.GasLimit)
	if h.PoW != nil {
		fmt.Fprintf(w, "pow:         difficulty=%d nonce=%d valid=%t\n", h.PoW.Difficulty, h.PoW.Nonce, h.ValidPoW())
	}
}

func sectionSummary(s tx.Section) string {
	switch v := s.(type) {
	case tx.Data:
		return fmt.Sprintf("%d bytes", len(v.Payload))
	case tx.ExtraData:
		return fmt.Sprintf("%d bytes", len(v.Payload))
	case tx.Code:
		return fmt.Sprintf("%d bytes", len(v.Payload))
	case tx.Ciphertext:
		return fmt.Sprintf("%d bytes opaque", len(v.Opaque))
	case tx.Signature:
		return fmt.Sprintf("target=%s signer=%x", v.Target, v.PublicKey)
	default:
		return ""
	}
}
