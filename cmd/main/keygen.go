package main

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"

	"sealedtx/tpke"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "生成密钥",
	Long:  "生成门限加密密钥对（G1 私钥 / G2 公钥）和一把 schnorr 签名密钥，均以 hex 输出",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sk, pk := tpke.GenerateKey(nil)
		skBytes, err := sk.MarshalBinary()
		if err != nil {
			return err
		}
		pkBytes, err := pk.MarshalBinary()
		if err != nil {
			return err
		}

		signer, err := btcec.NewPrivateKey()
		if err != nil {
			return fmt.Errorf("生成签名密钥: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "decryption_key: %s\n", hex.EncodeToString(skBytes))
		fmt.Fprintf(out, "encryption_key: %s\n", hex.EncodeToString(pkBytes))
		fmt.Fprintf(out, "signing_key:    %s\n", hex.EncodeToString(signer.Serialize()))
		fmt.Fprintf(out, "public_key:     %s\n", hex.EncodeToString(schnorr.SerializePubKey(signer.PubKey())))
		return nil
	},
}
