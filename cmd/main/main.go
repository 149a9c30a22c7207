package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sealedtx/config"
	"sealedtx/logs"
)

var (
	configPath string
	logLevel   string

	// 由 PersistentPreRunE 加载
	cfg *config.Config
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "sealedtx",
	Short: "加密交易的打包与提案工具",
	Long: `sealedtx 管理门限加密的 wrapper 交易：

  keygen   生成门限加密密钥对和 schnorr 签名密钥
  wrap     构造、签名并加密 wrapper 交易
  inspect  解码并展示一笔交易
  enqueue  把 wrapper 写入持久化的待解密队列
  propose  对 mempool 和待解密队列构建区块提案`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath == "" {
			cfg = config.DefaultConfig()
		} else if cfg, err = config.LoadFromFile(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err := logs.New(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("初始化日志: %w", err)
		}
		logs.SetLogger(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML 配置文件 (默认使用内置配置)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别: debug|info|warn|error")

	rootCmd.AddCommand(keygenCmd, wrapCmd, inspectCmd, enqueueCmd, proposeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
