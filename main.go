package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdf-translator/config"
	"pdf-translator/logging"
)

// Version 构建时通过 -ldflags "-X main.Version=..." 注入
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdf-translator",
	Short: "保留版式的 PDF 翻译工具",
	Long: `pdf-translator 使用大模型翻译 PDF 文档。

输出 pdf 时在原页面上擦除原文并按原位置、字号、颜色写入译文；
输出 markdown、html 时逐页翻译纯文本。`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		l, err := logging.New(loaded.Log)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pdf-translator %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "配置文件 (默认: ./config.yaml 或 ~/.pdf-translator/config.yaml)",
	)
	rootCmd.AddCommand(serveCmd, translateCmd, versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
