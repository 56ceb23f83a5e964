package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdf-translator/handlers"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long: `启动上传翻译服务。

接口:
  POST /upload               上传 PDF 并翻译 (file, file_format, target_language, model_name, api_key)
  GET  /download/:filename   下载翻译结果
  GET  /tasks                查看任务记录`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if !cfg.Log.Development {
			gin.SetMode(gin.ReleaseMode)
		}

		h, err := handlers.NewHandler(cfg, logger)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handlers.NewRouter(h, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return run(cmd.Context(), srv)
	},
}

func run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务器启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("收到退出信号")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务出错: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭服务器出错", zap.Error(err))
		return err
	}
	logger.Info("服务器已关闭")
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "监听地址 (默认取配置 server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "监听端口 (默认取配置 server.port)")
}
