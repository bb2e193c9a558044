package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/tidypics/api/core"
	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/internal/di"
	"github.com/anoixa/tidypics/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll(cfg.StorageTempDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StorageTempDir).Msg("Failed to create temp directory")
	}

	container := di.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// 启动时清理残留临时文件
	utils.SafeGo(func() {
		if _, err := cleanOldTempFiles(cfg.StorageTempDir, 24*time.Hour, false); err != nil {
			log.Warn().Err(err).Msg("Failed to clean temp directory")
		}
	})

	// 上传校验与缩略图配置支持热更新
	config.Watch(container.ApplyConfig)

	// 启动gin
	server, cleanup := core.StartServer(container)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("version", config.Version).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if cleanup != nil {
		cleanup()
	}

	// 关闭 DI 容器，排空事件队列
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing container")
	}

	log.Info().Msg("Server exited successfully")
}
