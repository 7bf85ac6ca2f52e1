package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/campuskb/campuskb/internal/ai"
	"github.com/campuskb/campuskb/internal/config"
	"github.com/campuskb/campuskb/internal/drive"
	"github.com/campuskb/campuskb/internal/handler"
	"github.com/campuskb/campuskb/internal/ingest"
	"github.com/campuskb/campuskb/internal/job"
	"github.com/campuskb/campuskb/internal/knowledge"
	"github.com/campuskb/campuskb/internal/logsink"
	"github.com/campuskb/campuskb/internal/middleware"
	"github.com/campuskb/campuskb/internal/model"
	"github.com/campuskb/campuskb/internal/schedule"
	"github.com/campuskb/campuskb/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "campuskb",
		Short: "campuskb document-grounded Q&A server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run campuskb server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("log_sink", cfg.LogSink.Type),
		zap.Int("roles", len(cfg.Roles)),
	)

	store, err := drive.New(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		return fmt.Errorf("init drive client: %w", err)
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	sink, err := logsink.New(cfg.LogSink.Type, cfg.LogSink.Data)
	if err != nil {
		return fmt.Errorf("init log sink: %w", err)
	}

	roles := make([]model.RoleTag, 0, len(cfg.Roles))
	for _, role := range cfg.Roles {
		roles = append(roles, model.RoleTag(role.Tag))
	}

	cache := knowledge.NewCache()
	worker := ingest.NewWorker(store, provider, cfg.Ingest)
	syncService := service.NewSyncService(store, worker, cache, cfg.Drive.RootFolderID, roles)
	chatService := service.NewChatService(provider, cache, sink, cfg.Chat, cfg.Roles)

	// Startup sync blocks until the first snapshot is built. A failure
	// leaves the empty snapshot in place; the server still comes up so
	// a later refresh can recover.
	if _, err := syncService.Sync(ctx); err != nil {
		logutil.GetLogger(ctx).Error("startup sync failed", zap.Error(err))
	}

	deps := handler.RouterDeps{
		Chat:           handler.NewChatHandler(chatService),
		Sync:           handler.NewSyncHandler(syncService),
		RefreshLimiter: 10 * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.ResyncCron != "" {
		if err := scheduler.AddJob(job.NewResyncJob(syncService), cfg.ResyncCron); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
