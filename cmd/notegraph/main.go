package main

import (
	"context"
	"database/sql"
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

	"github.com/pagenook/notegraph/internal/ai"
	"github.com/pagenook/notegraph/internal/chunker"
	"github.com/pagenook/notegraph/internal/config"
	"github.com/pagenook/notegraph/internal/db"
	"github.com/pagenook/notegraph/internal/handler"
	"github.com/pagenook/notegraph/internal/job"
	"github.com/pagenook/notegraph/internal/middleware"
	"github.com/pagenook/notegraph/internal/pagestore"
	"github.com/pagenook/notegraph/internal/repo"
	"github.com/pagenook/notegraph/internal/schedule"
	"github.com/pagenook/notegraph/internal/service"
	"github.com/pagenook/notegraph/internal/taskqueue"
)

func main() {
	var configPath string
	var rebuildUser string
	var rebuildKey string

	rootCmd := &cobra.Command{
		Use:   "notegraph",
		Short: "notegraph indexing and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run notegraph server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "rebuild one user's index synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if rebuildUser == "" {
				return fmt.Errorf("--user is required")
			}
			conn, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runRebuild(cfg, conn, rebuildUser, rebuildKey)
		},
	}
	rebuildCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rebuildCmd.Flags().StringVar(&rebuildUser, "user", "", "user id to rebuild")
	rebuildCmd.Flags().StringVar(&rebuildKey, "key", "", "embedding provider api key")
	rootCmd.AddCommand(runCmd, rebuildCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func buildServices(cfg *config.Config, conn *sql.DB, queue *taskqueue.Pool) (*service.BuildService, *service.RetrievalService, *repo.GraphRepo) {
	statusRepo := repo.NewStatusRepo(conn)
	graphRepo := repo.NewGraphRepo(conn)
	searchRepo := repo.NewSearchRepo(conn)
	pages := pagestore.NewSQLStore(conn)
	splitter := chunker.New(chunker.Config{
		ChunkSize: cfg.Chunking.ChunkSize,
		Overlap:   cfg.Chunking.Overlap,
	})
	factory := embedderFactory(cfg)

	builds := service.NewBuildService(statusRepo, graphRepo, pages, splitter, factory, queue)
	retrieval := service.NewRetrievalService(searchRepo, factory, cfg.Retrieval.TopK, cfg.Retrieval.NeighborRadius)
	return builds, retrieval, graphRepo
}

func embedderFactory(cfg *config.Config) service.EmbedderFactory {
	return func(credential string) (service.Embedder, error) {
		provider, err := ai.NewEmbedProvider(cfg.AI.Provider, map[string]string{"api_key": credential})
		if err != nil {
			return nil, err
		}
		return ai.NewClient(provider, ai.ClientConfig{
			Model:             cfg.AI.EmbedModel,
			Dimension:         cfg.AI.EmbedDim,
			BatchSize:         cfg.AI.BatchSize,
			MaxAttempts:       cfg.AI.MaxAttempts,
			Timeout:           time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			Concurrency:       cfg.Build.EmbedConcurrency,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		}), nil
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("embed_model", cfg.AI.EmbedModel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := taskqueue.New(cfg.Build.Workers, cfg.Build.QueueSize)
	queue.Start(ctx)
	defer queue.Stop()

	builds, retrieval, graphRepo := buildServices(cfg, conn, queue)
	statusRepo := repo.NewStatusRepo(conn)

	scheduler := schedule.NewCronScheduler()
	reaper := job.NewBuildReaperJob(statusRepo, time.Duration(cfg.Build.StaleAfterMin)*time.Minute)
	if err := scheduler.AddJob(reaper, "*/5 * * * *"); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	ragHandler := handler.NewRAGHandler(builds, retrieval, graphRepo)
	deps := handler.RouterDeps{
		RAG:                ragHandler,
		BuildTriggerWindow: 2 * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runRebuild(cfg *config.Config, conn *sql.DB, userID, key string) error {
	ctx := context.Background()
	queue := taskqueue.New(1, 1)
	queue.Start(ctx)
	defer queue.Stop()

	builds, _, _ := buildServices(cfg, conn, queue)
	searchRepo := repo.NewSearchRepo(conn)
	graphRepo := repo.NewGraphRepo(conn)

	if err := builds.RunForUser(ctx, userID, key); err != nil {
		return err
	}

	session, err := graphRepo.Acquire(ctx)
	if err != nil {
		return err
	}
	defer session.Close()
	pageIDs, err := session.ListPageIDs(ctx, userID)
	if err != nil {
		return err
	}
	total := 0
	for _, pageID := range pageIDs {
		n, err := searchRepo.CountChunks(ctx, pageID)
		if err != nil {
			return err
		}
		total += n
	}
	logutil.GetLogger(ctx).Info("rebuild finished",
		zap.String("user_id", userID),
		zap.Int("pages", len(pageIDs)),
		zap.Int("chunks", total),
	)
	return nil
}
