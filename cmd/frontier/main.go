// Package main wires together the frontier service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/api"
	"github.com/JakeFAU/crawl-frontier/internal/clock/system"
	"github.com/JakeFAU/crawl-frontier/internal/config"
	"github.com/JakeFAU/crawl-frontier/internal/coordinator"
	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	frontiermemory "github.com/JakeFAU/crawl-frontier/internal/frontier/memory"
	frontierpg "github.com/JakeFAU/crawl-frontier/internal/frontier/postgres"
	"github.com/JakeFAU/crawl-frontier/internal/logging"
	memorypublisher "github.com/JakeFAU/crawl-frontier/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/crawl-frontier/internal/publisher/pubsub"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		attrs     frontier.AttributeStore
		status    frontier.StatusIndex
		linkQueue frontier.QueueManager
		wordQueue frontier.QueueManager
		budget    frontier.BudgetLedger
		graph     frontier.WordGraph
	)
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := frontierpg.Connect(ctx, cfg.DB.DSN, int32(cfg.DB.MaxOpenConns))
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer pool.Close()
		if err := frontierpg.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("schema apply failed", zap.Error(err))
		}
		attrs = frontierpg.NewAttributeStore(pool)
		status = frontierpg.NewStatusIndex(pool)
		linkQueue = frontierpg.NewQueue(pool, frontier.KindLink)
		wordQueue = frontierpg.NewQueue(pool, frontier.KindWord)
		budget = frontierpg.NewBudgetLedger(pool, cfg.Frontier.DefaultFollowBudget)
		graph = frontierpg.NewWordGraph(pool, cfg.Frontier.MaxParentDepth)
	default:
		attrs = frontiermemory.NewAttributeStore()
		status = frontiermemory.NewStatusIndex()
		linkQueue = frontiermemory.NewQueue()
		wordQueue = frontiermemory.NewQueue()
		budget = frontiermemory.NewBudgetLedger(cfg.Frontier.DefaultFollowBudget)
		graph = frontiermemory.NewWordGraph(cfg.Frontier.MaxParentDepth)
	}

	var publisher frontier.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		psPublisher, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub publisher init failed", zap.Error(err))
		}
		defer func() {
			if cerr := psPublisher.Close(); cerr != nil {
				logger.Warn("pubsub close failed", zap.Error(cerr))
			}
		}()
		publisher = psPublisher
	} else {
		publisher = memorypublisher.New()
	}

	coord := coordinator.New(
		attrs,
		status,
		linkQueue,
		wordQueue,
		budget,
		graph,
		frontier.NewBlacklist(cfg.Blacklist.Entries),
		publisher,
		system.New(),
		coordinator.Config{EventTopic: cfg.PubSub.TopicName},
		logger.Named("coordinator"),
	)

	if cfg.Frontier.RequeueStuckOnStart {
		for _, kind := range []frontier.Kind{frontier.KindLink, frontier.KindWord} {
			n, err := coord.RequeueStuck(ctx, kind)
			if err != nil {
				logger.Error("stuck requeue sweep failed",
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				continue
			}
			if n > 0 {
				logger.Info("stuck entities requeued",
					zap.String("kind", string(kind)),
					zap.Int("count", n),
				)
			}
		}
	}

	apiServer := api.NewServer(coord, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
