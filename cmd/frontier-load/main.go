// Package main imports legacy frontier exports into the backing store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/bulkload"
	"github.com/JakeFAU/crawl-frontier/internal/clock/system"
	"github.com/JakeFAU/crawl-frontier/internal/config"
	"github.com/JakeFAU/crawl-frontier/internal/coordinator"
	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	frontiermemory "github.com/JakeFAU/crawl-frontier/internal/frontier/memory"
	frontierpg "github.com/JakeFAU/crawl-frontier/internal/frontier/postgres"
	"github.com/JakeFAU/crawl-frontier/internal/logging"
	memorypublisher "github.com/JakeFAU/crawl-frontier/internal/publisher/memory"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	source := flag.String("source", "", "Import source: waiting-links, words, or csv")
	legacyDSN := flag.String("legacy-dsn", "", "DSN of the legacy export database")
	csvPath := flag.String("csv", "", "Path to a headered CSV attribute export")
	csvKind := flag.String("csv-kind", string(frontier.KindRecipe), "Entity kind for CSV rows")
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

	coord, cleanup, err := buildCoordinator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("coordinator init failed", zap.Error(err))
	}
	defer cleanup()

	src, err := openSource(ctx, *source, *legacyDSN, *csvPath, *csvKind)
	if err != nil {
		logger.Fatal("source init failed", zap.Error(err))
	}

	loader := bulkload.New(coord, logger.Named("bulkload"))
	report, err := loader.Run(ctx, src)
	if err != nil {
		logger.Fatal("bulk load failed",
			zap.Int("loaded", report.Loaded),
			zap.Int("skipped", report.Skipped),
			zap.Error(err),
		)
	}
	logger.Info("import complete",
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
	)
}

func buildCoordinator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*coordinator.Coordinator, func(), error) {
	var (
		attrs     frontier.AttributeStore
		status    frontier.StatusIndex
		linkQueue frontier.QueueManager
		wordQueue frontier.QueueManager
		budget    frontier.BudgetLedger
		graph     frontier.WordGraph
		cleanup   = func() {}
	)
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := frontierpg.Connect(ctx, cfg.DB.DSN, int32(cfg.DB.MaxOpenConns))
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := frontierpg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
		attrs = frontierpg.NewAttributeStore(pool)
		status = frontierpg.NewStatusIndex(pool)
		linkQueue = frontierpg.NewQueue(pool, frontier.KindLink)
		wordQueue = frontierpg.NewQueue(pool, frontier.KindWord)
		budget = frontierpg.NewBudgetLedger(pool, cfg.Frontier.DefaultFollowBudget)
		graph = frontierpg.NewWordGraph(pool, cfg.Frontier.MaxParentDepth)
		cleanup = pool.Close
	default:
		attrs = frontiermemory.NewAttributeStore()
		status = frontiermemory.NewStatusIndex()
		linkQueue = frontiermemory.NewQueue()
		wordQueue = frontiermemory.NewQueue()
		budget = frontiermemory.NewBudgetLedger(cfg.Frontier.DefaultFollowBudget)
		graph = frontiermemory.NewWordGraph(cfg.Frontier.MaxParentDepth)
	}

	coord := coordinator.New(
		attrs,
		status,
		linkQueue,
		wordQueue,
		budget,
		graph,
		frontier.NewBlacklist(cfg.Blacklist.Entries),
		memorypublisher.New(),
		system.New(),
		coordinator.Config{},
		logger.Named("coordinator"),
	)
	return coord, cleanup, nil
}

func openSource(ctx context.Context, source, legacyDSN, csvPath, csvKind string) (bulkload.RowSource, error) {
	switch source {
	case "waiting-links", "words":
		pool, err := frontierpg.Connect(ctx, legacyDSN, 0)
		if err != nil {
			return nil, fmt.Errorf("legacy connect: %w", err)
		}
		if source == "waiting-links" {
			return bulkload.NewWaitingLinkSource(ctx, pool)
		}
		return bulkload.NewWordSource(ctx, pool)
	case "csv":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		return bulkload.NewCSVAttributeSource(f, frontier.Kind(csvKind))
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}
