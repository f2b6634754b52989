// Package bulkload streams entity rows from legacy exports into the
// frontier through the coordinator's idempotent initialization path.
package bulkload

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/coordinator"
	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/metrics"
)

// Row is one entity tuple from an external export. An empty Status marks an
// attribute-only row (no lifecycle state is touched).
type Row struct {
	Kind     frontier.Kind
	ID       string
	Domain   string
	Priority float64
	Status   frontier.Status
	Parent   string
	Attrs    map[string]string
}

// RowSource streams rows from an export. Next returns false when the source
// is exhausted; Err reports the first failure.
type RowSource interface {
	Next(ctx context.Context) (Row, bool)
	Err() error
	Close() error
}

// Report summarizes one load run.
type Report struct {
	Loaded  int
	Skipped int
}

// Loader drives a RowSource into the coordinator, skipping malformed rows
// instead of aborting the whole load.
type Loader struct {
	coord  *coordinator.Coordinator
	logger *zap.Logger
}

// New constructs a Loader.
func New(coord *coordinator.Coordinator, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{coord: coord, logger: logger}
}

// Run consumes the source until exhaustion. Row-level failures are counted
// and logged; only source-level failures abort the run.
func (l *Loader) Run(ctx context.Context, src RowSource) (Report, error) {
	defer func() {
		if err := src.Close(); err != nil {
			l.logger.Warn("row source close failed", zap.Error(err))
		}
	}()

	var report Report
	for {
		row, ok := src.Next(ctx)
		if !ok {
			break
		}
		if err := l.loadRow(ctx, row); err != nil {
			report.Skipped++
			metrics.ObserveBulkloadRow("skipped")
			l.logger.Warn("row skipped",
				zap.String("kind", string(row.Kind)),
				zap.String("id", row.ID),
				zap.Error(err),
			)
			continue
		}
		report.Loaded++
		metrics.ObserveBulkloadRow("loaded")
	}
	if err := src.Err(); err != nil {
		return report, fmt.Errorf("row source failed: %w", err)
	}
	l.logger.Info("bulk load finished",
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (l *Loader) loadRow(ctx context.Context, row Row) error {
	if row.ID == "" {
		return fmt.Errorf("missing entity id")
	}
	switch row.Kind {
	case frontier.KindLink, frontier.KindWord, frontier.KindRecipe:
	default:
		return fmt.Errorf("unknown kind %q", row.Kind)
	}

	// Attribute-only rows (e.g. nutrient bags) bypass lifecycle state.
	if row.Status == "" {
		if len(row.Attrs) == 0 {
			return fmt.Errorf("row has neither status nor attributes")
		}
		return l.coord.SetAttributes(ctx, row.Kind, row.ID, row.Attrs)
	}

	if !row.Status.ValidFor(row.Kind) {
		return fmt.Errorf("status %q invalid for kind %q", row.Status, row.Kind)
	}
	if err := l.coord.InitStatus(ctx, row.Kind, row.ID, row.Status, row.Domain, row.Priority, row.Attrs); err != nil {
		return err
	}
	if parent, ok := frontier.NormalizeParent(row.Parent); ok && row.Kind == frontier.KindWord {
		if err := l.coord.SetWordParent(ctx, row.ID, parent); err != nil {
			// Keep the word; only the relation is dropped.
			l.logger.Warn("parent link rejected",
				zap.String("word", row.ID),
				zap.String("parent", parent),
				zap.Error(err),
			)
		}
	}
	return nil
}
