package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/storage"
)

// RowWriter is the sink for exported expense rows.
type RowWriter interface {
	AppendRows(ctx context.Context, items []storage.ExportItem) error
}

// Exporter drains pending expenses to the report spreadsheet. It runs on
// an interval and can additionally be kicked by change events.
type Exporter struct {
	storage   *storage.SQLiteRepository
	writer    RowWriter
	batchSize int
	interval  time.Duration
	kick      chan struct{}
}

func NewExporter(storage *storage.SQLiteRepository, writer RowWriter, batchSize int, interval time.Duration) *Exporter {
	return &Exporter{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
		interval:  interval,
		kick:      make(chan struct{}, 1),
	}
}

// Kick requests an export pass outside the regular interval. Duplicate
// kicks while a pass is pending collapse into one.
func (e *Exporter) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run exports pending expenses until the context is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Export worker started",
		"batch_size", e.batchSize, "interval", e.interval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Export worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		case <-e.kick:
		}

		if err := e.ExportPending(ctx); err != nil {
			slog.ErrorContext(ctx, "Export pass failed", "error", err)
		}
	}
}

// ExportPending pushes one batch of not-yet-exported expenses to the
// sheet. Rows in a failed batch stay pending and are retried on the next
// pass.
func (e *Exporter) ExportPending(ctx context.Context) error {
	items, err := e.storage.PendingExportExpenses(ctx, e.batchSize)
	if err != nil {
		return fmt.Errorf("load pending expenses: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	if err := e.writer.AppendRows(ctx, items); err != nil {
		for _, item := range items {
			if markErr := e.storage.MarkExportError(ctx, item.Expense.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to record export error",
					"expense_id", item.Expense.ID, "error", markErr)
			}
		}
		return fmt.Errorf("append batch of %d: %w", len(items), err)
	}

	for _, item := range items {
		if err := e.storage.MarkExported(ctx, item.Expense.ID); err != nil {
			return fmt.Errorf("mark expense %s exported: %w", item.Expense.ID, err)
		}
	}

	slog.InfoContext(ctx, "Exported expense batch", "count", len(items))
	return nil
}
