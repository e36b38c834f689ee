// Package worker mirrors ledger entries from SQLite to the spreadsheet passbook.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"futurebank/internal/amqp"
	"futurebank/internal/core"
	"futurebank/internal/ledger"
	"futurebank/internal/storage"
)

// EntrySource is the slice of the SQLite repository the worker needs.
type EntrySource interface {
	GetEntry(ctx context.Context, id int64) (core.Record, string, error)
	GetPendingSyncEntries(ctx context.Context, limit int) ([]storage.PendingEntry, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Consumer delivers sync messages until ctx is done.
type Consumer interface {
	ConsumeEntrySync(ctx context.Context, handler func(context.Context, *amqp.EntrySyncMessage) error) error
}

// SyncWorker appends pending entries to the sheet and marks them synced.
type SyncWorker struct {
	source    EntrySource
	sheet     ledger.Appender
	batchSize int

	// serializes syncs so the consumer and the sweep never append the same entry twice
	mu sync.Mutex
}

func NewSyncWorker(source EntrySource, sheet ledger.Appender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{source: source, sheet: sheet, batchSize: batchSize}
}

// HandleSyncMessage mirrors the entry named by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)
	return w.syncEntry(ctx, msg.ID)
}

// ProcessPending re-sends entries whose message was lost or whose sync failed.
// It returns how many entries were mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.source.GetPendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.syncEntry(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending entry", "id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// Run consumes messages and sweeps pending entries every interval until ctx
// is cancelled or one of the loops fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeEntrySync(ctx, w.HandleSyncMessage)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

func (w *SyncWorker) syncEntry(ctx context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec, status, err := w.source.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}
	if status == storage.SyncSynced {
		slog.DebugContext(ctx, "Entry already synced, skipping", "id", id)
		return nil
	}

	ref, err := w.sheet.Append(ctx, rec)
	if err != nil {
		if merr := w.source.MarkSyncError(ctx, id); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", merr)
		}
		return fmt.Errorf("append entry %d to sheet: %w", id, err)
	}

	if err := w.source.MarkSynced(ctx, id); err != nil {
		// the row is already in the sheet; a later sweep may append it again
		slog.ErrorContext(ctx, "Entry appended but not marked synced", "id", id, "ref", ref, "error", err)
		return nil
	}
	slog.InfoContext(ctx, "Entry mirrored to sheet", "id", id, "ref", ref, "user", rec.User, "item", rec.Item)
	return nil
}
