// Package adapters composes stores into the ledger.Store the app runs on.
package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
)

// SyncPublisher announces a freshly stored entry to the passbook worker.
type SyncPublisher interface {
	PublishEntrySync(ctx context.Context, id int64) error
}

// SQLiteAdapter writes to SQLite and then publishes a sync message so the
// worker can mirror the entry to the spreadsheet. SQLite is the durable copy;
// a failed publish is logged and picked up later by the worker sweep.
type SQLiteAdapter struct {
	store          ledger.Store
	publisher      SyncPublisher
	onPublishError func(error)
}

var _ ledger.Store = (*SQLiteAdapter)(nil)

// NewSQLiteAdapter wraps store; publisher may be nil when no broker is configured.
func NewSQLiteAdapter(store ledger.Store, publisher SyncPublisher) *SQLiteAdapter {
	return &SQLiteAdapter{store: store, publisher: publisher}
}

// OnPublishError registers a hook called for every failed publish (metrics).
func (a *SQLiteAdapter) OnPublishError(fn func(error)) {
	a.onPublishError = fn
}

// Append implements ledger.Appender.
func (a *SQLiteAdapter) Append(ctx context.Context, r core.Record) (string, error) {
	ref, err := a.store.Append(ctx, r)
	if err != nil {
		return "", err
	}
	if a.publisher == nil {
		return ref, nil
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse entry ID", "ref", ref, "error", err)
		return ref, nil
	}
	if err := a.publisher.PublishEntrySync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
		if a.onPublishError != nil {
			a.onPublishError(fmt.Errorf("publish entry %d: %w", id, err))
		}
	}
	return ref, nil
}

// ReadAll implements ledger.Reader.
func (a *SQLiteAdapter) ReadAll(ctx context.Context) ([]core.Record, error) {
	return a.store.ReadAll(ctx)
}
