package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"futurebank/internal/core"
	"futurebank/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// recordedAtLayout keeps the zone so a row reads back as the same instant.
const recordedAtLayout = time.RFC3339

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	loc     *time.Location
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations. loc is the zone records are returned in.
func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.Appender. The returned reference is the row id.
func (r *SQLiteRepository) Append(ctx context.Context, rec core.Record) (string, error) {
	entry, err := r.queries.CreateEntry(ctx, CreateEntryParams{
		RecordedAt: rec.Timestamp.Format(recordedAtLayout),
		User:       rec.User,
		Direction:  string(rec.Direction),
		Category:   string(rec.Category),
		Item:       rec.Item,
		Value:      rec.Value.String(),
		Points:     rec.Points,
	})
	if err != nil {
		return "", core.Unavailable("insert entry", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved to SQLite",
		"id", entry.ID,
		"user", entry.User,
		"direction", entry.Direction,
		"item", entry.Item,
		"points", entry.Points)

	return strconv.FormatInt(entry.ID, 10), nil
}

// ReadAll implements ledger.Reader.
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.Record, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, core.Unavailable("list entries", err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, e := range rows {
		rec, err := r.toRecord(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// PendingEntry is the minimal data a sync message carries.
type PendingEntry struct {
	ID         int64
	RecordedAt time.Time
}

// GetPendingSyncEntries returns entries not yet mirrored (including earlier failures), oldest first.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingEntry, 0, len(rows))
	for _, e := range rows {
		ts, _ := time.Parse(recordedAtLayout, e.RecordedAt)
		out = append(out, PendingEntry{ID: e.ID, RecordedAt: ts})
	}
	return out, nil
}

// GetEntry loads one entry as a domain record together with its sync status.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.Record, string, error) {
	e, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, "", fmt.Errorf("entry %d: %w", id, err)
	}
	if err != nil {
		return core.Record{}, "", core.Unavailable("get entry", err)
	}
	rec, err := r.toRecord(e)
	if err != nil {
		return core.Record{}, "", fmt.Errorf("entry %d: %w", id, err)
	}
	return rec, e.SyncStatus, nil
}

// MarkSynced marks an entry as mirrored to the spreadsheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	n, err := r.queries.MarkEntrySynced(ctx, time.Now().UTC().Format(recordedAtLayout), id)
	if err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark entry synced: entry %d: %w", id, sql.ErrNoRows)
	}
	slog.InfoContext(ctx, "Ledger entry marked as synced", "id", id)
	return nil
}

// MarkSyncError flags an entry so the next sweep retries it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger entry marked with sync error", "id", id)
	return nil
}

// SyncStats counts entries per sync status.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	stats := map[string]int64{}
	for _, s := range []string{SyncPending, SyncSynced, SyncError} {
		n, err := r.queries.CountBySyncStatus(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("count %s entries: %w", s, err)
		}
		stats[s] = n
	}
	return stats, nil
}

func (r *SQLiteRepository) toRecord(e LedgerEntry) (core.Record, error) {
	ts, err := time.Parse(recordedAtLayout, e.RecordedAt)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: recorded_at %q", core.ErrMalformedRecord, e.RecordedAt)
	}
	value, err := decimal.NewFromString(e.Value)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: value %q", core.ErrMalformedRecord, e.Value)
	}
	return core.Record{
		Timestamp: ts.In(r.loc),
		User:      e.User,
		Direction: core.Direction(e.Direction),
		Category:  core.Category(e.Category),
		Item:      e.Item,
		Value:     value,
		Points:    e.Points,
	}, nil
}
