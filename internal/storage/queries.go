package storage

import (
	"context"
)

const entryColumns = `id, recorded_at, user, direction, category, item, value, points, sync_status, synced_at`

const createEntry = `
INSERT INTO ledger_entries (recorded_at, user, direction, category, item, value, points)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + entryColumns

type CreateEntryParams struct {
	RecordedAt string
	User       string
	Direction  string
	Category   string
	Item       string
	Value      string
	Points     int64
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (LedgerEntry, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.RecordedAt,
		arg.User,
		arg.Direction,
		arg.Category,
		arg.Item,
		arg.Value,
		arg.Points,
	)
	var i LedgerEntry
	err := scanEntry(row, &i)
	return i, err
}

const getEntry = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id int64) (LedgerEntry, error) {
	row := q.db.QueryRowContext(ctx, getEntry, id)
	var i LedgerEntry
	err := scanEntry(row, &i)
	return i, err
}

const listEntries = `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY id`

func (q *Queries) ListEntries(ctx context.Context) ([]LedgerEntry, error) {
	return q.list(ctx, listEntries)
}

const getPendingSyncEntries = `
SELECT ` + entryColumns + ` FROM ledger_entries
WHERE sync_status IN ('pending', 'error')
ORDER BY id
LIMIT ?`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]LedgerEntry, error) {
	return q.list(ctx, getPendingSyncEntries, limit)
}

const markEntrySynced = `
UPDATE ledger_entries SET sync_status = 'synced', synced_at = ?
WHERE id = ?`

func (q *Queries) MarkEntrySynced(ctx context.Context, syncedAt string, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markEntrySynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markEntrySyncError = `
UPDATE ledger_entries SET sync_status = 'error'
WHERE id = ? AND sync_status <> 'synced'`

func (q *Queries) MarkEntrySyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markEntrySyncError, id)
	return err
}

const countBySyncStatus = `SELECT COUNT(*) FROM ledger_entries WHERE sync_status = ?`

func (q *Queries) CountBySyncStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBySyncStatus, status).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner, i *LedgerEntry) error {
	return s.Scan(
		&i.ID,
		&i.RecordedAt,
		&i.User,
		&i.Direction,
		&i.Category,
		&i.Item,
		&i.Value,
		&i.Points,
		&i.SyncStatus,
		&i.SyncedAt,
	)
}

func (q *Queries) list(ctx context.Context, query string, args ...interface{}) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var i LedgerEntry
		if err := scanEntry(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
