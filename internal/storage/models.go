package storage

import "database/sql"

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type LedgerEntry struct {
	ID         int64
	RecordedAt string
	User       string
	Direction  string
	Category   string
	Item       string
	Value      string
	Points     int64
	SyncStatus string
	SyncedAt   sql.NullString
}
