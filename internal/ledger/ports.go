// Package ledger declares the append-only store every backend implements.
package ledger

import (
	"context"

	"futurebank/internal/core"
)

// Ports for outbound adapters. Records are never updated or deleted.
type (
	Appender interface {
		// Append durably persists one record and returns a backend reference
		// (row range, file line, row id). No dedup and no validation happen here.
		Append(ctx context.Context, r core.Record) (ref string, err error)
	}

	Reader interface {
		// ReadAll returns every record in insertion order, oldest first.
		ReadAll(ctx context.Context) ([]core.Record, error)
	}

	Store interface {
		Appender
		Reader
	}
)
