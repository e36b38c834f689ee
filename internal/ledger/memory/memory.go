package memory

import (
	"context"
	"fmt"
	"sync"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps the ledger in process memory. Used by tests and demo runs.
type Store struct {
	mu    sync.Mutex
	items []core.Record
}

func New(seed ...core.Record) *Store {
	return &Store{items: append([]core.Record(nil), seed...)}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(ctx context.Context, r core.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", core.Unavailable("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ReadAll returns a copy so callers cannot mutate stored history.
func (s *Store) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Unavailable("read", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record{}, s.items...), nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
