// Package csvfile stores the ledger as a local delimited file, one record
// per line after a single header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

// New returns a store backed by path. The file is created on first append;
// loc is the zone timestamps are written and parsed in.
func New(path string, loc *time.Location) (*Store, error) {
	if path == "" {
		return nil, errors.New("csv path is required")
	}
	if loc == nil {
		loc = time.Local
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.Unavailable("create directory", err)
		}
	}
	return &Store{path: path, loc: loc}, nil
}

// Append writes one row and syncs the file before returning.
func (s *Store) Append(ctx context.Context, r core.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", core.Unavailable("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", core.Unavailable("open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", core.Unavailable("stat", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(core.Header); err != nil {
			return "", core.Unavailable("write header", err)
		}
	}
	r.Timestamp = r.Timestamp.In(s.loc)
	if err := w.Write(r.Row()); err != nil {
		return "", core.Unavailable("write", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", core.Unavailable("flush", err)
	}
	if err := f.Sync(); err != nil {
		return "", core.Unavailable("sync", err)
	}
	return fmt.Sprintf("%s@%d", filepath.Base(s.path), info.Size()), nil
}

// ReadAll decodes every row. A missing file is an empty ledger.
func (s *Store) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Unavailable("read", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, core.Unavailable("open", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	out := []core.Record{}
	for first := true; ; first = false {
		cols, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%s line %d: %w: %v", s.path, perr.Line, core.ErrMalformedRecord, err)
			}
			return nil, core.Unavailable("read", err)
		}
		if first && core.IsHeader(cols) {
			continue
		}
		if blank(cols) {
			continue
		}
		r, err := core.ParseRow(cols, s.loc)
		if err != nil {
			line, _ := rd.FieldPos(0)
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
