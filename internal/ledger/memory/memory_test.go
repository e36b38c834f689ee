package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
	"futurebank/internal/ledger/ledgertest"
)

func TestMemoryStoreContract(t *testing.T) {
	ledgertest.Run(t, time.UTC, func(t *testing.T) ledger.Store { return New() })
}

func TestMemoryStoreRefsAndCopies(t *testing.T) {
	s := New()
	rec := ledgertest.Sample(time.UTC)[0]
	ref, err := s.Append(context.Background(), rec)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	got, _ := s.ReadAll(context.Background())
	got[0].Points = 999
	again, _ := s.ReadAll(context.Background())
	if again[0].Points != rec.Points {
		t.Fatalf("ReadAll leaked internal slice")
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	if _, err := s.Append(ctx, ledgertest.Sample(time.UTC)[0]); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("cancelled append must not persist")
	}
}
