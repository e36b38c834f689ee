// Package ledgertest holds the behaviour every ledger.Store backend must share.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
)

// Sample returns a deterministic mix of earn and spend records.
func Sample(loc *time.Location) []core.Record {
	base := time.Date(2025, 3, 1, 8, 30, 0, 0, loc)
	return []core.Record{
		{Timestamp: base, User: "阿部", Direction: core.Earn, Category: core.Saving, Item: "つもり貯金", Value: decimal.NewFromInt(100), Points: 100},
		{Timestamp: base.Add(time.Minute), User: "あや", Direction: core.Earn, Category: core.Diet, Item: "筋トレ", Value: decimal.NewFromInt(1), Points: 50},
		{Timestamp: base.Add(2 * time.Minute), User: "阿部", Direction: core.Earn, Category: core.Saving, Item: "ランチ, 弁当持参", Value: decimal.RequireFromString("450.5"), Points: 450},
		core.Ticket{Name: "肩揉み10分券", Cost: 300}.SpendRecord("阿部", base.Add(3*time.Minute)),
	}
}

// Run exercises the store contract against a freshly created, empty store.
func Run(t *testing.T, loc *time.Location, newStore func(t *testing.T) ledger.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store reads as empty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, core.Ledger(got).TotalPoints())
	})

	t.Run("round trip keeps fields and order", func(t *testing.T) {
		s := newStore(t)
		want := Sample(loc)
		for _, r := range want {
			ref, err := s.Append(ctx, r)
			require.NoError(t, err)
			assert.NotEmpty(t, ref)
		}
		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			AssertSame(t, want[i], got[i])
		}
		assert.Equal(t, int64(100+50+450-300), core.Ledger(got).TotalPoints())
	})

	t.Run("appends are not deduplicated", func(t *testing.T) {
		s := newStore(t)
		r := Sample(loc)[1]
		for i := 0; i < 3; i++ {
			_, err := s.Append(ctx, r)
			require.NoError(t, err)
		}
		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, 3, core.Ledger(got).CountByCategory(core.Diet))
	})
}

// AssertSame compares records field by field; decimals and instants are
// compared by value rather than representation.
func AssertSame(t *testing.T, want, got core.Record) {
	t.Helper()
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp: want %s got %s", want.Timestamp, got.Timestamp)
	assert.Equal(t, want.User, got.User)
	assert.Equal(t, want.Direction, got.Direction)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Item, got.Item)
	assert.True(t, want.Value.Equal(got.Value), "value: want %s got %s", want.Value, got.Value)
	assert.Equal(t, want.Points, got.Points)
}
