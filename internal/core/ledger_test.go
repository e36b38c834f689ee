package core

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func earn(user string, cat Category, value, points int64) Record {
	return Record{Timestamp: t0, User: user, Direction: Earn, Category: cat, Item: "x", Value: decimal.NewFromInt(value), Points: points}
}

func spend(user string, cost int64) Record {
	return Ticket{Name: "ticket", Cost: cost}.SpendRecord(user, t0)
}

func TestEmptyLedgerIsAllZero(t *testing.T) {
	var l Ledger
	assert.Zero(t, l.BalanceFor("A"))
	assert.Zero(t, l.TotalPoints())
	assert.True(t, l.TotalByCategory(Saving).IsZero())
	assert.Zero(t, l.CountByCategory(Diet))
	assert.Empty(t, l.BreakdownByUserAndCategory())
	assert.True(t, l.CanAfford("A", 0))
	assert.False(t, l.CanAfford("A", 1))
}

func TestTotalPointsIndependentOfOrder(t *testing.T) {
	l := Ledger{
		earn("A", Saving, 500, 500),
		earn("B", Diet, 1, 50),
		spend("A", 300),
		earn("B", Saving, 200, 200),
		spend("B", 1000),
	}
	want := int64(500 + 50 - 300 + 200 - 1000)
	require.Equal(t, want, l.TotalPoints())
	assert.Equal(t, l.BalanceFor("A")+l.BalanceFor("B"), l.TotalPoints())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append(Ledger(nil), l...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, shuffled.TotalPoints())
	}
}

func TestBalanceIsolatedAcrossUsers(t *testing.T) {
	l := Ledger{earn("A", Saving, 100, 100)}
	before := l.BalanceFor("A")
	l = append(l, earn("B", Diet, 1, 50), spend("B", 500))
	assert.Equal(t, before, l.BalanceFor("A"))
	assert.Equal(t, int64(-450), l.BalanceFor("B"))
}

func TestCanAffordThreshold(t *testing.T) {
	l := Ledger{earn("A", Saving, 300, 300)}
	assert.True(t, l.CanAfford("A", 300), "balance == cost is affordable")

	l = append(l, spend("A", 1))
	assert.False(t, l.CanAfford("A", 300))

	l = append(l, earn("A", Diet, 1, 1))
	assert.True(t, l.CanAfford("A", 300))
}

func TestDietScenario(t *testing.T) {
	l := Ledger{
		earn("B", Diet, 1, 50),
		earn("B", Diet, 1, 30),
		earn("B", Diet, 1, 50),
	}
	assert.Equal(t, 3, l.CountByCategory(Diet))
	assert.Equal(t, int64(130), l.BalanceFor("B"))
}

func TestSavingValueScenario(t *testing.T) {
	l := Ledger{
		earn("A", Saving, 500, 500),
		earn("B", Saving, 200, 200),
	}
	assert.True(t, decimal.NewFromInt(700).Equal(l.TotalByCategory(Saving)))
}

func TestTotalByCategoryUsesValueNotPoints(t *testing.T) {
	l := Ledger{
		earn("A", Saving, 1200, 10),
		spend("A", 5),
	}
	assert.True(t, decimal.NewFromInt(1200).Equal(l.TotalByCategory(Saving)))
	assert.True(t, l.TotalByCategory(Shop).IsZero(), "spends never count towards category totals")
	assert.Zero(t, l.CountByCategory(Shop))
}

func TestUnknownCategoryTolerated(t *testing.T) {
	l := Ledger{earn("A", Category("gardening"), 1, 20)}
	assert.Zero(t, l.CountByCategory(Diet))
	assert.True(t, l.TotalByCategory(Saving).IsZero())
	assert.Equal(t, 1, l.CountByCategory("gardening"))
	assert.Equal(t, int64(20), l.BalanceFor("A"))
}

func TestBreakdownExcludesSpends(t *testing.T) {
	l := Ledger{
		earn("A", Saving, 100, 100),
		earn("A", Saving, 300, 300),
		earn("A", Diet, 1, 50),
		earn("B", Diet, 1, 30),
		spend("A", 300),
		earn("B", Diet, 1, 0),
	}
	got := l.BreakdownByUserAndCategory()
	assert.Equal(t, map[UserCategory]int64{
		{User: "A", Category: Saving}: 400,
		{User: "A", Category: Diet}:   50,
		{User: "B", Category: Diet}:   30,
	}, got)
}

func TestSummarize(t *testing.T) {
	l := Ledger{
		earn("A", Saving, 500, 500),
		earn("B", Diet, 1, 50),
		spend("A", 300),
	}
	tickets := []Ticket{{Name: "small", Cost: 200}, {Name: "big", Cost: 1000}}
	s := Summarize(l, []string{"A", "B"}, tickets)

	assert.Equal(t, int64(250), s.TotalPoints)
	assert.Equal(t, int64(200), s.BalanceOf("A"))
	assert.Equal(t, int64(50), s.BalanceOf("B"))
	assert.Zero(t, s.BalanceOf("nobody"))
	assert.True(t, decimal.NewFromInt(500).Equal(s.SavedYen))
	assert.Equal(t, 1, s.SavingCount)
	assert.Equal(t, 1, s.DietCount)
	assert.Equal(t, 3, s.Records)
	require.Len(t, s.Contributions, 2)
	assert.Equal(t, Contribution{User: "A", Category: Saving, Points: 500}, s.Contributions[0])

	require.Len(t, s.Offers, 2)
	assert.True(t, s.Offers[0].Affordable["A"])
	assert.False(t, s.Offers[0].Affordable["B"])
	assert.False(t, s.Offers[1].Affordable["A"])
}
