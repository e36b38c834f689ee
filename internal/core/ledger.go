package core

import (
	"github.com/shopspring/decimal"
)

// Ledger is the full, ordered record history. Every query below is a fold
// over the whole slice; nothing is cached between calls.
type Ledger []Record

// UserCategory keys the contribution breakdown.
type UserCategory struct {
	User     string
	Category Category
}

// BalanceFor sums the points of every record owned by user.
func (l Ledger) BalanceFor(user string) int64 {
	var sum int64
	for _, r := range l {
		if r.User == user {
			sum += r.Points
		}
	}
	return sum
}

// TotalPoints sums the points of every record. It may be negative.
func (l Ledger) TotalPoints() int64 {
	var sum int64
	for _, r := range l {
		sum += r.Points
	}
	return sum
}

// TotalByCategory sums Value (not Points) over earn records of category.
func (l Ledger) TotalByCategory(category Category) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range l {
		if r.Direction == Earn && r.Category == category {
			sum = sum.Add(r.Value)
		}
	}
	return sum
}

// CountByCategory counts earn records of category.
func (l Ledger) CountByCategory(category Category) int {
	n := 0
	for _, r := range l {
		if r.Direction == Earn && r.Category == category {
			n++
		}
	}
	return n
}

// BreakdownByUserAndCategory sums positive points per (user, category).
// Spends are consumption, not contribution, and are left out.
func (l Ledger) BreakdownByUserAndCategory() map[UserCategory]int64 {
	out := make(map[UserCategory]int64)
	for _, r := range l {
		if r.Points <= 0 {
			continue
		}
		out[UserCategory{User: r.User, Category: r.Category}] += r.Points
	}
	return out
}

// CanAfford reports whether user's balance covers cost. The boundary is
// inclusive: a balance equal to cost is affordable.
func (l Ledger) CanAfford(user string, cost int64) bool {
	return l.BalanceFor(user) >= cost
}
