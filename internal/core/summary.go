package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UserBalance is one user's current point balance.
type UserBalance struct {
	User    string `json:"user"`
	Balance int64  `json:"balance"`
}

// Contribution is the earn-side points of one user in one category.
type Contribution struct {
	User     string   `json:"user"`
	Category Category `json:"category"`
	Points   int64    `json:"points"`
}

// TicketOffer tells which users can currently afford a ticket.
type TicketOffer struct {
	Ticket     Ticket          `json:"ticket"`
	Affordable map[string]bool `json:"affordable"`
}

// Summary is everything the dashboard shows, derived from one full read.
type Summary struct {
	TotalPoints   int64           `json:"total_points"`
	Balances      []UserBalance   `json:"balances"`
	SavedYen      decimal.Decimal `json:"saved_yen"`
	SavingCount   int             `json:"saving_count"`
	DietCount     int             `json:"diet_count"`
	Contributions []Contribution  `json:"contributions"`
	Offers        []TicketOffer   `json:"offers"`
	Records       int             `json:"records"`
}

// Summarize derives the dashboard figures for users from the full ledger.
func Summarize(l Ledger, users []string, tickets []Ticket) Summary {
	s := Summary{
		TotalPoints: l.TotalPoints(),
		SavedYen:    l.TotalByCategory(Saving),
		SavingCount: l.CountByCategory(Saving),
		DietCount:   l.CountByCategory(Diet),
		Records:     len(l),
	}
	for _, u := range users {
		s.Balances = append(s.Balances, UserBalance{User: u, Balance: l.BalanceFor(u)})
	}

	for k, pts := range l.BreakdownByUserAndCategory() {
		s.Contributions = append(s.Contributions, Contribution{User: k.User, Category: k.Category, Points: pts})
	}
	sort.Slice(s.Contributions, func(i, j int) bool {
		a, b := s.Contributions[i], s.Contributions[j]
		if a.User != b.User {
			return a.User < b.User
		}
		return a.Category < b.Category
	})

	for _, t := range tickets {
		offer := TicketOffer{Ticket: t, Affordable: make(map[string]bool, len(users))}
		for _, u := range users {
			offer.Affordable[u] = l.CanAfford(u, t.Cost)
		}
		s.Offers = append(s.Offers, offer)
	}
	return s
}

// BalanceOf returns the balance of user from the summary, or 0.
func (s Summary) BalanceOf(user string) int64 {
	for _, b := range s.Balances {
		if b.User == user {
			return b.Balance
		}
	}
	return 0
}
