package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxItemLength is the longest item text, in characters.
const MaxItemLength = 200

const (
	Earn  Direction = "earn"
	Spend Direction = "spend"
)

const (
	Saving Category = "saving"
	Diet   Category = "diet"
	Shop   Category = "shop"
)

type (
	// Direction tells whether a record adds points or consumes them.
	Direction string

	// Category classifies the purpose of a record. Values outside the
	// known set are kept as-is when read back from a store.
	Category string

	// Record is one immutable ledger event.
	Record struct {
		Timestamp time.Time       `json:"timestamp"`
		User      string          `json:"user"`
		Direction Direction       `json:"direction"`
		Category  Category        `json:"category"`
		Item      string          `json:"item"`
		Value     decimal.Decimal `json:"value"` // yen saved, a count, or 1 for a ticket
		Points    int64           `json:"points"`
	}

	// Ticket is a reward that can be bought with points.
	Ticket struct {
		Name string `toml:"name" json:"name"`
		Cost int64  `toml:"cost" json:"cost"`
	}
)

func (d Direction) Valid() bool {
	return d == Earn || d == Spend
}

func (c Category) String() string {
	return string(c)
}

// Validate checks the invariants every record must hold before it is appended.
func (r Record) Validate() error {
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if strings.TrimSpace(r.User) == "" {
		return ErrEmptyUser
	}
	if !r.Direction.Valid() {
		return ErrInvalidDirection
	}
	if strings.TrimSpace(string(r.Category)) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.Item) == "" {
		return ErrEmptyItem
	}
	if utf8.RuneCountInString(r.Item) > MaxItemLength {
		return ErrItemTooLong
	}
	if r.Value.IsNegative() {
		return ErrInvalidValue
	}
	switch r.Direction {
	case Earn:
		if r.Points < 0 {
			return ErrPointsSign
		}
	case Spend:
		if r.Points > 0 {
			return ErrPointsSign
		}
	}
	return nil
}

// Validate checks that the ticket can be offered in a catalog.
func (t Ticket) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyItem
	}
	if t.Cost <= 0 {
		return ErrInvalidCost
	}
	return nil
}

// SpendRecord builds the record that redeems t for user at the given time.
func (t Ticket) SpendRecord(user string, at time.Time) Record {
	return Record{
		Timestamp: at.Truncate(time.Second),
		User:      user,
		Direction: Spend,
		Category:  Shop,
		Item:      t.Name,
		Value:     decimal.NewFromInt(1),
		Points:    -t.Cost,
	}
}
