// Package catalog loads the static menu of reward tickets and fixed earn
// actions. The menu is configuration, never persisted in the ledger.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"futurebank/internal/core"
)

//go:embed default.toml
var defaultTOML string

// Action is a fixed earn button: one click appends one earn record.
type Action struct {
	Name     string          `toml:"name" json:"name"`
	Category core.Category   `toml:"category" json:"category"`
	Value    decimal.Decimal `toml:"value" json:"value"`
	Points   int64           `toml:"points" json:"points"`
	Note     string          `toml:"note" json:"note,omitempty"`
}

// Catalog is the read-only menu offered to both users.
type Catalog struct {
	Tickets []core.Ticket `toml:"ticket" json:"tickets"`
	Actions []Action      `toml:"action" json:"actions"`
}

// Default returns the built-in menu.
func Default() *Catalog {
	c, err := Parse(defaultTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a TOML file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a TOML catalog.
func Parse(data string) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown catalog keys: %v", undecoded)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names are unique and amounts are sensible.
func (c *Catalog) Validate() error {
	var errs []string

	seen := map[string]bool{}
	for i, t := range c.Tickets {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("ticket %d (%q): %v", i, t.Name, err))
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Sprintf("duplicate ticket %q", t.Name))
		}
		seen[t.Name] = true
	}

	seen = map[string]bool{}
	for i, a := range c.Actions {
		switch {
		case strings.TrimSpace(a.Name) == "":
			errs = append(errs, fmt.Sprintf("action %d: empty name", i))
		case strings.TrimSpace(string(a.Category)) == "":
			errs = append(errs, fmt.Sprintf("action %q: empty category", a.Name))
		case !a.Value.IsPositive():
			errs = append(errs, fmt.Sprintf("action %q: value must be positive", a.Name))
		case a.Points < 0:
			errs = append(errs, fmt.Sprintf("action %q: points must not be negative", a.Name))
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Sprintf("duplicate action %q", a.Name))
		}
		seen[a.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Ticket looks a ticket up by name.
func (c *Catalog) Ticket(name string) (core.Ticket, error) {
	for _, t := range c.Tickets {
		if t.Name == name {
			return t, nil
		}
	}
	return core.Ticket{}, core.ErrUnknownTicket
}

// Action looks an earn action up by name.
func (c *Catalog) Action(name string) (Action, error) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, nil
		}
	}
	return Action{}, core.ErrUnknownAction
}

// ActionsIn returns the actions of one category in menu order.
func (c *Catalog) ActionsIn(category core.Category) []Action {
	var out []Action
	for _, a := range c.Actions {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Record builds the earn record for user clicking this action at the given time.
func (a Action) Record(user string, at time.Time) core.Record {
	return core.Record{
		Timestamp: at.Truncate(time.Second),
		User:      user,
		Direction: core.Earn,
		Category:  a.Category,
		Item:      a.Name,
		Value:     a.Value,
		Points:    a.Points,
	}
}
