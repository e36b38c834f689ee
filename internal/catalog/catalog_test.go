package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futurebank/internal/core"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if len(c.Tickets) != 4 {
		t.Fatalf("expected 4 tickets, got %d", len(c.Tickets))
	}
	tk, err := c.Ticket("肩揉み10分券")
	if err != nil || tk.Cost != 300 {
		t.Fatalf("unexpected ticket: %+v err=%v", tk, err)
	}
	if _, err := c.Ticket("nope"); !errors.Is(err, core.ErrUnknownTicket) {
		t.Fatalf("expected ErrUnknownTicket, got %v", err)
	}

	a, err := c.Action("つもり貯金")
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	if a.Category != core.Saving || a.Points != 100 || !a.Value.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected action: %+v", a)
	}
	if got := len(c.ActionsIn(core.Diet)); got != 3 {
		t.Fatalf("expected 3 diet actions, got %d", got)
	}
}

func TestActionRecordKeepsValueSeparateFromPoints(t *testing.T) {
	a, err := Default().Action("筋トレ")
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	r := a.Record("A", time.Date(2025, 1, 1, 7, 0, 0, 500, time.UTC))
	if r.Points != 50 || !r.Value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected value 1 and points 50, got %s / %d", r.Value, r.Points)
	}
	if r.Direction != core.Earn || r.Timestamp.Nanosecond() != 0 {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero cost":        "[[ticket]]\nname = \"a\"\ncost = 0\n",
		"duplicate ticket": "[[ticket]]\nname = \"a\"\ncost = 1\n[[ticket]]\nname = \"a\"\ncost = 2\n",
		"negative points":  "[[action]]\nname = \"a\"\ncategory = \"diet\"\nvalue = 1\npoints = -1\n",
		"zero value":       "[[action]]\nname = \"a\"\ncategory = \"diet\"\nvalue = 0\npoints = 1\n",
		"unknown key":      "[[ticket]]\nname = \"a\"\ncost = 1\nprice = 3\n",
		"bad toml":         "[[ticket\n",
	}
	for name, data := range cases {
		if _, err := Parse(data); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	c, err := Load("")
	if err != nil || len(c.Tickets) == 0 {
		t.Fatalf("empty path should return default: %v", err)
	}

	path := filepath.Join(t.TempDir(), "menu.toml")
	data := strings.Join([]string{
		"[[ticket]]", `name = "映画券"`, "cost = 800",
		"[[action]]", `name = "貯金箱"`, `category = "saving"`, "value = 1000", "points = 1000",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Tickets) != 1 || c.Tickets[0].Cost != 800 || len(c.Actions) != 1 {
		t.Fatalf("unexpected catalog: %+v", c)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
