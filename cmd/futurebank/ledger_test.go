package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"futurebank/internal/core"
	"futurebank/internal/services"
)

func TestRecordPoints(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	earn := core.Record{Direction: core.Earn, Points: 1300}
	spend := core.Ticket{Name: "マッサージ券", Cost: 300}.SpendRecord("あや", at)
	if err := spend.Validate(); err != nil {
		t.Fatalf("fixture must hold the spend invariant: %v", err)
	}

	if got := recordPoints(earn); got != "+1,300 pt" {
		t.Errorf("earn = %q", got)
	}
	if got := recordPoints(spend); got != "-300 pt" {
		t.Errorf("spend = %q", got)
	}
	if got := signedPoints(0); got != "0 pt" {
		t.Errorf("zero = %q", got)
	}
}

func TestPrintReceipt(t *testing.T) {
	rec := core.Ticket{Name: "マッサージ券", Cost: 300}.
		SpendRecord("あや", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		receipt services.Receipt
		want    string
	}{
		{"known", services.Receipt{Record: rec, Balance: 200, BalanceKnown: true}, "+200 pt"},
		{"overdraft", services.Receipt{Record: rec, Balance: -100, BalanceKnown: true, Overdraft: true}, "negative"},
		{"unknown", services.Receipt{Record: rec}, "could not be read back"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printReceipt(&buf, tt.receipt)
			out := buf.String()
			if !strings.Contains(out, "マッサージ券") || !strings.Contains(out, "-300 pt") {
				t.Fatalf("record line missing: %q", out)
			}
			if strings.Contains(out, "+300 pt") {
				t.Fatalf("spend rendered as a gain: %q", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, out)
			}
		})
	}
}

func TestApplyFlagsExportsOnlyChangedFlags(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "info")

	cmd := balanceCmd()
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	if err := cmd.Flags().Parse([]string{"--backend", "csv"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := applyFlags(cmd, nil); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}

	if got := os.Getenv("DATA_BACKEND"); got != "csv" {
		t.Errorf("DATA_BACKEND = %q, want csv", got)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "info" {
		t.Errorf("LOG_LEVEL = %q, want untouched", got)
	}
}
