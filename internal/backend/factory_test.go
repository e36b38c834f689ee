package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"futurebank/internal/config"
	"futurebank/internal/ledger/ledgertest"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, s := range GetBackendTypeStrings() {
		if !BackendType(s).IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if BackendType("postgres").IsValid() {
		t.Error("postgres should not be valid")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"csv without path", Config{Type: CSVBackend}, "CSV path is required"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
		{"unknown", Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg := &config.Config{DataBackend: "csv", CSVPath: "x.csv", Timezone: "UTC"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != CSVBackend || bc.CSVPath != "x.csv" || bc.Location.String() != "UTC" {
		t.Fatalf("unexpected backend config: %+v", bc)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Fatal("expected error for invalid backend")
	}
}

func TestCreateBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configs := []Config{
		{Type: MemoryBackend, Location: time.UTC},
		{Type: CSVBackend, CSVPath: filepath.Join(dir, "ledger.csv"), Location: time.UTC},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "futurebank.db"), Location: time.UTC},
	}
	f := NewFactory(nil)
	for _, c := range configs {
		t.Run(c.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), c)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			defer res.Close()

			rec := ledgertest.Sample(time.UTC)[0]
			if _, err := res.Store.Append(context.Background(), rec); err != nil {
				t.Fatalf("append: %v", err)
			}
			got, err := res.Store.ReadAll(context.Background())
			if err != nil || len(got) != 1 {
				t.Fatalf("read: %d records, err=%v", len(got), err)
			}
			ledgertest.AssertSame(t, rec, got[0])
		})
	}
}

func TestCreateSheetsBackendNeedsCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
