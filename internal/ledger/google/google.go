// Package google stores the ledger as rows of a Google Sheet, the household
// "passbook" both users can open from their phones.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"futurebank/internal/core"
	"futurebank/internal/ledger"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ledger.Store = (*Client)(nil)

// Options configures a Client. Exactly one credential source is required
// unless ClientOptions already carry authentication.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
	// ClientOptions are passed to the Sheets service as-is (endpoint overrides in tests).
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location

	headerMu sync.Mutex
	headerOK bool
}

// New creates a Sheets-backed store using service account credentials.
func New(ctx context.Context, o Options) (*Client, error) {
	id := strings.TrimSpace(o.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(o.SheetName)
	if sheet == "" {
		sheet = "Ledger"
	}
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}

	opts := o.ClientOptions
	if len(opts) == 0 {
		creds, err := credentials(ctx, o)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", id, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: id, sheet: sheet, loc: loc}, nil
}

// credentials resolves the service account key from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(ctx context.Context, o Options) ([]byte, error) {
	inline := strings.TrimSpace(o.CredentialsJSON)
	file := strings.TrimSpace(o.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append adds one row with the native append call, so concurrent writers
// never overwrite each other's rows.
func (c *Client) Append(ctx context.Context, r core.Record) (string, error) {
	if c.svc == nil {
		return "", core.Unavailable("append", errors.New("sheets service not initialized"))
	}
	if err := c.ensureHeader(ctx); err != nil {
		return "", err
	}
	r.Timestamp = r.Timestamp.In(c.loc)
	resp, err := c.appendRow(ctx, rowValues(r))
	if err != nil {
		return "", c.wrap("append", err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.sheet, nil
}

// ReadAll reads the whole data range. Dates typed by hand come back as
// formatted strings so they share the persisted timestamp parser.
func (c *Client) ReadAll(ctx context.Context) ([]core.Record, error) {
	if c.svc == nil {
		return nil, core.Unavailable("read", errors.New("sheets service not initialized"))
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, c.wrap("read", err)
	}
	out := make([]core.Record, 0, len(resp.Values))
	for i, row := range resp.Values {
		cols := toStrings(row)
		if i == 0 && core.IsHeader(cols) {
			continue
		}
		if blank(cols) {
			continue
		}
		rec, err := core.ParseRow(cols, c.loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", c.sheet, i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	c.headerMu.Lock()
	defer c.headerMu.Unlock()
	if c.headerOK {
		return nil
	}
	rng := fmt.Sprintf("%s!A1:G1", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return c.wrap("read header", err)
	}
	if len(resp.Values) == 0 {
		header := make([]any, len(core.Header))
		for i, h := range core.Header {
			header[i] = h
		}
		if _, err := c.appendRow(ctx, header); err != nil {
			return c.wrap("write header", err)
		}
		slog.InfoContext(ctx, "Wrote ledger header row", "sheet", c.sheet)
	}
	c.headerOK = true
	return nil
}

func (c *Client) appendRow(ctx context.Context, row []any) (*gsheet.AppendValuesResponse, error) {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	return c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:G", c.sheet)
}

// wrap maps API failures to store errors and adds an actionable hint for the
// most common setup mistake: a sheet not shared with the service account.
func (c *Client) wrap(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusForbidden, http.StatusNotFound:
			return core.Unavailable(op, fmt.Errorf("spreadsheet %s (sheet %q) not reachable; check the ID and that it is shared with the service account: %w", c.spreadsheetID, c.sheet, err))
		}
	}
	return core.Unavailable(op, err)
}

// rowValues encodes numbers as JSON numbers so the sheet can sum them.
func rowValues(r core.Record) []any {
	cols := r.Row()
	return []any{
		cols[0], cols[1], cols[2], cols[3], cols[4],
		json.Number(r.Value.String()),
		r.Points,
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case string:
			out[i] = strings.TrimSpace(x)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
