package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
	"futurebank/internal/ledger/memory"
	"futurebank/internal/log"
	"futurebank/internal/services"
)

var household = []string{"阿部", "あや"}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func newTestServer(t *testing.T, store ledger.Store, policy services.Policy, rate string) *Server {
	t.Helper()
	logger := quietLogger()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := services.NewLedgerService(store, nil, services.Options{
		Users:    household,
		Policy:   policy,
		Location: time.UTC,
		Now:      func() time.Time { clock = clock.Add(time.Second); return clock },
		Logger:   logger,
	})
	srv, err := NewServer(":0", svc, Options{Logger: logger, RateLimit: rate, Location: time.UTC})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, core.Record) (string, error) {
	return "", core.Unavailable("append", errors.New("disk on fire"))
}

func (brokenStore) ReadAll(context.Context) ([]core.Record, error) {
	return nil, core.Unavailable("read", errors.New("disk on fire"))
}

func do(srv *Server, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(srv *Server, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	if htmx {
		h["HX-Request"] = "true"
	}
	return do(srv, http.MethodPost, target, strings.NewReader(form.Encode()), h)
}

func postJSON(srv *Server, target, body string) *httptest.ResponseRecorder {
	return do(srv, http.MethodPost, target, strings.NewReader(body), map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
}

func TestDashboardAndProbes(t *testing.T) {
	srv := newTestServer(t, memory.New(), services.Strict, "")

	rr := do(srv, http.MethodGet, "/", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"ふたりの未来投資銀行", "阿部のアクション", "つもり貯金", "肩揉み10分券", "まだ記録がありません"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
	if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("missing request id or security headers: %v", rr.Header())
	}

	rr = do(srv, http.MethodGet, "/?user="+url.QueryEscape("あや"), nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "あやのアクション") {
		t.Fatalf("second user dashboard status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/?user=mallory", nil, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown user status=%d", rr.Code)
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := do(srv, http.MethodGet, path, nil, nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestStoreUnavailableMapsTo503(t *testing.T) {
	srv := newTestServer(t, brokenStore{}, services.Strict, "")

	if rr := do(srv, http.MethodGet, "/readyz", nil, nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	rr := do(srv, http.MethodGet, "/", nil, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Fatalf("backend detail leaked to the page: %s", rr.Body.String())
	}
	if rr := postJSON(srv, "/records/action", `{"user":"阿部","action":"筋トレ"}`); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("append status=%d", rr.Code)
	}
}

func TestEarnActionHTMXAndRedirect(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, services.Strict, "")

	rr := postForm(srv, "/records/action", url.Values{"user": {"阿部"}, "action": {"筋トレ"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("htmx post status=%d body=%s", rr.Code, rr.Body.String())
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, EventLedgerUpdated) {
		t.Fatalf("missing %s trigger: %q", EventLedgerUpdated, trig)
	}
	if !strings.Contains(rr.Body.String(), "筋トレ: +50 pt") {
		t.Fatalf("unexpected fragment: %s", rr.Body.String())
	}

	rr = postForm(srv, "/records/action", url.Values{"user": {"あや"}, "action": {"野菜摂取"}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("plain post status=%d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/?user="+url.QueryEscape("あや") {
		t.Fatalf("redirect location %q", loc)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", store.Len())
	}

	rr = postForm(srv, "/records/action", url.Values{"user": {"阿部"}, "action": {"昼寝"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown action status=%d", rr.Code)
	}
	if store.Len() != 2 {
		t.Fatalf("rejected request must not append")
	}
}

func TestSaveCustom(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, services.Strict, "")

	rr := postForm(srv, "/records/saving", url.Values{"user": {"あや"}, "yen": {"abc"}, "note": {"x"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status=%d", rr.Code)
	}
	rr = postForm(srv, "/records/saving", url.Values{"user": {"あや"}, "yen": {"1200"}, "note": {""}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing note status=%d", rr.Code)
	}

	rr = postJSON(srv, "/records/saving", `{"user":"あや","yen":"1,200","note":"ボーナス"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("json save status=%d body=%s", rr.Code, rr.Body.String())
	}
	var rec services.Receipt
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if rec.Record.Points != 1200 || rec.Balance != 1200 || !rec.BalanceKnown {
		t.Fatalf("unexpected receipt: %+v", rec)
	}
}

func TestRedeemStrictAndTolerant(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, services.Strict, "")

	if rr := postJSON(srv, "/records/action", `{"user":"阿部","action":"つもり貯金"}`); rr.Code != http.StatusCreated {
		t.Fatalf("earn status=%d", rr.Code)
	}
	rr := postJSON(srv, "/redemptions", `{"user":"阿部","ticket":"肩揉み10分券"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("strict overdraft status=%d body=%s", rr.Code, rr.Body.String())
	}
	var e errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Error == "" || e.Status != http.StatusConflict {
		t.Fatalf("unexpected error body %q (%v)", rr.Body.String(), err)
	}
	if store.Len() != 1 {
		t.Fatalf("refused redemption must not append, have %d records", store.Len())
	}

	if rr := postJSON(srv, "/redemptions", `{"user":"阿部","ticket":"宇宙旅行"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown ticket status=%d", rr.Code)
	}

	tolerant := newTestServer(t, store, services.Tolerant, "")
	rr = postForm(tolerant, "/redemptions", url.Values{"user": {"阿部"}, "ticket": {"肩揉み10分券"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("tolerant redemption status=%d", rr.Code)
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, `"warning"`) {
		t.Fatalf("overdraft should raise a warning notification: %q", trig)
	}
}

func TestAPIRecordsAndSummary(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, services.Strict, "")

	for _, body := range []string{
		`{"user":"阿部","action":"筋トレ"}`,
		`{"user":"あや","action":"野菜摂取"}`,
		`{"user":"阿部","action":"お菓子我慢"}`,
	} {
		if rr := postJSON(srv, "/records/action", body); rr.Code != http.StatusCreated {
			t.Fatalf("earn %s status=%d", body, rr.Code)
		}
	}

	rr := do(srv, http.MethodGet, "/api/records?limit=2", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("records status=%d", rr.Code)
	}
	var got recordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if got.Count != 2 || got.Records[0].Item != "お菓子我慢" || got.Records[1].Item != "野菜摂取" {
		t.Fatalf("expected newest first, got %+v", got.Records)
	}

	rr = do(srv, http.MethodGet, "/api/records?user="+url.QueryEscape("あや"), nil, nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || got.Count != 1 {
		t.Fatalf("user filter: count=%d err=%v", got.Count, err)
	}
	if rr := do(srv, http.MethodGet, "/api/records?user=mallory", nil, nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown user filter status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/api/summary", nil, nil)
	var sum core.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalPoints != 130 || sum.DietCount != 3 || sum.BalanceOf("阿部") != 100 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	rr = do(srv, http.MethodGet, "/", nil, nil)
	if !strings.Contains(rr.Body.String(), "130 pt") {
		t.Fatalf("dashboard should show the total")
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, memory.New(), services.Strict, "2-M")
	form := url.Values{"user": {"阿部"}, "action": {"筋トレ"}}

	for i := 0; i < 2; i++ {
		if rr := postForm(srv, "/records/action", form, true); rr.Code != http.StatusOK {
			t.Fatalf("post %d status=%d", i, rr.Code)
		}
	}
	if rr := postForm(srv, "/records/action", form, true); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third post status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rr.Code)
	}
}
