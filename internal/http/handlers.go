package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"futurebank/internal/catalog"
	"futurebank/internal/core"
	"futurebank/internal/log"
	"futurebank/internal/services"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs a full ledger read; the store must answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readTimeout)
	defer cancel()

	l, err := s.svc.Ledger(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  MessageFor(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"records": len(l),
	})
}

type ticketView struct {
	core.Ticket
	Affordable bool
}

type dashboardData struct {
	User     string
	Users    []string
	Balance  int64
	Policy   services.Policy
	Summary  core.Summary
	Saving   []catalog.Action
	Diet     []catalog.Action
	Tickets  []ticketView
	Passbook []core.Record
}

// handleDashboard renders the page for ?user=. Every render reads the full
// ledger once and derives everything from that read.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readTimeout)
	defer cancel()
	logger := log.FromContext(ctx)

	user, err := resolveUser(r.URL.Query().Get("user"), s.svc.Users())
	if err != nil {
		ErrorResponse(StatusFor(err), MessageFor(err)).Write(w)
		return
	}

	l, err := s.svc.Ledger(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Dashboard read failed", log.FieldError, err, log.FieldUser, user)
		ErrorResponse(StatusFor(err), MessageFor(err)).Write(w)
		return
	}

	cat := s.svc.Catalog()
	data := dashboardData{
		User:     user,
		Users:    s.svc.Users(),
		Balance:  l.BalanceFor(user),
		Policy:   s.svc.Policy(),
		Summary:  core.Summarize(l, s.svc.Users(), cat.Tickets),
		Saving:   cat.ActionsIn(core.Saving),
		Diet:     cat.ActionsIn(core.Diet),
		Passbook: newestFirst(l),
	}
	for _, t := range cat.Tickets {
		data.Tickets = append(data.Tickets, ticketView{Ticket: t, Affordable: l.CanAfford(user, t.Cost)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		logger.ErrorContext(ctx, "Dashboard template execution failed",
			log.FieldError, err, log.FieldOperation, log.OpRender)
	}
}

// handleEarnAction appends one fixed menu action.
func (s *Server) handleEarnAction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeFailure(w, r, "", err)
		return
	}
	user := p.Get("user")
	rec, err := s.svc.EarnAction(r.Context(), user, p.Get("action"))
	if err != nil {
		s.writeFailure(w, r, user, err)
		return
	}
	s.writeReceipt(w, r, rec, fmt.Sprintf("%s: %s", rec.Record.Item, signed(rec.Record.Points)))
}

// handleSaveCustom appends a free-form saving of yen with a note.
func (s *Server) handleSaveCustom(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeFailure(w, r, "", err)
		return
	}
	user := p.Get("user")
	yen, err := p.Amount("yen")
	if err != nil {
		s.writeFailure(w, r, user, err)
		return
	}
	rec, err := s.svc.SaveCustom(r.Context(), user, yen, p.Get("note"))
	if err != nil {
		s.writeFailure(w, r, user, err)
		return
	}
	s.writeReceipt(w, r, rec, fmt.Sprintf("%s を入金: %s", core.FormatYen(yen), signed(rec.Record.Points)))
}

// handleRedeem spends a ticket.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeFailure(w, r, "", err)
		return
	}
	user := p.Get("user")
	rec, err := s.svc.Redeem(r.Context(), user, p.Get("ticket"))
	if err != nil {
		s.writeFailure(w, r, user, err)
		return
	}
	s.writeReceipt(w, r, rec, fmt.Sprintf("%s を購入しました！相手に画面を見せてね。", rec.Record.Item))
}

// writeReceipt answers a successful write: 201 JSON, an htmx fragment with
// the reload trigger, or a 303 back to the dashboard.
func (s *Server) writeReceipt(w http.ResponseWriter, r *http.Request, rec services.Receipt, message string) {
	switch {
	case wantsJSON(r):
		writeJSON(w, http.StatusCreated, rec)
	case isHTMX(r):
		b := SuccessResponse(message).
			TriggerLedgerUpdated(rec.Record.User).
			TriggerFormReset()
		if rec.Overdraft {
			b.TriggerWarningNotification(fmt.Sprintf("残高がマイナスになりました (%s)", core.FormatPoints(rec.Balance)))
		} else {
			b.TriggerSuccessNotification(message)
		}
		b.Write(w)
	default:
		http.Redirect(w, r, dashboardURL(rec.Record.User), http.StatusSeeOther)
	}
}

// writeFailure maps err to a status and answers in the client's format.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, user string, err error) {
	status := StatusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Write request failed", log.FieldError, err, log.FieldUser, user, log.FieldPath, r.URL.Path)
	} else {
		logger.InfoContext(r.Context(), "Write request rejected", log.FieldError, err, log.FieldUser, user, log.FieldPath, r.URL.Path)
	}

	if wantsJSON(r) {
		writeJSONError(w, err)
		return
	}
	ErrorResponse(status, MessageFor(err)).Write(w)
}

// handleAPISummary returns the aggregate figures as JSON.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readTimeout)
	defer cancel()
	sum, err := s.svc.Summary(ctx)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type recordsResponse struct {
	Records []core.Record `json:"records"`
	Count   int           `json:"count"`
}

// handleAPIRecords returns the passbook newest first, optionally filtered by
// ?user= and capped by ?limit=.
func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readTimeout)
	defer cancel()

	q := r.URL.Query()
	user := q.Get("user")
	if user != "" {
		if _, err := resolveUser(user, s.svc.Users()); err != nil {
			writeJSONError(w, err)
			return
		}
	}
	recs, err := s.svc.History(ctx, user, parseLimit(q))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	if recs == nil {
		recs = []core.Record{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: recs, Count: len(recs)})
}

// handleAPICatalog returns the ticket and action menu.
func (s *Server) handleAPICatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Catalog())
}

func newestFirst(l core.Ledger) []core.Record {
	out := make([]core.Record, len(l))
	for i, rec := range l {
		out[len(l)-1-i] = rec
	}
	return out
}

func signed(p int64) string {
	if p > 0 {
		return "+" + core.FormatPoints(p)
	}
	return core.FormatPoints(p)
}
