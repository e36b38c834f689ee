package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"futurebank/internal/catalog"
	"futurebank/internal/core"
	"futurebank/internal/ledger"
	"futurebank/internal/log"
	"futurebank/internal/metrics"
)

// Policy decides what a redemption does when the balance is too low.
type Policy string

const (
	// Strict refuses redemptions the user cannot afford.
	Strict Policy = "strict"
	// Tolerant records the redemption anyway and lets the balance go negative.
	Tolerant Policy = "tolerant"
)

// Options configures a LedgerService.
type Options struct {
	Users        []string
	Policy       Policy
	PointsPerYen float64
	Location     *time.Location
	Now          func() time.Time
	Logger       *log.Logger
}

// EarnIntent is a request to credit points, validated before any append.
type EarnIntent struct {
	User     string          `validate:"required"`
	Category core.Category   `validate:"required"`
	Item     string          `validate:"required,max=200"`
	Value    decimal.Decimal `validate:"-"`
	Points   int64           `validate:"gte=0"`
}

// Receipt reports one appended record and the user's balance read back
// right after the append.
type Receipt struct {
	Record       core.Record `json:"record"`
	Ref          string      `json:"ref"`
	Balance      int64       `json:"balance"`
	BalanceKnown bool        `json:"balance_known"`
	Overdraft    bool        `json:"overdraft"`
}

// LedgerService runs every earn and redeem operation against one store.
// It holds no cached state: every decision re-reads the whole ledger.
type LedgerService struct {
	store        ledger.Store
	catalog      *catalog.Catalog
	users        []string
	policy       Policy
	pointsPerYen decimal.Decimal
	loc          *time.Location
	now          func() time.Time
	validate     *validator.Validate
	logger       *log.Logger

	// serializes the read-check-append of redemptions within this process
	redeemMu sync.Mutex
}

func NewLedgerService(store ledger.Store, cat *catalog.Catalog, o Options) *LedgerService {
	if cat == nil {
		cat = catalog.Default()
	}
	if o.Policy == "" {
		o.Policy = Strict
	}
	if o.PointsPerYen <= 0 {
		o.PointsPerYen = 1
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:        store,
		catalog:      cat,
		users:        append([]string(nil), o.Users...),
		policy:       o.Policy,
		pointsPerYen: decimal.NewFromFloat(o.PointsPerYen),
		loc:          o.Location,
		now:          o.Now,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       o.Logger.WithComponent(log.ComponentLedger),
	}
}

// Users returns the household members in configured order.
func (s *LedgerService) Users() []string {
	return append([]string(nil), s.users...)
}

// Catalog returns the menu the service resolves names against.
func (s *LedgerService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Policy returns the configured redemption policy.
func (s *LedgerService) Policy() Policy {
	return s.policy
}

// Earn validates the intent and appends one earn record.
func (s *LedgerService) Earn(ctx context.Context, in EarnIntent) (Receipt, error) {
	in.User = strings.TrimSpace(in.User)
	in.Item = strings.TrimSpace(in.Item)
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return Receipt{}, validationError(err)
	}
	if !in.Value.IsPositive() {
		return Receipt{}, core.ErrInvalidValue
	}
	if err := s.checkUser(in.User); err != nil {
		return Receipt{}, err
	}

	return s.appendEarn(ctx, core.Record{
		Timestamp: s.timestamp(),
		User:      in.User,
		Direction: core.Earn,
		Category:  in.Category,
		Item:      in.Item,
		Value:     in.Value,
		Points:    in.Points,
	})
}

// EarnAction appends the record for a fixed catalog action.
func (s *LedgerService) EarnAction(ctx context.Context, user, actionName string) (Receipt, error) {
	a, err := s.catalog.Action(strings.TrimSpace(actionName))
	if err != nil {
		return Receipt{}, err
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return Receipt{}, core.ErrEmptyUser
	}
	if err := s.checkUser(user); err != nil {
		return Receipt{}, err
	}
	return s.appendEarn(ctx, a.Record(user, s.timestamp()))
}

func (s *LedgerService) appendEarn(ctx context.Context, rec core.Record) (Receipt, error) {
	if err := rec.Validate(); err != nil {
		return Receipt{}, err
	}

	ref, err := s.store.Append(ctx, rec)
	if err != nil {
		s.logError(ctx, "Earn append failed", log.OpEarn, rec, err)
		return Receipt{}, fmt.Errorf("append earn record: %w", err)
	}
	s.logger.InfoContext(ctx, "Points earned", s.fields(log.OpEarn, rec).ToSlice()...)
	return s.receipt(ctx, rec, ref), nil
}

// SaveCustom records a free-form saving of yen. Points are yen times the
// configured rate, rounded down.
func (s *LedgerService) SaveCustom(ctx context.Context, user string, yen decimal.Decimal, note string) (Receipt, error) {
	if !yen.IsPositive() {
		return Receipt{}, core.ErrInvalidValue
	}
	if strings.TrimSpace(note) == "" {
		return Receipt{}, core.ErrEmptyItem
	}
	return s.Earn(ctx, EarnIntent{
		User:     user,
		Category: core.Saving,
		Item:     note,
		Value:    yen,
		Points:   s.PointsFor(yen),
	})
}

// PointsFor converts a saved amount into points.
func (s *LedgerService) PointsFor(yen decimal.Decimal) int64 {
	return yen.Mul(s.pointsPerYen).Floor().IntPart()
}

// Redeem spends a ticket's cost for user. The balance is always re-read from
// the store; what the caller displayed is never trusted.
func (s *LedgerService) Redeem(ctx context.Context, user, ticketName string) (Receipt, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Receipt{}, core.ErrEmptyUser
	}
	if err := s.checkUser(user); err != nil {
		return Receipt{}, err
	}
	ticket, err := s.catalog.Ticket(strings.TrimSpace(ticketName))
	if err != nil {
		return Receipt{}, err
	}

	s.redeemMu.Lock()
	defer s.redeemMu.Unlock()

	records, err := s.store.ReadAll(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("read ledger: %w", err)
	}
	l := core.Ledger(records)
	balance := l.BalanceFor(user)
	overdraft := !l.CanAfford(user, ticket.Cost)

	if overdraft {
		if s.policy != Tolerant {
			metrics.Redemptions.WithLabelValues(metrics.OutcomeRejected).Inc()
			s.logger.InfoContext(ctx, "Redemption refused",
				log.FieldUser, user, log.FieldItem, ticket.Name,
				log.FieldPoints, ticket.Cost, log.FieldBalance, balance, log.FieldPolicy, string(s.policy))
			return Receipt{}, fmt.Errorf("%w: %s has %s, %s costs %s", core.ErrInsufficientBalance,
				user, core.FormatPoints(balance), ticket.Name, core.FormatPoints(ticket.Cost))
		}
		s.logger.WarnContext(ctx, "Redemption overdraws balance",
			log.FieldUser, user, log.FieldItem, ticket.Name,
			log.FieldPoints, ticket.Cost, log.FieldBalance, balance, log.FieldPolicy, string(s.policy))
	}

	rec := ticket.SpendRecord(user, s.timestamp())
	ref, err := s.store.Append(ctx, rec)
	if err != nil {
		s.logError(ctx, "Redemption append failed", log.OpRedeem, rec, err)
		return Receipt{}, fmt.Errorf("append spend record: %w", err)
	}

	outcome := metrics.OutcomeAccepted
	if overdraft {
		outcome = metrics.OutcomeOverdraft
	}
	metrics.Redemptions.WithLabelValues(outcome).Inc()
	s.logger.InfoContext(ctx, "Ticket redeemed", s.fields(log.OpRedeem, rec).ToSlice()...)

	r := s.receipt(ctx, rec, ref)
	r.Overdraft = overdraft
	return r, nil
}

// Ledger reads the full record history.
func (s *LedgerService) Ledger(ctx context.Context) (core.Ledger, error) {
	records, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return core.Ledger(records), nil
}

// Summary aggregates the full ledger for the dashboard.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	l, err := s.Ledger(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(l, s.users, s.catalog.Tickets), nil
}

// History returns records newest first, optionally only one user's, capped at limit (0 = all).
func (s *LedgerService) History(ctx context.Context, user string, limit int) ([]core.Record, error) {
	l, err := s.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0, len(l))
	for i := len(l) - 1; i >= 0; i-- {
		if user != "" && l[i].User != user {
			continue
		}
		out = append(out, l[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Balance returns one user's current balance.
func (s *LedgerService) Balance(ctx context.Context, user string) (int64, error) {
	if err := s.checkUser(user); err != nil {
		return 0, err
	}
	l, err := s.Ledger(ctx)
	if err != nil {
		return 0, err
	}
	return l.BalanceFor(user), nil
}

func (s *LedgerService) checkUser(user string) error {
	if len(s.users) > 0 && !slices.Contains(s.users, user) {
		return core.ErrUnknownUser
	}
	return nil
}

func (s *LedgerService) timestamp() time.Time {
	return s.now().In(s.loc).Truncate(time.Second)
}

// receipt re-reads the ledger so the reported balance includes the append.
// A failed read does not undo the append; the balance is just unknown.
func (s *LedgerService) receipt(ctx context.Context, rec core.Record, ref string) Receipt {
	r := Receipt{Record: rec, Ref: ref}
	records, err := s.store.ReadAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Balance read after append failed", log.FieldRef, ref, log.FieldError, err)
		return r
	}
	r.Balance = core.Ledger(records).BalanceFor(rec.User)
	r.BalanceKnown = true
	return r
}

func (s *LedgerService) fields(op string, rec core.Record) log.LogFields {
	return log.NewFields().
		WithOperation(op).
		WithRecord(rec.User, string(rec.Direction), string(rec.Category), rec.Item, rec.Value.String(), rec.Points)
}

func (s *LedgerService) logError(ctx context.Context, msg, op string, rec core.Record, err error) {
	s.logger.ErrorContext(ctx, msg, s.fields(op, rec).WithError(err).ToSlice()...)
}

// validationError turns the first validator failure into a core.ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &core.ValidationError{Field: "input", Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch {
	case field == "user" && fe.Tag() == "required":
		return core.ErrEmptyUser
	case field == "item" && fe.Tag() == "required":
		return core.ErrEmptyItem
	case field == "item" && fe.Tag() == "max":
		return core.ErrItemTooLong
	case field == "category":
		return core.ErrEmptyCategory
	case field == "points":
		return core.ErrInvalidPoints
	}
	return &core.ValidationError{Field: field, Reason: fmt.Sprintf("failed %q check", fe.Tag())}
}
