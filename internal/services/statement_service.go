package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/render"
)

// StatementService computes billing periods and builds statements.
// It only reads from the ledger.
type StatementService struct {
	finder    ledger.TransactionFinder
	formatter render.Formatter
	loc       *time.Location
	events    EventPublisher
	now       func() time.Time
}

// StatementOption customises a StatementService.
type StatementOption func(*StatementService)

// WithLocation sets the time zone billing days are measured in.
func WithLocation(loc *time.Location) StatementOption {
	return func(s *StatementService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithStatementEvents publishes statement.generated after each export.
func WithStatementEvents(p EventPublisher) StatementOption {
	return func(s *StatementService) { s.events = p }
}

// WithStatementClock overrides the clock used for Today.
func WithStatementClock(now func() time.Time) StatementOption {
	return func(s *StatementService) { s.now = now }
}

func NewStatementService(finder ledger.TransactionFinder, formatter render.Formatter, opts ...StatementOption) *StatementService {
	s := &StatementService{
		finder:    finder,
		formatter: formatter,
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Lines print in the same zone the window is cut in.
	s.formatter = s.formatter.In(s.loc)
	return s
}

// Today is the current calendar date in the billing time zone.
func (s *StatementService) Today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

// Generate builds the statement for the cycle containing today.
func (s *StatementService) Generate(ctx context.Context, user core.User, today core.Date) (core.Statement, error) {
	period, err := core.ComputeBillingPeriod(today)
	if err != nil {
		return core.Statement{}, err
	}

	from, to := period.Window(s.loc)
	txs, err := s.finder.FindTransactions(ctx, user.ID, from, to)
	if err != nil {
		return core.Statement{}, fmt.Errorf("find transactions: %w", err)
	}

	st, err := core.BuildStatement(user, period, txs, s.loc)
	if err != nil {
		return core.Statement{}, fmt.Errorf("build statement: %w", err)
	}
	slog.DebugContext(ctx, "Statement generated",
		"user_id", user.ID,
		"period_start", period.Start.String(),
		"lines", len(st.Lines),
		"total_due_cents", st.TotalDue.Cents)
	return st, nil
}

// View generates the statement and formats it for display.
func (s *StatementService) View(ctx context.Context, user core.User, today core.Date) (render.View, error) {
	st, err := s.Generate(ctx, user, today)
	if err != nil {
		return render.View{}, err
	}
	return s.formatter.Format(st), nil
}

// Export renders the statement into an in-memory document of the given format.
func (s *StatementService) Export(ctx context.Context, user core.User, today core.Date, format string) (render.Document, error) {
	r, err := render.Lookup(format)
	if err != nil {
		return render.Document{}, err
	}
	st, err := s.Generate(ctx, user, today)
	if err != nil {
		return render.Document{}, err
	}
	doc, err := render.RenderDocument(r, s.formatter.Format(st))
	if err != nil {
		return render.Document{}, err
	}

	ev := amqp.NewLedgerEvent(amqp.EventStatementGenerated, user.ID)
	ev.PeriodStart = st.Period.Start.String()
	ev.DueDate = st.Period.DueDate.String()
	ev.AmountCents = st.TotalDue.Cents
	publish(ctx, s.events, ev)

	slog.InfoContext(ctx, "Statement exported",
		"user_id", user.ID,
		"format", format,
		"filename", doc.Filename,
		"bytes", len(doc.Body))
	return doc, nil
}
