package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/insights"
	"smartspend/internal/log"
	"smartspend/internal/session"
	"smartspend/internal/storage"
)

// Row is one ledger record as shown in the table.
type Row struct {
	Index   int
	Expense core.Expense
	Editing bool
}

// View is everything the dashboard renders after a command.
type View struct {
	Session    session.Context
	Rows       []Row
	Editing    *Row
	Report     insights.Report
	Categories []core.Category
	Notice     string
}

// Command is a user action on the dashboard.
type Command interface {
	execute(ctx context.Context, d *Dashboard, s session.Context) (session.Context, []core.Expense, string, error)
}

type (
	AddExpense struct {
		Expense core.Expense
	}

	BeginEdit struct {
		Index int
	}

	CancelEdit struct{}

	UpdateExpense struct {
		Index   int
		Expense core.Expense
	}

	DeleteExpense struct {
		Index int
	}

	SetBudget struct {
		Budget decimal.Decimal
	}
)

// Dashboard runs the command-and-refresh cycle: every command mutates the
// ledger or session and returns a freshly computed View.
type Dashboard struct {
	ledger *LedgerService
	logger *log.Logger
}

func NewDashboard(ledger *LedgerService, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Dashboard{
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// Ledger returns the underlying ledger service.
func (d *Dashboard) Ledger() *LedgerService {
	return d.ledger
}

// Execute applies cmd and returns the updated session with a fresh view.
// On error the session is returned unchanged.
func (d *Dashboard) Execute(ctx context.Context, s session.Context, cmd Command) (session.Context, View, error) {
	next, ledger, notice, err := cmd.execute(ctx, d, s)
	if err != nil {
		d.logger.WarnContext(ctx, "Command failed",
			log.FieldSessionID, s.ID,
			"command", fmt.Sprintf("%T", cmd),
			log.FieldError, err.Error())
		return s, View{}, err
	}
	if ledger == nil {
		if ledger, err = d.ledger.Load(ctx); err != nil {
			return s, View{}, err
		}
	}
	v := buildView(next, ledger)
	v.Notice = notice
	return next, v, nil
}

// Refresh reloads the ledger and builds the view without changing anything.
// An editing index that no longer exists (the file changed underneath) is
// dropped.
func (d *Dashboard) Refresh(ctx context.Context, s session.Context) (session.Context, View, error) {
	ledger, err := d.ledger.Load(ctx)
	if err != nil {
		return s, View{}, err
	}
	if i, ok := s.Editing(); ok && storage.CheckIndex(i, len(ledger)) != nil {
		s = s.WithoutEditing()
	}
	return s, buildView(s, ledger), nil
}

func buildView(s session.Context, ledger []core.Expense) View {
	v := View{
		Session:    s,
		Rows:       make([]Row, len(ledger)),
		Report:     insights.Build(ledger, s.Budget),
		Categories: core.Categories(),
	}
	editing, isEditing := s.Editing()
	for i, e := range ledger {
		v.Rows[i] = Row{Index: i, Expense: e, Editing: isEditing && i == editing}
		if v.Rows[i].Editing {
			row := v.Rows[i]
			v.Editing = &row
		}
	}
	return v
}

func (c AddExpense) execute(ctx context.Context, d *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	if err := c.Expense.Validate(); err != nil {
		return s, nil, "", &ValidationError{Field: "expense", Err: err}
	}
	ledger, err := d.ledger.Add(ctx, c.Expense)
	if err != nil {
		return s, nil, "", err
	}
	return s, ledger, "Expense added", nil
}

func (c BeginEdit) execute(ctx context.Context, d *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	ledger, err := d.ledger.Load(ctx)
	if err != nil {
		return s, nil, "", err
	}
	if err := storage.CheckIndex(c.Index, len(ledger)); err != nil {
		return s, nil, "", err
	}
	return s.WithEditing(c.Index), ledger, "", nil
}

func (CancelEdit) execute(_ context.Context, _ *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	return s.WithoutEditing(), nil, "", nil
}

func (c UpdateExpense) execute(ctx context.Context, d *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	if err := c.Expense.Validate(); err != nil {
		return s, nil, "", &ValidationError{Field: "expense", Err: err}
	}
	ledger, err := d.ledger.Replace(ctx, c.Index, c.Expense)
	if err != nil {
		return s, nil, "", err
	}
	return s.WithoutEditing(), ledger, "Expense updated", nil
}

func (c DeleteExpense) execute(ctx context.Context, d *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	ledger, err := d.ledger.Delete(ctx, c.Index)
	if err != nil {
		return s, nil, "", err
	}
	return s.AfterDelete(c.Index), ledger, "Expense deleted", nil
}

func (c SetBudget) execute(_ context.Context, _ *Dashboard, s session.Context) (session.Context, []core.Expense, string, error) {
	if c.Budget.IsNegative() {
		return s, nil, "", &ValidationError{Field: "budget", Err: core.ErrInvalidAmount}
	}
	s.Budget = c.Budget
	return s, nil, "Budget updated", nil
}
