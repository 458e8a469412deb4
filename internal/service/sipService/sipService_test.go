package sipService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/internal/service/transactionService"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	portfolios  map[uuid.UUID]model.Portfolio
	investments map[uuid.UUID]model.Investment
	templates   map[uuid.UUID]model.Template
	dueArgs     []*uuid.UUID
	usageErr    error
	usage       map[uuid.UUID]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		portfolios:  make(map[uuid.UUID]model.Portfolio),
		investments: make(map[uuid.UUID]model.Investment),
		templates:   make(map[uuid.UUID]model.Template),
		usage:       make(map[uuid.UUID]int),
	}
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	templates := make(map[uuid.UUID]model.Template, len(r.templates))
	for k, v := range r.templates {
		templates[k] = v
	}
	if err := fn(ctx); err != nil {
		r.templates = templates
		return err
	}
	return nil
}

func (r *fakeRepo) GetPortfolio(_ context.Context, id uuid.UUID) (model.Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetInvestment(_ context.Context, id uuid.UUID) (model.Investment, error) {
	inv, ok := r.investments[id]
	if !ok {
		return model.Investment{}, repository.ErrNotFound
	}
	return inv, nil
}

func (r *fakeRepo) InsertTemplate(_ context.Context, t model.Template) (model.Template, error) {
	r.templates[t.ID] = t
	return t, nil
}

func (r *fakeRepo) GetTemplate(_ context.Context, id uuid.UUID) (model.Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return model.Template{}, repository.ErrNotFound
	}
	return t, nil
}

func (r *fakeRepo) ListTemplates(_ context.Context, _ uuid.UUID) ([]model.Template, error) {
	res := make([]model.Template, 0, len(r.templates))
	for _, t := range r.templates {
		res = append(res, t)
	}
	return res, nil
}

func (r *fakeRepo) ListDueTemplates(_ context.Context, userID *uuid.UUID, _ time.Time) ([]model.Template, error) {
	r.dueArgs = append(r.dueArgs, userID)
	return r.ListTemplates(context.Background(), uuid.Nil)
}

func (r *fakeRepo) UpdateTemplate(_ context.Context, t model.Template) error {
	r.templates[t.ID] = t
	return nil
}

func (r *fakeRepo) IncrementTemplateUsage(_ context.Context, id uuid.UUID) error {
	if r.usageErr != nil {
		return r.usageErr
	}
	r.usage[id]++
	return nil
}

type fakeLedger struct {
	booked []model.Transaction
	err    error
}

func (l *fakeLedger) Book(_ context.Context, tx model.Transaction) (transactionService.Result, error) {
	if l.err != nil {
		return transactionService.Result{}, l.err
	}
	l.booked = append(l.booked, tx)
	return transactionService.Result{Transaction: tx}, nil
}

var now = time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *SIPService
	repo   *fakeRepo
	ledger *fakeLedger
	userID uuid.UUID
	inv    model.Investment
}

func newFixture() fixture {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	userID := uuid.New()

	p := model.Portfolio{ID: uuid.New(), UserID: userID, IsActive: true}
	repo.portfolios[p.ID] = p
	inv := model.Investment{
		ID:           uuid.New(),
		PortfolioID:  p.ID,
		UserID:       userID,
		Type:         model.InvestmentTypeMutualFund,
		CurrentPrice: decimal.NewFromInt(40),
		Status:       model.InvestmentStatusActive,
	}
	repo.investments[inv.ID] = inv

	return fixture{
		svc:    New(repo, ledger, events.NopPublisher{}, clockwork.NewFakeClockAt(now)),
		repo:   repo,
		ledger: ledger,
		userID: userID,
		inv:    inv,
	}
}

func (f fixture) create(t *testing.T, in model.TemplateInput) model.Template {
	t.Helper()
	if in.Name == "" {
		in.Name = "Index SIP"
	}
	if in.Frequency == "" {
		in.Frequency = "monthly"
	}
	if in.AmountPerInvestment.IsZero() {
		in.AmountPerInvestment = decimal.NewFromInt(5000)
	}
	tmpl, err := f.svc.Create(context.Background(), f.userID, in)
	require.NoError(t, err)
	return tmpl
}

func TestCreate_BiweeklySchedule(t *testing.T) {
	f := newFixture()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tmpl := f.create(t, model.TemplateInput{Frequency: "biweekly", IntervalValue: 2, StartDate: &start})
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), tmpl.NextExecution)
}

func TestCreate_FillsPortfolioFromInvestment(t *testing.T) {
	f := newFixture()

	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})
	require.NotNil(t, tmpl.PortfolioID)
	assert.Equal(t, f.inv.PortfolioID, *tmpl.PortfolioID)
	assert.Equal(t, model.InvestmentTypeMutualFund, tmpl.InvestmentType)
}

func TestUpdate_RetargetsToInvestmentInAnotherPortfolio(t *testing.T) {
	f := newFixture()
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})

	other := model.Portfolio{ID: uuid.New(), UserID: f.userID, IsActive: true}
	f.repo.portfolios[other.ID] = other
	bond := model.Investment{ID: uuid.New(), PortfolioID: other.ID, UserID: f.userID, Type: model.InvestmentTypeBond}
	f.repo.investments[bond.ID] = bond

	updated, err := f.svc.Update(context.Background(), f.userID, tmpl.ID, model.TemplatePatch{InvestmentID: &bond.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.PortfolioID)
	assert.Equal(t, other.ID, *updated.PortfolioID)
	assert.Equal(t, model.InvestmentTypeBond, updated.InvestmentType)

	_, err = f.svc.Update(context.Background(), f.userID, tmpl.ID, model.TemplatePatch{InvestmentID: &f.inv.ID, PortfolioID: &other.ID})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestCreate_ForeignTarget(t *testing.T) {
	f := newFixture()
	other := model.Investment{ID: uuid.New(), UserID: uuid.New(), PortfolioID: uuid.New()}
	f.repo.investments[other.ID] = other

	_, err := f.svc.Create(context.Background(), f.userID, model.TemplateInput{
		Name:                "x",
		Frequency:           "monthly",
		AmountPerInvestment: decimal.NewFromInt(1),
		InvestmentID:        &other.ID,
	})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestExecute(t *testing.T) {
	f := newFixture()
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})

	res, err := f.svc.Execute(context.Background(), f.userID, tmpl.ID)
	require.NoError(t, err)

	require.Len(t, f.ledger.booked, 1)
	tx := f.ledger.booked[0]
	assert.Equal(t, model.TransactionTypeBuy, tx.Type)
	assert.True(t, tx.Units.Equal(decimal.NewFromInt(125)))
	assert.True(t, tx.NetAmount.Equal(decimal.NewFromInt(5000)))
	require.NotNil(t, tx.TemplateID)
	assert.Equal(t, tmpl.ID, *tx.TemplateID)

	stored := f.repo.templates[tmpl.ID]
	assert.Equal(t, 1, stored.TotalExecuted)
	assert.True(t, stored.TotalInvested.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), stored.NextExecution)
	assert.Equal(t, 1, f.repo.usage[tmpl.ID])
	assert.Equal(t, 1, res.Template.UsageCount)
}

func TestExecute_ZeroPriceBooksOneUnit(t *testing.T) {
	f := newFixture()
	inv := f.repo.investments[f.inv.ID]
	inv.CurrentPrice = decimal.Zero
	f.repo.investments[f.inv.ID] = inv
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})

	_, err := f.svc.Execute(context.Background(), f.userID, tmpl.ID)
	require.NoError(t, err)

	tx := f.ledger.booked[0]
	assert.True(t, tx.Units.Equal(decimal.NewFromInt(1)))
	assert.True(t, tx.PricePerUnit.Equal(decimal.NewFromInt(5000)))
}

func TestExecute_RoundedUnitsMatchTemplateTotal(t *testing.T) {
	f := newFixture()
	inv := f.repo.investments[f.inv.ID]
	inv.CurrentPrice = decimal.NewFromInt(3)
	f.repo.investments[f.inv.ID] = inv
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID, AmountPerInvestment: decimal.NewFromInt(1000)})

	res, err := f.svc.Execute(context.Background(), f.userID, tmpl.ID)
	require.NoError(t, err)

	tx := f.ledger.booked[0]
	assert.True(t, tx.Units.Equal(decimal.RequireFromString("333.333333")))
	assert.True(t, tx.NetAmount.Equal(decimal.RequireFromString("999.999999")))
	assert.True(t, f.repo.templates[tmpl.ID].TotalInvested.Equal(tx.NetAmount))
	assert.True(t, res.Template.TotalInvested.Equal(tx.NetAmount))
}

func TestExecute_UsageFailureIsTolerated(t *testing.T) {
	f := newFixture()
	f.repo.usageErr = errors.New("counter unavailable")
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})

	res, err := f.svc.Execute(context.Background(), f.userID, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Template.TotalExecuted)
	assert.Equal(t, 0, res.Template.UsageCount)
}

func TestExecute_LedgerFailureKeepsTemplate(t *testing.T) {
	f := newFixture()
	f.ledger.err = service.ErrInsufficientUnits
	tmpl := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})

	_, err := f.svc.Execute(context.Background(), f.userID, tmpl.ID)
	assert.ErrorIs(t, err, service.ErrInsufficientUnits)
	assert.Equal(t, 0, f.repo.templates[tmpl.ID].TotalExecuted)
	assert.Zero(t, f.repo.usage[tmpl.ID])
}

func TestExecute_Refusals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	noTarget := f.create(t, model.TemplateInput{})
	_, err := f.svc.Execute(ctx, f.userID, noTarget.ID)
	assert.ErrorIs(t, err, service.ErrValidation)

	paused := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})
	_, err = f.svc.Toggle(ctx, f.userID, paused.ID)
	require.NoError(t, err)
	_, err = f.svc.Execute(ctx, f.userID, paused.ID)
	assert.ErrorIs(t, err, service.ErrTemplateInactive)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	ended := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID, StartDate: &start, EndDate: &end})
	_, err = f.svc.Execute(ctx, f.userID, ended.ID)
	assert.ErrorIs(t, err, service.ErrTemplateInactive)

	deleted := f.create(t, model.TemplateInput{InvestmentID: &f.inv.ID})
	require.NoError(t, f.svc.Delete(ctx, f.userID, deleted.ID))
	_, err = f.svc.Execute(ctx, f.userID, deleted.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.Execute(ctx, uuid.New(), paused.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	assert.Empty(t, f.ledger.booked)
}

func TestListHidesDeletedAndForeign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	kept := f.create(t, model.TemplateInput{})
	gone := f.create(t, model.TemplateInput{})
	require.NoError(t, f.svc.Delete(ctx, f.userID, gone.ID))

	stranger := uuid.New()
	f.repo.templates[uuid.New()] = model.Template{ID: uuid.New(), UserID: &stranger, Status: model.TemplateStatusActive}
	global := model.Template{ID: uuid.New(), IsGlobal: true, Status: model.TemplateStatusActive}
	f.repo.templates[global.ID] = global

	list, err := f.svc.List(ctx, f.userID)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(list))
	for _, tmpl := range list {
		ids = append(ids, tmpl.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{kept.ID, global.ID}, ids)
}

func TestDuplicateGlobal(t *testing.T) {
	f := newFixture()
	global := model.Template{
		ID:                  uuid.New(),
		IsGlobal:            true,
		Name:                "Starter",
		Frequency:           model.FrequencyWeekly,
		IntervalValue:       1,
		AmountPerInvestment: decimal.NewFromInt(500),
		TotalExecuted:       9,
		StartDate:           time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:              model.TemplateStatusActive,
	}
	f.repo.templates[global.ID] = global

	clone, err := f.svc.Duplicate(context.Background(), f.userID, global.ID)
	require.NoError(t, err)

	assert.NotEqual(t, global.ID, clone.ID)
	assert.True(t, clone.OwnedBy(f.userID))
	assert.Equal(t, 0, clone.TotalExecuted)
	assert.Equal(t, model.DateOf(now), clone.StartDate)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), clone.NextExecution)

	_, err = f.svc.Update(context.Background(), f.userID, global.ID, model.TemplatePatch{})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestDue(t *testing.T) {
	f := newFixture()
	past := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	due := f.create(t, model.TemplateInput{AutoExecute: true, StartDate: &past})
	f.create(t, model.TemplateInput{AutoExecute: false, StartDate: &past})
	f.create(t, model.TemplateInput{AutoExecute: true})

	list, err := f.svc.Due(context.Background(), &f.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)
	require.Len(t, f.repo.dueArgs, 1)
	assert.Equal(t, f.userID, *f.repo.dueArgs[0])
}
