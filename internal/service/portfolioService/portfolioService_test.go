package portfolioService

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu          sync.Mutex
	portfolios  map[uuid.UUID]model.Portfolio
	investments []model.Investment
	templates   []model.Template
	listErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{portfolios: make(map[uuid.UUID]model.Portfolio)}
}

func (r *fakeRepo) InsertPortfolio(_ context.Context, p model.Portfolio) (model.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[p.ID] = p
	return p, nil
}

func (r *fakeRepo) GetPortfolio(_ context.Context, id uuid.UUID) (model.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.portfolios[id]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) ListPortfolios(_ context.Context, userID uuid.UUID) ([]model.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Portfolio
	for _, p := range r.portfolios {
		if p.UserID == userID && p.IsActive {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeRepo) UpdatePortfolio(_ context.Context, p model.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[p.ID] = p
	return nil
}

func (r *fakeRepo) DeactivatePortfolio(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.portfolios[id]
	p.IsActive = false
	r.portfolios[id] = p
	return nil
}

func (r *fakeRepo) ListInvestments(_ context.Context, userID uuid.UUID, _ bool) ([]model.Investment, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var res []model.Investment
	for _, inv := range r.investments {
		if inv.UserID == userID {
			res = append(res, inv)
		}
	}
	return res, nil
}

func (r *fakeRepo) ListPortfolioInvestments(_ context.Context, portfolioID uuid.UUID) ([]model.Investment, error) {
	var res []model.Investment
	for _, inv := range r.investments {
		if inv.PortfolioID == portfolioID {
			res = append(res, inv)
		}
	}
	return res, nil
}

func (r *fakeRepo) ListTemplates(_ context.Context, _ uuid.UUID) ([]model.Template, error) {
	return r.templates, nil
}

func holding(userID, portfolioID uuid.UUID, typ model.InvestmentType, units, avg, price int64) model.Investment {
	inv := model.Investment{
		ID:           uuid.New(),
		UserID:       userID,
		PortfolioID:  portfolioID,
		Type:         typ,
		Units:        decimal.NewFromInt(units),
		AverageCost:  decimal.NewFromInt(avg),
		CurrentPrice: decimal.NewFromInt(price),
		Status:       model.InvestmentStatusActive,
	}
	inv.Recalculate()
	return inv
}

func TestList_SumsActiveMembers(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Create(ctx, userID, model.PortfolioInput{Name: "Retirement"})
	require.NoError(t, err)
	empty, err := svc.Create(ctx, userID, model.PortfolioInput{Name: "Empty"})
	require.NoError(t, err)

	closed := holding(userID, p.ID, model.InvestmentTypeStock, 10, 10, 1)
	closed.Status = model.InvestmentStatusClosed
	repo.investments = []model.Investment{
		holding(userID, p.ID, model.InvestmentTypeStock, 100, 50, 60),
		holding(userID, p.ID, model.InvestmentTypeBond, 10, 100, 90),
		closed,
	}

	summaries, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, s := range summaries {
		switch s.ID {
		case p.ID:
			assert.Equal(t, 2, s.InvestmentCount)
			assert.True(t, s.TotalInvested.Equal(decimal.NewFromInt(6000)))
			assert.True(t, s.TotalGainLoss.Equal(decimal.NewFromInt(900)))
			assert.True(t, s.TotalReturnPercentage.Equal(decimal.NewFromInt(15)))
		case empty.ID:
			assert.True(t, s.TotalReturnPercentage.IsZero())
		}
	}
}

func TestList_AnyReadFailureFailsAll(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db down")

	_, err := New(repo).List(context.Background(), uuid.New())
	assert.EqualError(t, err, "db down")
}

func TestDelete_SoftDeletes(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Create(ctx, userID, model.PortfolioInput{Name: "Old"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), p.ID), service.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, userID, p.ID))

	assert.Contains(t, repo.portfolios, p.ID)
	_, err = svc.Get(ctx, userID, p.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Create(ctx, userID, model.PortfolioInput{Name: "Old"})
	require.NoError(t, err)

	name, risk := "New", "aggressive"
	updated, err := svc.Update(ctx, userID, p.ID, model.PortfolioPatch{Name: &name, RiskLevel: &risk})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, model.RiskLevelAggressive, repo.portfolios[p.ID].RiskLevel)

	bad := "reckless"
	_, err = svc.Update(ctx, userID, p.ID, model.PortfolioPatch{RiskLevel: &bad})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestPerformance(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Create(ctx, userID, model.PortfolioInput{Name: "Growth"})
	require.NoError(t, err)
	other := uuid.New()

	stock := holding(userID, p.ID, model.InvestmentTypeStock, 30, 100, 100)
	fund := holding(userID, p.ID, model.InvestmentTypeMutualFund, 10, 100, 100)
	repo.investments = []model.Investment{stock, fund}

	owner := userID
	repo.templates = []model.Template{
		{UserID: &owner, PortfolioID: &p.ID, Frequency: model.FrequencyMonthly, IntervalValue: 1, AmountPerInvestment: decimal.NewFromInt(1000), Status: model.TemplateStatusActive},
		{UserID: &owner, InvestmentID: &fund.ID, Frequency: model.FrequencyYearly, IntervalValue: 1, AmountPerInvestment: decimal.NewFromInt(1200), Status: model.TemplateStatusActive},
		{UserID: &owner, PortfolioID: &other, Frequency: model.FrequencyMonthly, IntervalValue: 1, AmountPerInvestment: decimal.NewFromInt(5000), Status: model.TemplateStatusActive},
		{IsGlobal: true, Frequency: model.FrequencyMonthly, IntervalValue: 1, AmountPerInvestment: decimal.NewFromInt(700), Status: model.TemplateStatusActive},
	}

	perf, err := svc.Performance(ctx, userID, p.ID)
	require.NoError(t, err)

	assert.True(t, perf.MonthlySIP.Equal(decimal.NewFromInt(1100)))
	assert.Equal(t, 2, perf.ActiveTemplateCount)
	require.Len(t, perf.Allocation, 2)
	assert.Equal(t, model.InvestmentTypeStock, perf.Allocation[0].Type)
	assert.True(t, perf.Allocation[0].Percentage.Equal(decimal.NewFromInt(75)))
}
