package transactionService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	investments map[uuid.UUID]model.Investment
	txs         []model.Transaction
	filters     []model.TransactionFilter
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	invs := make(map[uuid.UUID]model.Investment, len(r.investments))
	for k, v := range r.investments {
		invs[k] = v
	}
	txs := append([]model.Transaction(nil), r.txs...)

	if err := fn(ctx); err != nil {
		r.investments, r.txs = invs, txs
		return err
	}
	return nil
}

func (r *fakeRepo) GetInvestmentForUpdate(_ context.Context, id uuid.UUID) (model.Investment, error) {
	inv, ok := r.investments[id]
	if !ok {
		return model.Investment{}, repository.ErrNotFound
	}
	return inv, nil
}

func (r *fakeRepo) UpdateInvestment(_ context.Context, inv model.Investment) error {
	r.investments[inv.ID] = inv
	return nil
}

func (r *fakeRepo) InsertTransaction(_ context.Context, tx model.Transaction) (model.Transaction, error) {
	r.txs = append(r.txs, tx)
	return tx, nil
}

func (r *fakeRepo) GetTransaction(_ context.Context, id uuid.UUID) (model.Transaction, error) {
	for _, tx := range r.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return model.Transaction{}, repository.ErrNotFound
}

func (r *fakeRepo) UpdateTransaction(_ context.Context, tx model.Transaction) error {
	for i := range r.txs {
		if r.txs[i].ID == tx.ID {
			r.txs[i] = tx
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) ListTransactions(_ context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	r.filters = append(r.filters, f)
	return r.txs, nil
}

func (r *fakeRepo) ListInvestmentLedger(_ context.Context, id uuid.UUID) ([]model.Transaction, error) {
	var res []model.Transaction
	for _, tx := range r.txs {
		if tx.InvestmentID == id {
			res = append(res, tx)
		}
	}
	return res, nil
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newFixture(t *testing.T) (*TransactionService, *fakeRepo, model.Investment) {
	t.Helper()
	userID := uuid.New()
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	inv, err := model.NewInvestment(model.InvestmentInput{
		PortfolioID:  uuid.New(),
		Name:         "Acme",
		Type:         "stock",
		Units:        dec(100),
		AverageCost:  dec(50),
		CurrentPrice: dec(60),
		Platform:     "Zerodha",
	}, userID, today)
	require.NoError(t, err)

	repo := &fakeRepo{
		investments: map[uuid.UUID]model.Investment{inv.ID: inv},
		txs:         []model.Transaction{inv.SeedTransaction()},
	}
	svc := New(repo, events.NopPublisher{}, clockwork.NewFakeClockAt(today.Add(9*time.Hour)))
	return svc, repo, inv
}

func TestCreate_BuySyncsInvestment(t *testing.T) {
	svc, repo, inv := newFixture(t)
	fee := dec(10)

	res, err := svc.Create(context.Background(), inv.UserID, model.TransactionInput{
		InvestmentID: inv.ID,
		Type:         "buy",
		Units:        dec(100),
		PricePerUnit: dec(70),
		BrokerageFee: &fee,
	})
	require.NoError(t, err)

	assert.True(t, res.Transaction.TotalAmount.Equal(dec(7000)))
	assert.True(t, res.Transaction.NetAmount.Equal(dec(6990)))
	assert.Equal(t, "Zerodha", res.Transaction.Platform)
	assert.Equal(t, inv.PortfolioID, res.Transaction.PortfolioID)

	got := repo.investments[inv.ID]
	assert.True(t, got.Units.Equal(dec(200)))
	// (5000 + 6990) / 200
	assert.True(t, got.AverageCost.Equal(decimal.RequireFromString("59.95")))
	assert.True(t, got.CurrentValue.Sub(got.TotalInvested).Equal(got.GainLoss))
}

func TestCreate_SellBeyondHoldings(t *testing.T) {
	svc, repo, inv := newFixture(t)

	_, err := svc.Create(context.Background(), inv.UserID, model.TransactionInput{
		InvestmentID: inv.ID,
		Type:         "sell",
		Units:        dec(101),
		PricePerUnit: dec(60),
	})
	assert.ErrorIs(t, err, service.ErrInsufficientUnits)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Len(t, repo.txs, 1)
}

func TestCreate_Dividend(t *testing.T) {
	svc, repo, inv := newFixture(t)

	_, err := svc.Create(context.Background(), inv.UserID, model.TransactionInput{
		InvestmentID: inv.ID,
		Type:         "dividend",
		Units:        dec(100),
		PricePerUnit: dec(2),
	})
	require.NoError(t, err)

	got := repo.investments[inv.ID]
	assert.True(t, got.DividendEarned.Equal(dec(200)))
	assert.True(t, got.Units.Equal(dec(100)))
}

func TestCreate_ForeignInvestment(t *testing.T) {
	svc, _, inv := newFixture(t)

	_, err := svc.Create(context.Background(), uuid.New(), model.TransactionInput{
		InvestmentID: inv.ID,
		Type:         "buy",
		Units:        dec(1),
		PricePerUnit: dec(1),
	})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestUpdate_PersistsRecomputedAmounts(t *testing.T) {
	svc, repo, inv := newFixture(t)
	seedID := repo.txs[0].ID
	units := dec(80)

	res, err := svc.Update(context.Background(), inv.UserID, seedID, model.TransactionPatch{Units: &units})
	require.NoError(t, err)

	assert.True(t, res.Transaction.TotalAmount.Equal(dec(4000)))
	assert.True(t, repo.txs[0].NetAmount.Equal(dec(4000)))
	assert.True(t, repo.investments[inv.ID].Units.Equal(dec(80)))
}

func TestUpdate_RejectsNegativeHoldings(t *testing.T) {
	svc, repo, inv := newFixture(t)
	_, err := svc.Create(context.Background(), inv.UserID, model.TransactionInput{
		InvestmentID: inv.ID,
		Type:         "sell",
		Units:        dec(90),
		PricePerUnit: dec(60),
	})
	require.NoError(t, err)

	units := dec(50)
	_, err = svc.Update(context.Background(), inv.UserID, repo.txs[0].ID, model.TransactionPatch{Units: &units})
	assert.ErrorIs(t, err, service.ErrInsufficientUnits)
	assert.True(t, repo.txs[0].Units.Equal(dec(100)))
}

func TestList_PassesFilter(t *testing.T) {
	svc, repo, inv := newFixture(t)
	filter := model.TransactionFilter{
		UserID:       inv.UserID,
		InvestmentID: &inv.ID,
		Types:        []model.TransactionType{model.TransactionTypeBuy},
		Platform:     "zero",
	}

	txs, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	require.Len(t, repo.filters, 1)
	assert.Equal(t, filter, repo.filters[0])
}
