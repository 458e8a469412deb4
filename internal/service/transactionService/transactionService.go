package transactionService

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetInvestmentForUpdate(ctx context.Context, id uuid.UUID) (model.Investment, error)
	UpdateInvestment(ctx context.Context, inv model.Investment) error
	InsertTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, tx model.Transaction) error
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
	ListInvestmentLedger(ctx context.Context, investmentID uuid.UUID) ([]model.Transaction, error)
}

type Result struct {
	Transaction model.Transaction `json:"transaction"`
	Investment  model.Investment  `json:"investment"`
}

type TransactionService struct {
	repo      Repository
	publisher events.Publisher
	clock     clockwork.Clock
}

func New(repo Repository, publisher events.Publisher, clock clockwork.Clock) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
	}
}

// Create records a manual ledger entry and re-projects the investment.
func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, in model.TransactionInput) (res Result, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TransactionService.Create"

	slog.Debug("Create start", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", in.InvestmentID.String()), slog.String("type", in.Type))
	defer func() {
		slog.Debug("Create finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", in.InvestmentID.String()))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.lockInvestment(ctx, userID, in.InvestmentID)
		if err != nil {
			return err
		}

		tx, err := model.NewTransaction(in, inv, s.clock.Now())
		if err != nil {
			return err
		}

		res, err = s.Book(ctx, tx)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	metrics.RecordTransaction(string(res.Transaction.Type))
	events.Emit(ctx, s.publisher, events.TransactionCreated, userID, res.Transaction)

	return res, nil
}

// Book inserts tx and syncs its investment from the ledger. It must run inside
// WithinTransaction; sells beyond the held units are refused.
func (s *TransactionService) Book(ctx context.Context, tx model.Transaction) (Result, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TransactionService.Book"

	inv, err := s.repo.GetInvestmentForUpdate(ctx, tx.InvestmentID)
	if err != nil {
		slog.Error("got error from repo.GetInvestmentForUpdate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Result{}, service.FromRepo(err)
	}
	if inv.Status == model.InvestmentStatusClosed {
		return Result{}, fmt.Errorf("%w: investment is closed", service.ErrValidation)
	}
	if tx.Type == model.TransactionTypeSell && tx.Units.GreaterThan(inv.Units) {
		return Result{}, fmt.Errorf("%w: have %s, selling %s", service.ErrInsufficientUnits, inv.Units, tx.Units)
	}

	created, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Result{}, service.FromRepo(err)
	}

	inv, err = s.sync(ctx, inv)
	if err != nil {
		return Result{}, err
	}

	return Result{Transaction: created, Investment: inv}, nil
}

// Update patches an entry. Amount-affecting changes recompute and persist
// total and net amounts, then the investment is re-synced.
func (s *TransactionService) Update(ctx context.Context, userID, id uuid.UUID, patch model.TransactionPatch) (res Result, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TransactionService.Update"

	slog.Debug("Update start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", id.String()))
	defer func() {
		slog.Debug("Update finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", id.String()))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.repo.GetTransaction(ctx, id)
		if err != nil {
			return service.FromRepo(err)
		}
		if tx.UserID != userID {
			return service.ErrForbidden
		}

		inv, err := s.lockInvestment(ctx, userID, tx.InvestmentID)
		if err != nil {
			return err
		}

		if err = tx.ApplyPatch(patch); err != nil {
			return err
		}
		if err = s.repo.UpdateTransaction(ctx, tx); err != nil {
			slog.Error("got error from repo.UpdateTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}

		inv, err = s.sync(ctx, inv)
		if err != nil {
			return err
		}
		res = Result{Transaction: tx, Investment: inv}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

func (s *TransactionService) List(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TransactionService.List"

	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		slog.Error("got error from repo.ListTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return txs, nil
}

func (s *TransactionService) lockInvestment(ctx context.Context, userID, id uuid.UUID) (model.Investment, error) {
	inv, err := s.repo.GetInvestmentForUpdate(ctx, id)
	if err != nil {
		return model.Investment{}, service.FromRepo(err)
	}
	if inv.UserID != userID {
		return model.Investment{}, service.ErrForbidden
	}
	return inv, nil
}

func (s *TransactionService) sync(ctx context.Context, inv model.Investment) (model.Investment, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TransactionService.sync"

	ledger, err := s.repo.ListInvestmentLedger(ctx, inv.ID)
	if err != nil {
		slog.Error("got error from repo.ListInvestmentLedger", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Investment{}, err
	}

	cb := model.CalculateCostBasis(ledger)
	if cb.CurrentUnits.IsNegative() {
		return model.Investment{}, fmt.Errorf("%w: ledger would leave %s units", service.ErrInsufficientUnits, cb.CurrentUnits)
	}

	inv.SyncWithLedger(cb)
	if err = s.repo.UpdateInvestment(ctx, inv); err != nil {
		slog.Error("got error from repo.UpdateInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Investment{}, service.FromRepo(err)
	}

	return inv, nil
}
