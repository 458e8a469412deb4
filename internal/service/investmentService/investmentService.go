package investmentService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/externalApi"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const (
	priceSourceManual = "manual"
	priceSourceQuote  = "quote"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetPortfolio(ctx context.Context, id uuid.UUID) (model.Portfolio, error)
	InsertInvestment(ctx context.Context, inv model.Investment) (model.Investment, error)
	GetInvestment(ctx context.Context, id uuid.UUID) (model.Investment, error)
	GetInvestmentForUpdate(ctx context.Context, id uuid.UUID) (model.Investment, error)
	ListInvestments(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Investment, error)
	ListQuotedInvestments(ctx context.Context) ([]model.Investment, error)
	UpdateInvestment(ctx context.Context, inv model.Investment) error
	CloseInvestment(ctx context.Context, id uuid.UUID) error
	InsertPricePoint(ctx context.Context, investmentID uuid.UUID, price decimal.Decimal, recordedOn time.Time) error
	ListPriceHistory(ctx context.Context, investmentID uuid.UUID, limit int) ([]model.PricePoint, error)
	InsertTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	ListInvestmentLedger(ctx context.Context, investmentID uuid.UUID) ([]model.Transaction, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
	SetQuotes(ctx context.Context, quotes []moexModel.Quote) error
}

type QuoteApi interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]moexModel.Quote, error)
}

type CreateResult struct {
	Investment            model.Investment   `json:"investment"`
	SeedTransaction       *model.Transaction `json:"seed_transaction,omitempty"`
	SeedTransactionFailed bool               `json:"seed_transaction_failed,omitempty"`
}

type InvestmentService struct {
	repo         Repository
	cache        Cache
	quoteApi     QuoteApi
	publisher    events.Publisher
	clock        clockwork.Clock
	atomicCreate bool
}

func New(cfg *config.Config, repo Repository, cache Cache, quoteApi QuoteApi, publisher events.Publisher, clock clockwork.Clock) *InvestmentService {
	return &InvestmentService{
		repo:         repo,
		cache:        cache,
		quoteApi:     quoteApi,
		publisher:    publisher,
		clock:        clock,
		atomicCreate: cfg.Investments.AtomicCreate,
	}
}

// Create inserts the investment and its opening buy. In atomic mode both rows
// commit together; otherwise a failed seed insert leaves the investment in
// place and is reported through SeedTransactionFailed.
func (s *InvestmentService) Create(ctx context.Context, userID uuid.UUID, in model.InvestmentInput) (res CreateResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.Create"

	slog.Debug("Create start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))
	defer func() {
		slog.Debug("Create finished", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("atomic", s.atomicCreate))
	}()

	if _, err = s.ownedPortfolio(ctx, userID, in.PortfolioID); err != nil {
		return CreateResult{}, err
	}

	inv, err := model.NewInvestment(in, userID, s.clock.Now())
	if err != nil {
		return CreateResult{}, err
	}
	seed := inv.SeedTransaction()

	if s.atomicCreate {
		err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			created, err := s.repo.InsertInvestment(ctx, inv)
			if err != nil {
				slog.Error("got error from repo.InsertInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return err
			}
			seedTx, err := s.repo.InsertTransaction(ctx, seed)
			if err != nil {
				slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return err
			}
			res = CreateResult{Investment: created, SeedTransaction: &seedTx}
			return nil
		})
		if err != nil {
			return CreateResult{}, service.FromRepo(err)
		}
	} else {
		created, err := s.repo.InsertInvestment(ctx, inv)
		if err != nil {
			slog.Error("got error from repo.InsertInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return CreateResult{}, service.FromRepo(err)
		}
		res.Investment = created

		seedTx, err := s.repo.InsertTransaction(ctx, seed)
		if err != nil {
			slog.Warn("seed transaction was not recorded, investment kept",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("investmentID", created.ID.String()),
				slog.String("err", err.Error()),
			)
			res.SeedTransactionFailed = true
		} else {
			res.SeedTransaction = &seedTx
		}
	}

	if res.SeedTransaction != nil {
		metrics.RecordTransaction(string(res.SeedTransaction.Type))
	}
	events.Emit(ctx, s.publisher, events.InvestmentCreated, userID, res.Investment)

	return res, nil
}

func (s *InvestmentService) Get(ctx context.Context, userID, id uuid.UUID) (model.Investment, error) {
	return s.ownedInvestment(ctx, userID, id, false)
}

func (s *InvestmentService) List(ctx context.Context, userID uuid.UUID, includeClosed bool) ([]model.Investment, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.List"

	investments, err := s.repo.ListInvestments(ctx, userID, !includeClosed)
	if err != nil {
		slog.Error("got error from repo.ListInvestments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return investments, nil
}

func (s *InvestmentService) Update(ctx context.Context, userID, id uuid.UUID, patch model.InvestmentPatch) (inv model.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.Update"

	slog.Debug("Update start", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", id.String()))
	defer func() {
		slog.Debug("Update finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", id.String()))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err = s.ownedInvestment(ctx, userID, id, true)
		if err != nil {
			return err
		}
		if inv.Status == model.InvestmentStatusClosed {
			return fmt.Errorf("%w: investment is closed", service.ErrValidation)
		}
		if err = inv.ApplyPatch(patch); err != nil {
			return err
		}
		if err = s.repo.UpdateInvestment(ctx, inv); err != nil {
			slog.Error("got error from repo.UpdateInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}
		return nil
	})
	if err != nil {
		return model.Investment{}, err
	}

	return inv, nil
}

// UpdatePrice overwrites the current price and appends a history point.
func (s *InvestmentService) UpdatePrice(ctx context.Context, userID, id uuid.UUID, price decimal.Decimal) (model.Investment, error) {
	return s.applyPrice(ctx, &userID, id, price, priceSourceManual)
}

func (s *InvestmentService) applyPrice(ctx context.Context, userID *uuid.UUID, id uuid.UUID, price decimal.Decimal, source string) (inv model.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.applyPrice"

	slog.Debug("applyPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", id.String()), slog.String("price", price.String()))
	defer func() {
		slog.Debug("applyPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("source", source))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if userID != nil {
			inv, err = s.ownedInvestment(ctx, *userID, id, true)
		} else {
			inv, err = s.repo.GetInvestmentForUpdate(ctx, id)
			err = service.FromRepo(err)
		}
		if err != nil {
			return err
		}

		if err = inv.UpdatePrice(price); err != nil {
			return err
		}
		if err = s.repo.UpdateInvestment(ctx, inv); err != nil {
			slog.Error("got error from repo.UpdateInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}
		if err = s.repo.InsertPricePoint(ctx, id, price, model.DateOf(s.clock.Now())); err != nil {
			slog.Error("got error from repo.InsertPricePoint", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		return nil
	})
	if err != nil {
		return model.Investment{}, err
	}

	metrics.RecordPriceUpdate(source)
	return inv, nil
}

// Close soft-deletes the investment. Its ledger and price history stay.
func (s *InvestmentService) Close(ctx context.Context, userID, id uuid.UUID) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.Close"

	if _, err := s.ownedInvestment(ctx, userID, id, false); err != nil {
		return err
	}

	if err := s.repo.CloseInvestment(ctx, id); err != nil {
		slog.Error("got error from repo.CloseInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.FromRepo(err)
	}

	slog.Info("investment closed", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", id.String()))
	return nil
}

func (s *InvestmentService) CostBasis(ctx context.Context, userID, id uuid.UUID) (model.CostBasis, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.CostBasis"

	if _, err := s.ownedInvestment(ctx, userID, id, false); err != nil {
		return model.CostBasis{}, err
	}

	ledger, err := s.repo.ListInvestmentLedger(ctx, id)
	if err != nil {
		slog.Error("got error from repo.ListInvestmentLedger", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CostBasis{}, err
	}

	return model.CalculateCostBasis(ledger), nil
}

func (s *InvestmentService) PriceHistory(ctx context.Context, userID, id uuid.UUID, limit int) ([]model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.PriceHistory"

	if _, err := s.ownedInvestment(ctx, userID, id, false); err != nil {
		return nil, err
	}

	points, err := s.repo.ListPriceHistory(ctx, id, limit)
	if err != nil {
		slog.Error("got error from repo.ListPriceHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return points, nil
}

// RefreshPrices pulls quotes for every active investment with a symbol and
// applies the ones that moved. Cached quotes are used first.
func (s *InvestmentService) RefreshPrices(ctx context.Context) (updated int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.RefreshPrices"

	slog.Debug("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("updated", updated))
	}()

	investments, err := s.repo.ListQuotedInvestments(ctx)
	if err != nil {
		slog.Error("got error from repo.ListQuotedInvestments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}
	if len(investments) == 0 {
		return 0, nil
	}

	bySymbol := make(map[string][]model.Investment)
	for _, inv := range investments {
		bySymbol[inv.Symbol] = append(bySymbol[inv.Symbol], inv)
	}

	quotes, err := s.quotes(ctx, bySymbol)
	if err != nil {
		return 0, err
	}

	for symbol, holdings := range bySymbol {
		quote, ok := quotes[symbol]
		if !ok || !quote.Active || !quote.Price.IsPositive() {
			slog.Warn("no usable quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
			continue
		}
		for _, inv := range holdings {
			if inv.CurrentPrice.Equal(quote.Price) {
				continue
			}
			if _, err := s.applyPrice(ctx, nil, inv.ID, quote.Price, priceSourceQuote); err != nil {
				slog.Error("failed to apply quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentID", inv.ID.String()), slog.String("err", err.Error()))
				continue
			}
			updated++
		}
	}

	return updated, nil
}

func (s *InvestmentService) quotes(ctx context.Context, bySymbol map[string][]model.Investment) (map[string]moexModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestmentService.quotes"

	quotes := make(map[string]moexModel.Quote, len(bySymbol))
	missing := make([]string, 0)
	for symbol := range bySymbol {
		quote, err := s.cache.GetQuote(ctx, symbol)
		if err != nil {
			missing = append(missing, symbol)
			continue
		}
		quotes[symbol] = quote
	}

	if len(missing) == 0 {
		return quotes, nil
	}
	slices.Sort(missing)

	fetched, err := s.quoteApi.GetQuotes(ctx, missing)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("quotes not found in quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.Any("symbols", missing))
			return quotes, nil
		}
		slog.Error("can't get quotes from quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	toCache := make([]moexModel.Quote, 0, len(fetched))
	for symbol, quote := range fetched {
		quotes[symbol] = quote
		toCache = append(toCache, quote)
	}
	if err = s.cache.SetQuotes(ctx, toCache); err != nil {
		slog.Warn("can't cache quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return quotes, nil
}

func (s *InvestmentService) ownedPortfolio(ctx context.Context, userID, id uuid.UUID) (model.Portfolio, error) {
	p, err := s.repo.GetPortfolio(ctx, id)
	if err != nil {
		return model.Portfolio{}, service.FromRepo(err)
	}
	if p.UserID != userID {
		return model.Portfolio{}, service.ErrForbidden
	}
	if !p.IsActive {
		return model.Portfolio{}, fmt.Errorf("%w: portfolio is archived", service.ErrValidation)
	}
	return p, nil
}

func (s *InvestmentService) ownedInvestment(ctx context.Context, userID, id uuid.UUID, forUpdate bool) (inv model.Investment, err error) {
	if forUpdate {
		inv, err = s.repo.GetInvestmentForUpdate(ctx, id)
	} else {
		inv, err = s.repo.GetInvestment(ctx, id)
	}
	if err != nil {
		return model.Investment{}, service.FromRepo(err)
	}
	if inv.UserID != userID {
		return model.Investment{}, service.ErrForbidden
	}
	return inv, nil
}
