package portfolioService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Repository interface {
	InsertPortfolio(ctx context.Context, portfolio model.Portfolio) (model.Portfolio, error)
	GetPortfolio(ctx context.Context, id uuid.UUID) (model.Portfolio, error)
	ListPortfolios(ctx context.Context, userID uuid.UUID) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolio model.Portfolio) error
	DeactivatePortfolio(ctx context.Context, id uuid.UUID) error
	ListInvestments(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Investment, error)
	ListPortfolioInvestments(ctx context.Context, portfolioID uuid.UUID) ([]model.Investment, error)
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]model.Template, error)
}

type PortfolioService struct {
	repo Repository
}

func New(repo Repository) *PortfolioService {
	return &PortfolioService{repo: repo}
}

func (s *PortfolioService) Create(ctx context.Context, userID uuid.UUID, in model.PortfolioInput) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Create"

	slog.Debug("Create start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))

	p, err := model.NewPortfolio(in, userID)
	if err != nil {
		return model.Portfolio{}, err
	}

	p, err = s.repo.InsertPortfolio(ctx, p)
	if err != nil {
		slog.Error("got error from repo.InsertPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, service.FromRepo(err)
	}

	return p, nil
}

func (s *PortfolioService) Get(ctx context.Context, userID, id uuid.UUID) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Get"

	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	investments, err := s.repo.ListPortfolioInvestments(ctx, id)
	if err != nil {
		slog.Error("got error from repo.ListPortfolioInvestments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	return model.Summarize(p, investments), nil
}

// List returns the user's active portfolios with totals derived from their
// active investments.
func (s *PortfolioService) List(ctx context.Context, userID uuid.UUID) (summaries []model.PortfolioSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.List"

	slog.Debug("List start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))
	defer func() {
		slog.Debug("List finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(summaries)))
	}()

	var (
		portfolios  []model.Portfolio
		investments []model.Investment
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		portfolios, err = s.repo.ListPortfolios(gCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		investments, err = s.repo.ListInvestments(gCtx, userID, true)
		return err
	})
	if err = g.Wait(); err != nil {
		slog.Error("failed to load portfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	summaries = make([]model.PortfolioSummary, 0, len(portfolios))
	for _, p := range portfolios {
		summaries = append(summaries, model.Summarize(p, investments))
	}

	return summaries, nil
}

func (s *PortfolioService) Update(ctx context.Context, userID, id uuid.UUID, patch model.PortfolioPatch) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Update"

	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return model.Portfolio{}, err
	}

	if err = p.ApplyPatch(patch); err != nil {
		return model.Portfolio{}, err
	}

	if err = s.repo.UpdatePortfolio(ctx, p); err != nil {
		slog.Error("got error from repo.UpdatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, service.FromRepo(err)
	}

	return p, nil
}

// Delete flips the active flag. Member investments are left untouched.
func (s *PortfolioService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Delete"

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.DeactivatePortfolio(ctx, id); err != nil {
		slog.Error("got error from repo.DeactivatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.FromRepo(err)
	}

	slog.Info("portfolio deactivated", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", id.String()))
	return nil
}

// Performance builds the full view: totals, allocation by type and the
// monthly SIP contribution of templates aimed at this portfolio.
func (s *PortfolioService) Performance(ctx context.Context, userID, id uuid.UUID) (perf model.PortfolioPerformance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Performance"

	slog.Debug("Performance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", id.String()))
	defer func() {
		slog.Debug("Performance finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", id.String()))
	}()

	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return model.PortfolioPerformance{}, err
	}

	var (
		investments []model.Investment
		templates   []model.Template
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		investments, err = s.repo.ListPortfolioInvestments(gCtx, id)
		return err
	})
	g.Go(func() (err error) {
		templates, err = s.repo.ListTemplates(gCtx, userID)
		return err
	})
	if err = g.Wait(); err != nil {
		slog.Error("failed to load portfolio performance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioPerformance{}, err
	}

	return model.BuildPerformance(p, investments, targeting(templates, id, investments)), nil
}

func (s *PortfolioService) owned(ctx context.Context, userID, id uuid.UUID) (model.Portfolio, error) {
	p, err := s.repo.GetPortfolio(ctx, id)
	if err != nil {
		return model.Portfolio{}, service.FromRepo(err)
	}
	if p.UserID != userID {
		return model.Portfolio{}, service.ErrForbidden
	}
	if !p.IsActive {
		return model.Portfolio{}, service.ErrNotFound
	}
	return p, nil
}

// targeting keeps the user's own templates that point at the portfolio or at
// one of its investments.
func targeting(templates []model.Template, portfolioID uuid.UUID, investments []model.Investment) []model.Template {
	members := make(map[uuid.UUID]struct{}, len(investments))
	for _, inv := range investments {
		members[inv.ID] = struct{}{}
	}

	res := make([]model.Template, 0, len(templates))
	for _, t := range templates {
		if t.IsGlobal {
			continue
		}
		if t.PortfolioID != nil && *t.PortfolioID == portfolioID {
			res = append(res, t)
			continue
		}
		if t.InvestmentID != nil {
			if _, ok := members[*t.InvestmentID]; ok {
				res = append(res, t)
			}
		}
	}
	return res
}
