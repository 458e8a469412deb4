package sipService

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/internal/service/transactionService"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// unitsPrecision is the number of decimal places kept when an execution
// amount is converted into units.
const unitsPrecision = 6

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetPortfolio(ctx context.Context, id uuid.UUID) (model.Portfolio, error)
	GetInvestment(ctx context.Context, id uuid.UUID) (model.Investment, error)
	InsertTemplate(ctx context.Context, t model.Template) (model.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (model.Template, error)
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]model.Template, error)
	ListDueTemplates(ctx context.Context, userID *uuid.UUID, today time.Time) ([]model.Template, error)
	UpdateTemplate(ctx context.Context, t model.Template) error
	IncrementTemplateUsage(ctx context.Context, id uuid.UUID) error
}

type Ledger interface {
	Book(ctx context.Context, tx model.Transaction) (transactionService.Result, error)
}

type Execution struct {
	Template    model.Template    `json:"template"`
	Transaction model.Transaction `json:"transaction"`
	Investment  model.Investment  `json:"investment"`
}

type SIPService struct {
	repo      Repository
	ledger    Ledger
	publisher events.Publisher
	clock     clockwork.Clock
}

func New(repo Repository, ledger Ledger, publisher events.Publisher, clock clockwork.Clock) *SIPService {
	return &SIPService{
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
	}
}

func (s *SIPService) today() time.Time {
	return model.DateOf(s.clock.Now())
}

func (s *SIPService) Create(ctx context.Context, userID uuid.UUID, in model.TemplateInput) (t model.Template, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SIPService.Create"

	slog.Debug("Create start", slog.String("rqID", rqID), slog.String("op", op), slog.String("frequency", in.Frequency))
	defer func() {
		slog.Debug("Create finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("templateID", t.ID.String()))
	}()

	t, err = model.NewTemplate(in, userID, s.today())
	if err != nil {
		return model.Template{}, err
	}
	if err = s.checkTargets(ctx, userID, &t); err != nil {
		return model.Template{}, err
	}

	t, err = s.repo.InsertTemplate(ctx, t)
	if err != nil {
		slog.Error("got error from repo.InsertTemplate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Template{}, service.FromRepo(err)
	}

	return t, nil
}

func (s *SIPService) Get(ctx context.Context, userID, id uuid.UUID) (model.Template, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return model.Template{}, service.FromRepo(err)
	}
	if !t.VisibleTo(userID) {
		return model.Template{}, service.ErrNotFound
	}
	return t, nil
}

// List returns the user's templates and the global ones. Deleted templates
// are hidden.
func (s *SIPService) List(ctx context.Context, userID uuid.UUID) ([]model.Template, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SIPService.List"

	templates, err := s.repo.ListTemplates(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListTemplates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.Template, 0, len(templates))
	for _, t := range templates {
		if t.VisibleTo(userID) {
			res = append(res, t)
		}
	}
	return res, nil
}

func (s *SIPService) Update(ctx context.Context, userID, id uuid.UUID, patch model.TemplatePatch) (model.Template, error) {
	return s.modify(ctx, userID, id, "SIPService.Update", func(t *model.Template) error {
		if err := t.ApplyPatch(patch); err != nil {
			return err
		}
		if patch.PortfolioID != nil || patch.InvestmentID != nil {
			return s.checkTargets(ctx, userID, t)
		}
		return nil
	})
}

// Toggle pauses an active template or resumes a paused one.
func (s *SIPService) Toggle(ctx context.Context, userID, id uuid.UUID) (model.Template, error) {
	return s.modify(ctx, userID, id, "SIPService.Toggle", func(t *model.Template) error {
		return t.Toggle()
	})
}

func (s *SIPService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	_, err := s.modify(ctx, userID, id, "SIPService.Delete", func(t *model.Template) error {
		t.Status = model.TemplateStatusDeleted
		return nil
	})
	return err
}

func (s *SIPService) modify(ctx context.Context, userID, id uuid.UUID, op string, change func(t *model.Template) error) (model.Template, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return model.Template{}, service.FromRepo(err)
	}
	if t.IsDeleted() {
		return model.Template{}, service.ErrNotFound
	}
	if !t.OwnedBy(userID) {
		return model.Template{}, service.ErrForbidden
	}

	if err = change(&t); err != nil {
		return model.Template{}, err
	}

	if err = s.repo.UpdateTemplate(ctx, t); err != nil {
		slog.Error("got error from repo.UpdateTemplate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Template{}, service.FromRepo(err)
	}

	slog.Debug("template modified", slog.String("rqID", rqID), slog.String("op", op), slog.String("templateID", id.String()), slog.String("status", string(t.Status)))
	return t, nil
}

// Duplicate copies an own or global template into a new template owned by the
// user, starting today with zeroed counters.
func (s *SIPService) Duplicate(ctx context.Context, userID, id uuid.UUID) (model.Template, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SIPService.Duplicate"

	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return model.Template{}, err
	}

	clone, err := src.Duplicate(userID, s.today())
	if err != nil {
		return model.Template{}, err
	}

	clone, err = s.repo.InsertTemplate(ctx, clone)
	if err != nil {
		slog.Error("got error from repo.InsertTemplate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Template{}, service.FromRepo(err)
	}

	return clone, nil
}

// Due lists templates an external scheduler should execute today. A nil
// userID covers every user.
func (s *SIPService) Due(ctx context.Context, userID *uuid.UUID) ([]model.Template, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SIPService.Due"

	today := s.today()
	templates, err := s.repo.ListDueTemplates(ctx, userID, today)
	if err != nil {
		slog.Error("got error from repo.ListDueTemplates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.Template, 0, len(templates))
	for _, t := range templates {
		if t.IsDue(today) {
			res = append(res, t)
		}
	}
	return res, nil
}

// Execute books one buy for the template amount against its target investment
// and advances the schedule from today. The usage counter is bumped after the
// commit and a failure there does not undo the execution.
func (s *SIPService) Execute(ctx context.Context, userID, id uuid.UUID) (res Execution, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SIPService.Execute"

	slog.Debug("Execute start", slog.String("rqID", rqID), slog.String("op", op), slog.String("templateID", id.String()))
	defer func() {
		slog.Debug("Execute finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("templateID", id.String()))
	}()

	today := s.today()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTemplate(ctx, id)
		if err != nil {
			return service.FromRepo(err)
		}
		if err = executable(t, userID, today); err != nil {
			return err
		}

		inv, err := s.repo.GetInvestment(ctx, *t.InvestmentID)
		if err != nil {
			return service.FromRepo(err)
		}
		if inv.UserID != userID {
			return service.ErrForbidden
		}

		booked, err := s.ledger.Book(ctx, executionTransaction(t, inv, today))
		if err != nil {
			return err
		}

		// counters follow the booked amount, which can differ from the template
		// amount once units are rounded
		if err = t.RecordExecution(today, booked.Transaction.NetAmount); err != nil {
			return err
		}
		if err = s.repo.UpdateTemplate(ctx, t); err != nil {
			slog.Error("got error from repo.UpdateTemplate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}

		res = Execution{Template: t, Transaction: booked.Transaction, Investment: booked.Investment}
		return nil
	})
	if err != nil {
		return Execution{}, err
	}

	if err := s.repo.IncrementTemplateUsage(ctx, id); err != nil {
		slog.Warn("failed to increment template usage", slog.String("rqID", rqID), slog.String("op", op), slog.String("templateID", id.String()), slog.String("err", err.Error()))
	} else {
		res.Template.UsageCount++
	}

	metrics.RecordSIPExecution(string(res.Template.Frequency))
	metrics.RecordTransaction(string(res.Transaction.Type))
	events.Emit(ctx, s.publisher, events.SIPExecuted, userID, res)

	return res, nil
}

func executable(t model.Template, userID uuid.UUID, today time.Time) error {
	switch {
	case t.IsDeleted():
		return service.ErrNotFound
	case !t.OwnedBy(userID):
		return service.ErrForbidden
	case !t.IsActive():
		return fmt.Errorf("%w: template is %s", service.ErrTemplateInactive, t.Status)
	case t.Ended(today):
		return fmt.Errorf("%w: template ended on %s", service.ErrTemplateInactive, t.EndDate.Format(model.DateLayout))
	case t.InvestmentID == nil:
		return fmt.Errorf("%w: template has no investment target", service.ErrValidation)
	}
	return nil
}

// executionTransaction converts the template amount into units at the current
// price. A zero price books a single unit priced at the whole amount.
func executionTransaction(t model.Template, inv model.Investment, today time.Time) model.Transaction {
	units := decimal.NewFromInt(1)
	price := t.AmountPerInvestment
	if inv.CurrentPrice.IsPositive() {
		price = inv.CurrentPrice
		units = t.AmountPerInvestment.DivRound(price, unitsPrecision)
	}

	templateID := t.ID
	tx := model.Transaction{
		ID:              uuid.New(),
		InvestmentID:    inv.ID,
		PortfolioID:     inv.PortfolioID,
		UserID:          inv.UserID,
		TemplateID:      &templateID,
		Type:            model.TransactionTypeBuy,
		Units:           units,
		PricePerUnit:    price,
		TransactionDate: today,
		Platform:        inv.Platform,
		Notes:           "SIP: " + t.Name,
	}
	tx.ComputeAmounts()
	return tx
}

// checkTargets verifies the user owns the portfolio and investment the template
// points at and fills the portfolio from the investment when omitted.
func (s *SIPService) checkTargets(ctx context.Context, userID uuid.UUID, t *model.Template) error {
	if t.InvestmentID != nil {
		inv, err := s.repo.GetInvestment(ctx, *t.InvestmentID)
		if err != nil {
			return service.FromRepo(err)
		}
		if inv.UserID != userID {
			return service.ErrForbidden
		}
		if t.PortfolioID != nil && *t.PortfolioID != inv.PortfolioID {
			return fmt.Errorf("%w: investment does not belong to portfolio %s", service.ErrValidation, t.PortfolioID)
		}
		portfolioID := inv.PortfolioID
		t.PortfolioID = &portfolioID
		t.InvestmentType = inv.Type
	}

	if t.PortfolioID != nil {
		p, err := s.repo.GetPortfolio(ctx, *t.PortfolioID)
		if err != nil {
			return service.FromRepo(err)
		}
		if p.UserID != userID {
			return service.ErrForbidden
		}
	}

	return nil
}
