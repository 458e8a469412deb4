package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/finplan/internal/converter/telebotConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg = "something went wrong..."
	notLinkedMsg   = "This chat is not linked yet. Send /start <your account id>."
	startHelpMsg   = "Send /start <your account id> to link this chat."
)

type InvestHelperService interface {
	LinkChat(ctx context.Context, chatID int64, userID uuid.UUID) error
	ChatUser(ctx context.Context, chatID int64) (uuid.UUID, error)
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
}

type PortfolioService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.PortfolioSummary, error)
}

type InvestmentService interface {
	List(ctx context.Context, userID uuid.UUID, includeClosed bool) ([]model.Investment, error)
	UpdatePrice(ctx context.Context, userID, id uuid.UUID, price decimal.Decimal) (model.Investment, error)
}

type SIPService interface {
	Due(ctx context.Context, userID *uuid.UUID) ([]model.Template, error)
}

type Session interface {
	Get(ctx context.Context, chatID int64) (model.Session, error)
	Set(ctx context.Context, chatID int64, sess model.Session) error
	Reset(ctx context.Context, chatID int64) error
}

type Controller struct {
	investHelperService InvestHelperService
	portfolioService    PortfolioService
	investmentService   InvestmentService
	sipService          SIPService
	session             Session
}

func NewController(
	investHelperService InvestHelperService,
	portfolioService PortfolioService,
	investmentService InvestmentService,
	sipService SIPService,
	session Session,
) *Controller {
	return &Controller{
		investHelperService: investHelperService,
		portfolioService:    portfolioService,
		investmentService:   investmentService,
		sipService:          sipService,
		session:             session,
	}
}

// Start links the chat to the account id given as the command payload.
func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Reply(startHelpMsg)
	}

	userID, err := uuid.Parse(payload)
	if err != nil {
		return c.Reply("That does not look like an account id.")
	}

	if err = ctrl.investHelperService.LinkChat(ctx, c.Chat().ID, userID); err != nil {
		slog.Error("got error from investHelperService.LinkChat", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}
	_ = ctrl.session.Reset(ctx, c.Chat().ID)

	return c.Reply("Chat linked. Try /portfolios, /due, /price or /quote <ticker>.")
}

func (ctrl *Controller) Portfolios(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	userID, err := ctrl.investHelperService.ChatUser(ctx, c.Chat().ID)
	if err != nil {
		return ctrl.sendUserErr(c, err)
	}

	summaries, err := ctrl.portfolioService.List(ctx, userID)
	if err != nil {
		slog.Error("got error from portfolioService.List", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PortfoliosResponse(summaries))
}

func (ctrl *Controller) Due(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	userID, err := ctrl.investHelperService.ChatUser(ctx, c.Chat().ID)
	if err != nil {
		return ctrl.sendUserErr(c, err)
	}

	templates, err := ctrl.sipService.Due(ctx, &userID)
	if err != nil {
		slog.Error("got error from sipService.Due", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.DueTemplatesResponse(templates))
}

func (ctrl *Controller) Quote(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	symbol := strings.TrimSpace(c.Message().Payload)
	if symbol == "" {
		return c.Reply("Send /quote <ticker>.")
	}

	quote, err := ctrl.investHelperService.GetQuote(ctx, symbol)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.Send("Ticker not found.")
		case errors.Is(err, service.ErrQuoteInactive):
			return c.Send("This security is not traded.")
		}
		slog.Error("got error from investHelperService.GetQuote", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.QuoteResponse(quote))
}

// InitPriceUpdate starts the price wizard: it lists active investments and
// waits for the user to pick one by number.
func (ctrl *Controller) InitPriceUpdate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	userID, err := ctrl.investHelperService.ChatUser(ctx, c.Chat().ID)
	if err != nil {
		return ctrl.sendUserErr(c, err)
	}

	investments, err := ctrl.investmentService.List(ctx, userID, false)
	if err != nil {
		slog.Error("got error from investmentService.List", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}
	if len(investments) == 0 {
		return c.Send("You have no active investments.")
	}

	chatSession := model.Session{
		State:         model.ExpectingInvestmentChoice,
		UserID:        userID,
		InvestmentIDs: make([]uuid.UUID, 0, len(investments)),
	}
	for _, inv := range investments {
		chatSession.InvestmentIDs = append(chatSession.InvestmentIDs, inv.ID)
	}

	if err = ctrl.session.Set(ctx, c.Chat().ID, chatSession); err != nil {
		slog.Error("got error from session.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.InvestmentChoiceResponse(investments))
}

func (ctrl *Controller) ProcessInvestmentChoice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	n, err := strconv.Atoi(strings.TrimSpace(c.Message().Text))
	if err != nil || n < 1 || n > len(chatSession.InvestmentIDs) {
		return c.Send(fmt.Sprintf("Send a number from 1 to %d, or /cancel.", len(chatSession.InvestmentIDs)))
	}

	chatSession.State = model.ExpectingPrice
	chatSession.InvestmentID = chatSession.InvestmentIDs[n-1]
	if err = ctrl.session.Set(ctx, c.Chat().ID, chatSession); err != nil {
		slog.Error("got error from session.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter the new price:")
}

func (ctrl *Controller) ProcessPrice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(c.Message().Text), ",", "."))
	if err != nil {
		return c.Send("That is not a number, try again or /cancel.")
	}

	inv, err := ctrl.investmentService.UpdatePrice(ctx, chatSession.UserID, chatSession.InvestmentID, price)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.Send("The price must not be negative, try again or /cancel.")
		}
		slog.Error("got error from investmentService.UpdatePrice", slog.String("rqID", rqID), slog.String("err", err.Error()))
		_ = ctrl.session.Reset(ctx, c.Chat().ID)
		return c.Send(internalErrMsg)
	}

	if err = ctrl.session.Reset(ctx, c.Chat().ID); err != nil {
		slog.Error("got error from session.Reset", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return c.Send(telebotConverter.PriceUpdatedResponse(inv))
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.session.Reset(ctx, c.Chat().ID); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send("Cancelled.")
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.Get(ctx, c.Chat().ID)
	if err != nil {
		slog.Error("got error from session.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) sendUserErr(c tele.Context, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return c.Send(notLinkedMsg)
	}
	return c.Send(internalErrMsg)
}
