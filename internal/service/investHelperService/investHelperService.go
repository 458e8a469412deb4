package investHelperService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/finplan/internal/externalApi"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
)

type MoexApi interface {
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
	SetQuotes(ctx context.Context, quotes []moexModel.Quote) error
}

type Repository interface {
	LinkChat(ctx context.Context, userID uuid.UUID, chatID int64) error
	GetUserByChatID(ctx context.Context, chatID int64) (model.User, error)
}

// InvestHelperService backs the chat bot: chat to account linking and quote lookups.
type InvestHelperService struct {
	repo    Repository
	cache   Cache
	moexApi MoexApi
}

func New(repo Repository, cache Cache, moexApi MoexApi) *InvestHelperService {
	return &InvestHelperService{
		repo:    repo,
		cache:   cache,
		moexApi: moexApi,
	}
}

func (s *InvestHelperService) LinkChat(ctx context.Context, chatID int64, userID uuid.UUID) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestHelperService.LinkChat"

	slog.Debug("LinkChat start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	defer func() {
		slog.Debug("LinkChat finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	}()

	if userID == uuid.Nil {
		return service.ErrValidation
	}

	if err := s.repo.LinkChat(ctx, userID, chatID); err != nil {
		slog.Error("got error from repo.LinkChat", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.FromRepo(err)
	}

	return nil
}

// ChatUser returns the account linked to the chat, ErrNotFound if none is.
func (s *InvestHelperService) ChatUser(ctx context.Context, chatID int64) (uuid.UUID, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestHelperService.ChatUser"

	user, err := s.repo.GetUserByChatID(ctx, chatID)
	if err != nil {
		err = service.FromRepo(err)
		if !errors.Is(err, service.ErrNotFound) {
			slog.Error("got error from repo.GetUserByChatID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return uuid.Nil, err
	}

	return user.ID, nil
}

func (s *InvestHelperService) GetQuote(ctx context.Context, symbol string) (quote moexModel.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "InvestHelperService.GetQuote"
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	if symbol == "" {
		return moexModel.Quote{}, service.ErrValidation
	}

	quote, err = s.cache.GetQuote(ctx, symbol)
	if err != nil {
		slog.Debug("quote not taken from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

		quote, err = s.moexApi.GetQuote(ctx, symbol)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				slog.Warn("symbol not found in moexApi", slog.String("rqID", rqID), slog.String("op", op))
				return moexModel.Quote{}, service.ErrNotFound
			}
			slog.Error("can't get quote from moexApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return moexModel.Quote{}, err
		}

		if err = s.cache.SetQuotes(ctx, []moexModel.Quote{quote}); err != nil {
			slog.Warn("can't cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	if !quote.Active || !quote.Price.IsPositive() {
		return moexModel.Quote{}, service.ErrQuoteInactive
	}

	return quote, nil
}
