package tgbot

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/transport/telegram"
	customMW "github.com/KotFed0t/finplan/internal/transport/telegram/middleware"
	"github.com/KotFed0t/finplan/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	Get(ctx context.Context, chatID int64) (model.Session, error)
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// free text continues the wizard step stored in the chat session
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.Get(ctx, c.Chat().ID)
		if err != nil {
			slog.Error("got error from session.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("something went wrong...")
		}

		c.Set("session", chatSession)

		switch chatSession.State {
		case model.ExpectingInvestmentChoice:
			return b.ctrl.ProcessInvestmentChoice(c)
		case model.ExpectingPrice:
			return b.ctrl.ProcessPrice(c)
		default:
			return c.Send("Send one of the commands first: /portfolios, /due, /price, /quote.")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/portfolios", b.ctrl.Portfolios)
	b.bot.Handle("/due", b.ctrl.Due)
	b.bot.Handle("/quote", b.ctrl.Quote)
	b.bot.Handle("/price", b.ctrl.InitPriceUpdate)
	b.bot.Handle("/cancel", b.ctrl.Cancel)
}
