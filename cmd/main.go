package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/data"
	"github.com/KotFed0t/finplan/data/cache"
	"github.com/KotFed0t/finplan/data/repository/postgres"
	"github.com/KotFed0t/finplan/data/session"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/finplan/internal/externalApi/moexApi"
	"github.com/KotFed0t/finplan/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/finplan/internal/scheduler"
	"github.com/KotFed0t/finplan/internal/service/analyticsService"
	"github.com/KotFed0t/finplan/internal/service/billingService"
	"github.com/KotFed0t/finplan/internal/service/investHelperService"
	"github.com/KotFed0t/finplan/internal/service/investmentService"
	"github.com/KotFed0t/finplan/internal/service/portfolioService"
	"github.com/KotFed0t/finplan/internal/service/sipService"
	"github.com/KotFed0t/finplan/internal/service/transactionService"
	"github.com/KotFed0t/finplan/internal/tgbot"
	httpTransport "github.com/KotFed0t/finplan/internal/transport/http"
	"github.com/KotFed0t/finplan/internal/transport/telegram"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg.Cache.QuoteExpiration)
	redisSession := session.NewRedisSession(redisClient, cfg.SessionExpiration)

	moexApiClient := moexApi.New(cfg)

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", slog.String("err", err.Error()))
		}
	}()

	var reportStorage analyticsService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		reportStorage = googleDriveApi.New(ctx, cfg, clock)
	}

	investmentSrv := investmentService.New(cfg, pgRepo, redisCache, moexApiClient, publisher, clock)
	transactionSrv := transactionService.New(pgRepo, publisher, clock)
	portfolioSrv := portfolioService.New(pgRepo)
	sipSrv := sipService.New(pgRepo, transactionSrv, publisher, clock)
	billingSrv := billingService.New(cfg, pgRepo, publisher, clock)
	analyticsSrv := analyticsService.New(pgRepo, xslsxGenerator.New(), reportStorage, clock, cfg.TopPerformers)
	investHelperSrv := investHelperService.New(pgRepo, redisCache, moexApiClient)

	sched := scheduler.New()
	sched.RegisterJobs(cfg, billingSrv, investmentSrv, analyticsSrv)
	sched.Start()
	defer sched.Stop()

	httpServer := httpTransport.New(cfg, httpTransport.Services{
		Portfolios:   portfolioSrv,
		Investments:  investmentSrv,
		Transactions: transactionSrv,
		SIP:          sipSrv,
		Billing:      billingSrv,
		Analytics:    analyticsSrv,
	})
	httpServer.Start()
	defer httpServer.Stop()

	if cfg.Telegram.Enabled {
		tgController := telegram.NewController(investHelperSrv, portfolioSrv, investmentSrv, sipSrv, redisSession)

		tgBot := tgbot.New(cfg, tgController, redisSession)
		tgBot.Start()
		defer tgBot.Stop()
	}

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
