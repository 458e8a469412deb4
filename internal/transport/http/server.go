package http

import (
	"errors"
	"log/slog"
	"net"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app  *fiber.App
	addr string
}

func New(cfg *config.Config, services Services) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "finplan",
		ErrorHandler:          ErrorHandler,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(RequestID())
	app.Use(Logger())
	app.Use(metrics.Middleware("/metrics", "/health"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return ok(c, fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", metrics.Handler())

	setupRoutes(app, NewHandler(services), cfg.HTTP.AdminKey)

	return &Server{app: app, addr: cfg.HTTP.Addr}
}

func setupRoutes(app *fiber.App, h *Handler, adminKey string) {
	admin := app.Group("/api/v1/admin", AdminOnly(adminKey))
	admin.Post("/coupons", h.AdminCreateCoupon)
	admin.Get("/coupons", h.AdminListCoupons)
	admin.Patch("/coupons/:id", h.AdminSetCouponActive)
	admin.Get("/payments", h.AdminListPayments)
	admin.Get("/payments/:id", h.AdminGetPayment)
	admin.Put("/payments/:id/status", h.AdminChangePaymentStatus)
	admin.Get("/templates/due", h.AdminDueTemplates)

	api := app.Group("/api/v1")

	api.Post("/portfolios", h.CreatePortfolio)
	api.Get("/portfolios", h.ListPortfolios)
	api.Get("/portfolios/:id", h.GetPortfolio)
	api.Patch("/portfolios/:id", h.UpdatePortfolio)
	api.Delete("/portfolios/:id", h.DeletePortfolio)
	api.Get("/portfolios/:id/performance", h.PortfolioPerformance)

	api.Post("/investments", h.CreateInvestment)
	api.Get("/investments", h.ListInvestments)
	api.Get("/investments/:id", h.GetInvestment)
	api.Patch("/investments/:id", h.UpdateInvestment)
	api.Put("/investments/:id/price", h.UpdateInvestmentPrice)
	api.Post("/investments/:id/close", h.CloseInvestment)
	api.Get("/investments/:id/cost-basis", h.InvestmentCostBasis)
	api.Get("/investments/:id/price-history", h.InvestmentPriceHistory)

	api.Post("/transactions", h.CreateTransaction)
	api.Get("/transactions", h.ListTransactions)
	api.Patch("/transactions/:id", h.UpdateTransaction)

	api.Post("/templates", h.CreateTemplate)
	api.Get("/templates", h.ListTemplates)
	api.Get("/templates/due", h.DueTemplates)
	api.Get("/templates/:id", h.GetTemplate)
	api.Patch("/templates/:id", h.UpdateTemplate)
	api.Delete("/templates/:id", h.DeleteTemplate)
	api.Post("/templates/:id/toggle", h.ToggleTemplate)
	api.Post("/templates/:id/duplicate", h.DuplicateTemplate)
	api.Post("/templates/:id/execute", h.ExecuteTemplate)

	api.Get("/plans", h.ListPlans)
	api.Post("/coupons/validate", h.ValidateCoupon)
	api.Post("/payments", h.CreatePayment)
	api.Get("/payments", h.ListPayments)
	api.Get("/payments/:id", h.GetPayment)
	api.Post("/payments/:id/submit", h.SubmitPayment)
	api.Get("/subscription", h.GetSubscription)

	api.Get("/dashboard", h.Dashboard)
	api.Post("/reports/export", h.ExportReport)
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() {
	go func() {
		slog.Info("http server listening", slog.String("addr", s.addr))
		if err := s.app.Listen(s.addr); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("http server stopped with error", slog.String("err", err.Error()))
		}
	}()
}

func (s *Server) Stop() {
	slog.Info("start stopping http server")
	if err := s.app.Shutdown(); err != nil {
		slog.Error("error during http server shutdown", slog.String("err", err.Error()))
	}
	slog.Info("http server stopped")
}
