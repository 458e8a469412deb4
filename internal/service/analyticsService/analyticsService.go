package analyticsService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const reportFileLayout = "2006-01-02_150405"

type Repository interface {
	ListPortfolios(ctx context.Context, userID uuid.UUID) ([]model.Portfolio, error)
	ListInvestments(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Investment, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]model.Template, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type ReportLink struct {
	URL         string    `json:"url"`
	FileName    string    `json:"file_name"`
	GeneratedAt time.Time `json:"generated_at"`
}

type AnalyticsService struct {
	repo          Repository
	generator     ReportGenerator
	storage       CloudStorage
	clock         clockwork.Clock
	topPerformers int
}

// New builds the service. storage may be nil, in which case report export is
// reported as unavailable.
func New(repo Repository, generator ReportGenerator, storage CloudStorage, clock clockwork.Clock, topPerformers int) *AnalyticsService {
	return &AnalyticsService{
		repo:          repo,
		generator:     generator,
		storage:       storage,
		clock:         clock,
		topPerformers: topPerformers,
	}
}

type snapshot struct {
	portfolios   []model.Portfolio
	investments  []model.Investment
	transactions []model.Transaction
	templates    []model.Template
}

// load fans the independent reads out and fails as a whole when any of them
// fails.
func (s *AnalyticsService) load(ctx context.Context, userID uuid.UUID, withTemplates bool) (snap snapshot, err error) {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.portfolios, err = s.repo.ListPortfolios(gCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.investments, err = s.repo.ListInvestments(gCtx, userID, true)
		return err
	})
	g.Go(func() (err error) {
		snap.transactions, err = s.repo.ListTransactions(gCtx, model.TransactionFilter{UserID: userID})
		return err
	})
	if withTemplates {
		g.Go(func() (err error) {
			snap.templates, err = s.repo.ListTemplates(gCtx, userID)
			return err
		})
	}

	if err = g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *AnalyticsService) Dashboard(ctx context.Context, userID uuid.UUID) (d model.Dashboard, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AnalyticsService.Dashboard"

	slog.Debug("Dashboard start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))
	defer func() {
		slog.Debug("Dashboard finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))
	}()

	snap, err := s.load(ctx, userID, true)
	if err != nil {
		slog.Error("failed to load dashboard data", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Dashboard{}, err
	}

	own := make([]model.Template, 0, len(snap.templates))
	for _, t := range snap.templates {
		if t.OwnedBy(userID) && !t.IsDeleted() {
			own = append(own, t)
		}
	}

	return model.BuildDashboard(snap.portfolios, snap.investments, snap.transactions, own, model.DateOf(s.clock.Now()), s.topPerformers), nil
}

// ExportReport renders a workbook of every active portfolio and uploads it,
// returning a shareable link.
func (s *AnalyticsService) ExportReport(ctx context.Context, userID uuid.UUID) (link ReportLink, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AnalyticsService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID.String()))
	defer func() {
		slog.Debug("ExportReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", link.URL))
	}()

	if s.storage == nil {
		return ReportLink{}, fmt.Errorf("%w: report upload", service.ErrUnavailable)
	}

	snap, err := s.load(ctx, userID, false)
	if err != nil {
		slog.Error("failed to load report data", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ReportLink{}, err
	}

	now := s.clock.Now()
	report := model.BuildReport(userID, snap.portfolios, snap.investments, snap.transactions, now)
	if len(report.Portfolios) == 0 {
		return ReportLink{}, fmt.Errorf("%w: no portfolios to export", service.ErrValidation)
	}

	fileBytes, ext, err := s.generator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from generator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ReportLink{}, err
	}

	filename := fmt.Sprintf("finplan_report_%s%s", now.UTC().Format(reportFileLayout), ext)
	url, err := s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ReportLink{}, err
	}

	return ReportLink{URL: url, FileName: filename, GeneratedAt: now}, nil
}

func (s *AnalyticsService) CleanupReports(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.DeleteOldFiles(ctx)
}
