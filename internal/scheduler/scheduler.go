package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/utils"
	"github.com/go-co-op/gocron/v2"
)

const (
	JobExpirePayments = "expire payments"
	JobRefreshPrices  = "refresh prices"
	JobDeleteReports  = "delete old reports"
)

type taskFn func(ctx context.Context) error

type PaymentExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

type PriceRefresher interface {
	RefreshPrices(ctx context.Context) (int, error)
}

type ReportCleaner interface {
	CleanupReports(ctx context.Context) error
}

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() *Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	_ = s.scheduler.Shutdown()
}

// RegisterJobs adds the background jobs. Report cleanup is only scheduled
// when report storage is configured.
func (s *Scheduler) RegisterJobs(cfg *config.Config, payments PaymentExpirer, prices PriceRefresher, reports ReportCleaner) {
	s.NewIntervalJob(JobExpirePayments, func(ctx context.Context) error {
		expired, err := payments.ExpireStale(ctx)
		if err != nil {
			return err
		}
		slog.Info("stale payments expired", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("count", expired))
		return nil
	}, cfg.Jobs.PaymentExpiryInterval, true)

	s.NewIntervalJob(JobRefreshPrices, func(ctx context.Context) error {
		updated, err := prices.RefreshPrices(ctx)
		if err != nil {
			return err
		}
		slog.Info("prices refreshed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("updated", updated))
		return nil
	}, cfg.Jobs.PriceRefreshInterval, true)

	if cfg.GoogleDrive.Enabled && reports != nil {
		s.NewCrontabJob(JobDeleteReports, reports.CleanupReports, cfg.Jobs.ReportCleanupCrontab, false)
	}
}

func (s *Scheduler) createJob(jobDefinition gocron.JobDefinition, name string, fn taskFn, startImmediately bool) {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		jobDefinition,
		gocron.NewTask(taskWithRecover(fn, name)),
		opts...,
	)

	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name))
		panic(err.Error())
	}
}

func (s *Scheduler) NewIntervalJob(name string, fn taskFn, interval time.Duration, startImmediately bool) {
	s.createJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

func (s *Scheduler) NewCrontabJob(name string, fn taskFn, crontab string, startImmediately bool) {
	s.createJob(gocron.CronJob(crontab, false), name, fn, startImmediately)
}

// JobNames lists registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// taskWithRecover runs fn with its own request id, so log lines of one run
// can be correlated.
func taskWithRecover(fn taskFn, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = utils.WithRequestID(ctx, "")
		rqID := utils.GetRequestIDFromCtx(ctx)

		var err error
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("rqID", rqID),
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
				err = fmt.Errorf("panic: %v", r)
			}
			metrics.RecordJobRun(jobName, err)
		}()

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", jobName))

		err = fn(ctx)
		if err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.Any("error", err))
		} else {
			slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", jobName))
		}
	}
}
