package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct{ calls atomic.Int32 }

func (f *fakePayments) ExpireStale(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, nil
}

type fakePrices struct{ calls atomic.Int32 }

func (f *fakePrices) RefreshPrices(context.Context) (int, error) {
	f.calls.Add(1)
	return 0, errors.New("moex is down")
}

type fakeReports struct{}

func (fakeReports) CleanupReports(context.Context) error { return nil }

func testConfig(driveEnabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.Jobs.PaymentExpiryInterval = time.Hour
	cfg.Jobs.PriceRefreshInterval = time.Hour
	cfg.Jobs.ReportCleanupCrontab = "0 3 * * *"
	cfg.GoogleDrive.Enabled = driveEnabled
	return cfg
}

func TestRegisterJobs_RunImmediately(t *testing.T) {
	payments, prices := &fakePayments{}, &fakePrices{}

	s := New()
	s.RegisterJobs(testConfig(false), payments, prices, fakeReports{})
	assert.ElementsMatch(t, []string{JobExpirePayments, JobRefreshPrices}, s.JobNames())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return payments.calls.Load() == 1 && prices.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterJobs_ReportCleanupWhenDriveEnabled(t *testing.T) {
	s := New()
	defer s.Stop()

	s.RegisterJobs(testConfig(true), &fakePayments{}, &fakePrices{}, fakeReports{})
	assert.ElementsMatch(t, []string{JobExpirePayments, JobRefreshPrices, JobDeleteReports}, s.JobNames())
}

func TestTaskWithRecover(t *testing.T) {
	var rqID string
	taskWithRecover(func(ctx context.Context) error {
		rqID = utils.GetRequestIDFromCtx(ctx)
		return nil
	}, "test")(context.Background())
	assert.NotEmpty(t, rqID)

	assert.NotPanics(t, func() {
		taskWithRecover(func(context.Context) error {
			panic("boom")
		}, "test")(context.Background())
	})
}
