package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "pgx")), mock
}

func columns(list string) []string {
	cols := strings.Split(list, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func TestWithinTransaction_Commit(t *testing.T) {
	pg, mock := newMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE investments SET status = 'closed'")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := pg.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return pg.CloseInvestment(ctx, id)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollbackOnError(t *testing.T) {
	pg, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := pg.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_Nested(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := pg.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return pg.WithinTransaction(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolio_NotFound(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM portfolios WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(columns(portfolioColumns)))

	_, err := pg.GetPortfolio(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetPortfolio(t *testing.T) {
	pg, mock := newMock(t)
	id, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM portfolios WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(columns(portfolioColumns)).
			AddRow(id.String(), userID.String(), "Retirement", "", "aggressive", "INR", true, now, now))

	p, err := pg.GetPortfolio(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, model.RiskLevelAggressive, p.RiskLevel)
	assert.True(t, p.IsActive)
}

func TestListTransactions_Filters(t *testing.T) {
	pg, mock := newMock(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND type IN ($2, $3) AND strpos(lower(platform), lower($4)) > 0 ORDER BY transaction_date DESC, created_at DESC LIMIT $5")).
		WithArgs(sqlmock.AnyArg(), "buy", "sell", "zer", 10).
		WillReturnRows(sqlmock.NewRows(columns(transactionColumns)).
			AddRow(uuid.NewString(), uuid.NewString(), uuid.NewString(), userID.String(), nil, "buy",
				"10", "100", "1000", "0", "0", "0", "1000", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				"Zerodha", "", time.Now()))

	txs, err := pg.ListTransactions(context.Background(), model.TransactionFilter{
		UserID:   userID,
		Types:    []model.TransactionType{model.TransactionTypeBuy, model.TransactionTypeSell},
		Platform: "zer",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].TemplateID)
	assert.Equal(t, "1000", txs[0].NetAmount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactions_PlatformIsLiteral(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND strpos(lower(platform), lower($2)) > 0 ORDER BY")).
		WithArgs(sqlmock.AnyArg(), "100%_club").
		WillReturnRows(sqlmock.NewRows(columns(transactionColumns)))

	txs, err := pg.ListTransactions(context.Background(), model.TransactionFilter{
		UserID:   uuid.New(),
		Platform: "100%_club",
	})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemCoupon_Exhausted(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET used_count = used_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := pg.RedeemCoupon(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrCouponExhausted)
}

func TestUpdatePaymentStatus_Conflict(t *testing.T) {
	pg, mock := newMock(t)
	now := time.Now()
	payment := model.Payment{ID: uuid.New(), Status: model.PaymentStatusVerified, VerifiedAt: &now}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $11")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := pg.UpdatePaymentStatus(context.Background(), payment, model.PaymentStatusSubmitted)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestLinkChat_AlreadyLinked(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := pg.LinkChat(context.Background(), uuid.New(), 42)
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestCountUserCouponUses(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := pg.CountUserCouponUses(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(sql.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505"}), repository.ErrAlreadyExists)

	err := mapErr(&pgconn.PgError{Code: "23503", ConstraintName: "payments_plan_id_fkey"})
	assert.ErrorIs(t, err, repository.ErrBrokenReference)
	assert.Contains(t, err.Error(), "payments_plan_id_fkey")
}
