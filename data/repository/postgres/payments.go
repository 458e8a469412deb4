package postgres

import (
	"context"
	"time"

	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

const paymentColumns = `id, user_id, plan_id, payment_method, coupon_id, coupon_code, base_amount, discount_amount,
	final_amount, currency, status, reference, admin_notes, rejection_reason, submitted_at, verified_at,
	approved_at, rejected_at, expired_at, created_at, updated_at`

func (p *Postgres) InsertPayment(ctx context.Context, payment model.Payment) (res model.Payment, err error) {
	op := "Postgres.InsertPayment"
	query := `
		INSERT INTO payments (id, user_id, plan_id, payment_method, coupon_id, coupon_code, base_amount,
			discount_amount, final_amount, currency, status)
		VALUES (:id, :user_id, :plan_id, :payment_method, :coupon_id, :coupon_code, :base_amount,
			:discount_amount, :final_amount, :currency, :status)
		RETURNING ` + paymentColumns
	done := logQuery(ctx, op, query, map[string]any{"id": payment.ID, "userID": payment.UserID})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Payment{}, err
	}
	defer stmt.Close()

	var row dbModel.Payment
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbPayment(payment)); err != nil {
		return model.Payment{}, mapErr(err)
	}

	return dbConverter.ConvertPayment(row), nil
}

func (p *Postgres) GetPayment(ctx context.Context, id uuid.UUID) (payment model.Payment, err error) {
	op := "Postgres.GetPayment"
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Payment
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Payment{}, mapErr(err)
	}

	return dbConverter.ConvertPayment(row), nil
}

// ListPayments lists payments newest first. Nil filters match everything.
func (p *Postgres) ListPayments(ctx context.Context, userID *uuid.UUID, status *model.PaymentStatus) (payments []model.Payment, err error) {
	op := "Postgres.ListPayments"
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1::uuid IS NULL OR user_id = $1) AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID, "status": status})
	defer func() { done(err) }()

	var owner uuid.NullUUID
	if userID != nil {
		owner = uuid.NullUUID{UUID: *userID, Valid: true}
	}
	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}

	return p.selectPayments(ctx, query, owner, st)
}

// ListStalePayments returns pending and submitted payments created before cutoff.
func (p *Postgres) ListStalePayments(ctx context.Context, cutoff time.Time) (payments []model.Payment, err error) {
	op := "Postgres.ListStalePayments"
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status IN ('pending', 'submitted') AND created_at < $1
		ORDER BY created_at
		`
	done := logQuery(ctx, op, query, map[string]any{"cutoff": cutoff})
	defer func() { done(err) }()

	return p.selectPayments(ctx, query, cutoff)
}

func (p *Postgres) selectPayments(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	var rows []dbModel.Payment
	if err := p.txOrDb(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	payments := make([]model.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, dbConverter.ConvertPayment(row))
	}
	return payments, nil
}

// UpdatePaymentStatus persists a transition. The row must still be in prev,
// otherwise repository.ErrConflict is returned and nothing changes.
func (p *Postgres) UpdatePaymentStatus(ctx context.Context, payment model.Payment, prev model.PaymentStatus) (err error) {
	op := "Postgres.UpdatePaymentStatus"
	query := `
		UPDATE payments
		SET status = $2, reference = $3, admin_notes = $4, rejection_reason = $5,
			submitted_at = $6, verified_at = $7, approved_at = $8, rejected_at = $9, expired_at = $10,
			updated_at = now()
		WHERE id = $1 AND status = $11
		`
	done := logQuery(ctx, op, query, map[string]any{"id": payment.ID, "from": prev, "to": payment.Status})
	defer func() { done(err) }()

	row := dbConverter.ToDbPayment(payment)
	res, err := p.txOrDb(ctx).ExecContext(ctx, query,
		row.ID, row.Status, row.Reference, row.AdminNotes, row.RejectionReason,
		row.SubmittedAt, row.VerifiedAt, row.ApprovedAt, row.RejectedAt, row.ExpiredAt,
		string(prev),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrConflict
	}

	return nil
}
