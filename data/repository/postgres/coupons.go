package postgres

import (
	"context"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

const couponColumns = `id, code, description, discount_type, value, max_uses, max_uses_per_user, used_count,
	expires_at, min_order_amount, max_discount_amount, is_active, created_at`

func (p *Postgres) InsertCoupon(ctx context.Context, c model.Coupon) (res model.Coupon, err error) {
	op := "Postgres.InsertCoupon"
	query := `
		INSERT INTO coupons (id, code, description, discount_type, value, max_uses, max_uses_per_user,
			expires_at, min_order_amount, max_discount_amount, is_active)
		VALUES (:id, :code, :description, :discount_type, :value, :max_uses, :max_uses_per_user,
			:expires_at, :min_order_amount, :max_discount_amount, :is_active)
		RETURNING ` + couponColumns
	done := logQuery(ctx, op, query, map[string]any{"code": c.Code})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Coupon{}, err
	}
	defer stmt.Close()

	var row dbModel.Coupon
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbCoupon(c)); err != nil {
		return model.Coupon{}, mapErr(err)
	}

	return dbConverter.ConvertCoupon(row), nil
}

// GetCouponByCode matches the already normalised code exactly.
func (p *Postgres) GetCouponByCode(ctx context.Context, code string) (c model.Coupon, err error) {
	op := "Postgres.GetCouponByCode"
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	done := logQuery(ctx, op, query, map[string]any{"code": code})
	defer func() { done(err) }()

	var row dbModel.Coupon
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, code); err != nil {
		return model.Coupon{}, mapErr(err)
	}

	return dbConverter.ConvertCoupon(row), nil
}

func (p *Postgres) ListCoupons(ctx context.Context) (coupons []model.Coupon, err error) {
	op := "Postgres.ListCoupons"
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	done := logQuery(ctx, op, query, nil)
	defer func() { done(err) }()

	var rows []dbModel.Coupon
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	coupons = make([]model.Coupon, 0, len(rows))
	for _, row := range rows {
		coupons = append(coupons, dbConverter.ConvertCoupon(row))
	}

	return coupons, nil
}

func (p *Postgres) SetCouponActive(ctx context.Context, id uuid.UUID, active bool) (err error) {
	op := "Postgres.SetCouponActive"
	query := `UPDATE coupons SET is_active = $2 WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id, "active": active})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id, active)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

// RedeemCoupon increments used_count only while the global cap allows it.
// A coupon that is used up concurrently yields model.ErrCouponExhausted.
func (p *Postgres) RedeemCoupon(ctx context.Context, id uuid.UUID) (err error) {
	op := "Postgres.RedeemCoupon"
	query := `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
		`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrCouponExhausted
	}

	return nil
}

// CountUserCouponUses counts the user's payments that hold the coupon, failed ones excluded.
func (p *Postgres) CountUserCouponUses(ctx context.Context, couponID, userID uuid.UUID) (count int, err error) {
	op := "Postgres.CountUserCouponUses"
	query := `
		SELECT count(*)
		FROM payments
		WHERE coupon_id = $1 AND user_id = $2 AND status NOT IN ('rejected', 'expired')
		`
	done := logQuery(ctx, op, query, map[string]any{"couponID": couponID, "userID": userID})
	defer func() { done(err) }()

	err = p.txOrDb(ctx).GetContext(ctx, &count, query, couponID, userID)
	return count, err
}
