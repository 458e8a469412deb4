package postgres

import (
	"context"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

func (p *Postgres) GetPlan(ctx context.Context, id uuid.UUID) (plan model.SubscriptionPlan, err error) {
	op := "Postgres.GetPlan"
	query := `SELECT id, name, price, currency, duration_days, is_active FROM subscription_plans WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.SubscriptionPlan
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.SubscriptionPlan{}, mapErr(err)
	}

	return dbConverter.ConvertSubscriptionPlan(row), nil
}

func (p *Postgres) ListPlans(ctx context.Context) (plans []model.SubscriptionPlan, err error) {
	op := "Postgres.ListPlans"
	query := `SELECT id, name, price, currency, duration_days, is_active FROM subscription_plans WHERE is_active ORDER BY price`
	done := logQuery(ctx, op, query, nil)
	defer func() { done(err) }()

	var rows []dbModel.SubscriptionPlan
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	plans = make([]model.SubscriptionPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, dbConverter.ConvertSubscriptionPlan(row))
	}

	return plans, nil
}

func (p *Postgres) GetSubscription(ctx context.Context, userID uuid.UUID) (sub model.Subscription, err error) {
	op := "Postgres.GetSubscription"
	query := `SELECT user_id, plan_id, starts_at, expires_at FROM subscriptions WHERE user_id = $1`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID})
	defer func() { done(err) }()

	var row dbModel.Subscription
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, userID); err != nil {
		return model.Subscription{}, mapErr(err)
	}

	return dbConverter.ConvertSubscription(row), nil
}

func (p *Postgres) UpsertSubscription(ctx context.Context, sub model.Subscription) (err error) {
	op := "Postgres.UpsertSubscription"
	query := `
		INSERT INTO subscriptions (user_id, plan_id, starts_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id, starts_at = EXCLUDED.starts_at, expires_at = EXCLUDED.expires_at
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": sub.UserID, "expiresAt": sub.ExpiresAt})
	defer func() { done(err) }()

	_, err = p.txOrDb(ctx).ExecContext(ctx, query, sub.UserID, sub.PlanID, sub.StartsAt, sub.ExpiresAt)
	return err
}
