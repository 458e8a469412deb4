package postgres

import (
	"context"
	"time"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

const templateColumns = `id, user_id, name, description, is_global, portfolio_id, investment_id, investment_type,
	amount_per_investment, frequency, interval_value, start_date, end_date, next_execution, total_executed,
	total_invested, usage_count, auto_execute, status, created_at, updated_at`

func (p *Postgres) InsertTemplate(ctx context.Context, t model.Template) (res model.Template, err error) {
	op := "Postgres.InsertTemplate"
	query := `
		INSERT INTO investment_templates (id, user_id, name, description, is_global, portfolio_id, investment_id,
			investment_type, amount_per_investment, frequency, interval_value, start_date, end_date, next_execution,
			total_executed, total_invested, usage_count, auto_execute, status)
		VALUES (:id, :user_id, :name, :description, :is_global, :portfolio_id, :investment_id,
			:investment_type, :amount_per_investment, :frequency, :interval_value, :start_date, :end_date, :next_execution,
			:total_executed, :total_invested, :usage_count, :auto_execute, :status)
		RETURNING ` + templateColumns
	done := logQuery(ctx, op, query, map[string]any{"id": t.ID, "name": t.Name})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Template{}, err
	}
	defer stmt.Close()

	var row dbModel.Template
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbTemplate(t)); err != nil {
		return model.Template{}, mapErr(err)
	}

	return dbConverter.ConvertTemplate(row), nil
}

func (p *Postgres) GetTemplate(ctx context.Context, id uuid.UUID) (t model.Template, err error) {
	op := "Postgres.GetTemplate"
	query := `SELECT ` + templateColumns + ` FROM investment_templates WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Template
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Template{}, mapErr(err)
	}

	return dbConverter.ConvertTemplate(row), nil
}

// ListTemplates returns the user's own and the global templates, deleted ones hidden.
func (p *Postgres) ListTemplates(ctx context.Context, userID uuid.UUID) (templates []model.Template, err error) {
	op := "Postgres.ListTemplates"
	query := `
		SELECT ` + templateColumns + `
		FROM investment_templates
		WHERE (user_id = $1 OR is_global) AND status <> 'deleted'
		ORDER BY is_global, created_at
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID})
	defer func() { done(err) }()

	return p.selectTemplates(ctx, query, userID)
}

// ListDueTemplates returns active auto-executed templates whose next execution is
// not after today. A nil userID lists every user's templates.
func (p *Postgres) ListDueTemplates(ctx context.Context, userID *uuid.UUID, today time.Time) (templates []model.Template, err error) {
	op := "Postgres.ListDueTemplates"
	query := `
		SELECT ` + templateColumns + `
		FROM investment_templates
		WHERE status = 'active'
			AND auto_execute
			AND next_execution <= $1
			AND (end_date IS NULL OR end_date >= $1)
			AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY next_execution, created_at
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID, "today": today})
	defer func() { done(err) }()

	var owner uuid.NullUUID
	if userID != nil {
		owner = uuid.NullUUID{UUID: *userID, Valid: true}
	}

	return p.selectTemplates(ctx, query, today, owner)
}

func (p *Postgres) selectTemplates(ctx context.Context, query string, args ...any) ([]model.Template, error) {
	var rows []dbModel.Template
	if err := p.txOrDb(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	templates := make([]model.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, dbConverter.ConvertTemplate(row))
	}
	return templates, nil
}

// UpdateTemplate writes configuration, schedule, counters and status.
// usage_count is owned by IncrementTemplateUsage.
func (p *Postgres) UpdateTemplate(ctx context.Context, t model.Template) (err error) {
	op := "Postgres.UpdateTemplate"
	query := `
		UPDATE investment_templates
		SET name = :name, description = :description, portfolio_id = :portfolio_id, investment_id = :investment_id,
			amount_per_investment = :amount_per_investment, frequency = :frequency, interval_value = :interval_value,
			start_date = :start_date, end_date = :end_date, next_execution = :next_execution,
			total_executed = :total_executed, total_invested = :total_invested, auto_execute = :auto_execute,
			status = :status, updated_at = now()
		WHERE id = :id
		`
	done := logQuery(ctx, op, query, map[string]any{"id": t.ID})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbTemplate(t))
	if err != nil {
		return err
	}

	return requireAffected(res)
}

// IncrementTemplateUsage bumps usage_count in place.
func (p *Postgres) IncrementTemplateUsage(ctx context.Context, id uuid.UUID) (err error) {
	op := "Postgres.IncrementTemplateUsage"
	query := `UPDATE investment_templates SET usage_count = usage_count + 1 WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return requireAffected(res)
}
