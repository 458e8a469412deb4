package postgres

import (
	"context"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

const portfolioColumns = `id, user_id, name, description, risk_level, currency, is_active, created_at, updated_at`

func (p *Postgres) InsertPortfolio(ctx context.Context, portfolio model.Portfolio) (res model.Portfolio, err error) {
	op := "Postgres.InsertPortfolio"
	query := `
		INSERT INTO portfolios (id, user_id, name, description, risk_level, currency, is_active)
		VALUES (:id, :user_id, :name, :description, :risk_level, :currency, :is_active)
		RETURNING ` + portfolioColumns
	done := logQuery(ctx, op, query, map[string]any{"id": portfolio.ID, "userID": portfolio.UserID})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Portfolio{}, err
	}
	defer stmt.Close()

	var row dbModel.Portfolio
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbPortfolio(portfolio)); err != nil {
		return model.Portfolio{}, mapErr(err)
	}

	return dbConverter.ConvertPortfolio(row), nil
}

func (p *Postgres) GetPortfolio(ctx context.Context, id uuid.UUID) (portfolio model.Portfolio, err error) {
	op := "Postgres.GetPortfolio"
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Portfolio
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Portfolio{}, mapErr(err)
	}

	return dbConverter.ConvertPortfolio(row), nil
}

// ListPortfolios returns the user's active portfolios, oldest first.
func (p *Postgres) ListPortfolios(ctx context.Context, userID uuid.UUID) (portfolios []model.Portfolio, err error) {
	op := "Postgres.ListPortfolios"
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE user_id = $1 AND is_active
		ORDER BY created_at, name
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID})
	defer func() { done(err) }()

	var rows []dbModel.Portfolio
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	portfolios = make([]model.Portfolio, 0, len(rows))
	for _, row := range rows {
		portfolios = append(portfolios, dbConverter.ConvertPortfolio(row))
	}

	return portfolios, nil
}

func (p *Postgres) UpdatePortfolio(ctx context.Context, portfolio model.Portfolio) (err error) {
	op := "Postgres.UpdatePortfolio"
	query := `
		UPDATE portfolios
		SET name = :name, description = :description, risk_level = :risk_level, updated_at = now()
		WHERE id = :id
		`
	done := logQuery(ctx, op, query, map[string]any{"id": portfolio.ID})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbPortfolio(portfolio))
	if err != nil {
		return mapErr(err)
	}

	return requireAffected(res)
}

// DeactivatePortfolio is the soft delete: the row and its investments stay.
func (p *Postgres) DeactivatePortfolio(ctx context.Context, id uuid.UUID) (err error) {
	op := "Postgres.DeactivatePortfolio"
	query := `UPDATE portfolios SET is_active = FALSE, updated_at = now() WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return requireAffected(res)
}
