package postgres

import (
	"context"
	"time"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const investmentColumns = `id, portfolio_id, user_id, name, symbol, type, units, average_cost, current_price,
	total_invested, current_value, gain_loss, gain_loss_percentage, dividend_earned, platform,
	purchase_date, status, created_at, updated_at`

func (p *Postgres) InsertInvestment(ctx context.Context, inv model.Investment) (res model.Investment, err error) {
	op := "Postgres.InsertInvestment"
	query := `
		INSERT INTO investments (id, portfolio_id, user_id, name, symbol, type, units, average_cost, current_price,
			total_invested, current_value, gain_loss, gain_loss_percentage, dividend_earned, platform, purchase_date, status)
		VALUES (:id, :portfolio_id, :user_id, :name, :symbol, :type, :units, :average_cost, :current_price,
			:total_invested, :current_value, :gain_loss, :gain_loss_percentage, :dividend_earned, :platform, :purchase_date, :status)
		RETURNING ` + investmentColumns
	done := logQuery(ctx, op, query, map[string]any{"id": inv.ID, "portfolioID": inv.PortfolioID})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Investment{}, err
	}
	defer stmt.Close()

	var row dbModel.Investment
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbInvestment(inv)); err != nil {
		return model.Investment{}, mapErr(err)
	}

	return dbConverter.ConvertInvestment(row), nil
}

func (p *Postgres) GetInvestment(ctx context.Context, id uuid.UUID) (inv model.Investment, err error) {
	op := "Postgres.GetInvestment"
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Investment
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Investment{}, mapErr(err)
	}

	return dbConverter.ConvertInvestment(row), nil
}

// GetInvestmentForUpdate locks the row until the surrounding transaction ends.
func (p *Postgres) GetInvestmentForUpdate(ctx context.Context, id uuid.UUID) (inv model.Investment, err error) {
	op := "Postgres.GetInvestmentForUpdate"
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Investment
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Investment{}, mapErr(err)
	}

	return dbConverter.ConvertInvestment(row), nil
}

// ListInvestments returns the user's investments, optionally only the active ones.
func (p *Postgres) ListInvestments(ctx context.Context, userID uuid.UUID, activeOnly bool) (investments []model.Investment, err error) {
	op := "Postgres.ListInvestments"
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE user_id = $1 AND ($2 = FALSE OR status = 'active')
		ORDER BY created_at, name
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID, "activeOnly": activeOnly})
	defer func() { done(err) }()

	return p.selectInvestments(ctx, query, userID, activeOnly)
}

func (p *Postgres) ListPortfolioInvestments(ctx context.Context, portfolioID uuid.UUID) (investments []model.Investment, err error) {
	op := "Postgres.ListPortfolioInvestments"
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE portfolio_id = $1 AND status = 'active'
		ORDER BY created_at, name
		`
	done := logQuery(ctx, op, query, map[string]any{"portfolioID": portfolioID})
	defer func() { done(err) }()

	return p.selectInvestments(ctx, query, portfolioID)
}

// ListQuotedInvestments returns every active investment that has a symbol.
func (p *Postgres) ListQuotedInvestments(ctx context.Context) (investments []model.Investment, err error) {
	op := "Postgres.ListQuotedInvestments"
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = 'active' AND symbol <> ''
		ORDER BY symbol
		`
	done := logQuery(ctx, op, query, nil)
	defer func() { done(err) }()

	return p.selectInvestments(ctx, query)
}

func (p *Postgres) selectInvestments(ctx context.Context, query string, args ...any) ([]model.Investment, error) {
	var rows []dbModel.Investment
	if err := p.txOrDb(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	investments := make([]model.Investment, 0, len(rows))
	for _, row := range rows {
		investments = append(investments, dbConverter.ConvertInvestment(row))
	}
	return investments, nil
}

// UpdateInvestment writes every mutable column, derived ones included.
func (p *Postgres) UpdateInvestment(ctx context.Context, inv model.Investment) (err error) {
	op := "Postgres.UpdateInvestment"
	query := `
		UPDATE investments
		SET name = :name, symbol = :symbol, units = :units, average_cost = :average_cost,
			current_price = :current_price, total_invested = :total_invested, current_value = :current_value,
			gain_loss = :gain_loss, gain_loss_percentage = :gain_loss_percentage,
			dividend_earned = :dividend_earned, platform = :platform, status = :status, updated_at = now()
		WHERE id = :id
		`
	done := logQuery(ctx, op, query, map[string]any{"id": inv.ID})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbInvestment(inv))
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (p *Postgres) CloseInvestment(ctx context.Context, id uuid.UUID) (err error) {
	op := "Postgres.CloseInvestment"
	query := `UPDATE investments SET status = 'closed', updated_at = now() WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (p *Postgres) InsertPricePoint(ctx context.Context, investmentID uuid.UUID, price decimal.Decimal, recordedOn time.Time) (err error) {
	op := "Postgres.InsertPricePoint"
	query := `INSERT INTO investment_price_history (investment_id, price, recorded_on) VALUES ($1, $2, $3)`
	done := logQuery(ctx, op, query, map[string]any{"investmentID": investmentID, "price": price})
	defer func() { done(err) }()

	_, err = p.txOrDb(ctx).ExecContext(ctx, query, investmentID, price, recordedOn)
	return err
}

func (p *Postgres) ListPriceHistory(ctx context.Context, investmentID uuid.UUID, limit int) (points []model.PricePoint, err error) {
	op := "Postgres.ListPriceHistory"
	query := `
		SELECT investment_id, price, recorded_on, created_at
		FROM investment_price_history
		WHERE investment_id = $1
		ORDER BY created_at DESC
		LIMIT $2
		`
	done := logQuery(ctx, op, query, map[string]any{"investmentID": investmentID, "limit": limit})
	defer func() { done(err) }()

	var rows []dbModel.PricePoint
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, investmentID, limit); err != nil {
		return nil, err
	}

	points = make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, dbConverter.ConvertPricePoint(row))
	}

	return points, nil
}
