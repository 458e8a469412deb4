package postgres

import (
	"context"
	"strings"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const transactionColumns = `id, investment_id, portfolio_id, user_id, template_id, type, units, price_per_unit,
	total_amount, brokerage_fee, tax_amount, other_charges, net_amount, transaction_date, platform, notes, created_at`

func (p *Postgres) InsertTransaction(ctx context.Context, tx model.Transaction) (res model.Transaction, err error) {
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions (id, investment_id, portfolio_id, user_id, template_id, type, units, price_per_unit,
			total_amount, brokerage_fee, tax_amount, other_charges, net_amount, transaction_date, platform, notes)
		VALUES (:id, :investment_id, :portfolio_id, :user_id, :template_id, :type, :units, :price_per_unit,
			:total_amount, :brokerage_fee, :tax_amount, :other_charges, :net_amount, :transaction_date, :platform, :notes)
		RETURNING ` + transactionColumns
	done := logQuery(ctx, op, query, map[string]any{"id": tx.ID, "investmentID": tx.InvestmentID, "type": tx.Type})
	defer func() { done(err) }()

	stmt, err := p.txOrDb(ctx).PrepareNamedContext(ctx, query)
	if err != nil {
		return model.Transaction{}, err
	}
	defer stmt.Close()

	var row dbModel.Transaction
	if err = stmt.GetContext(ctx, &row, dbConverter.ToDbTransaction(tx)); err != nil {
		return model.Transaction{}, mapErr(err)
	}

	return dbConverter.ConvertTransaction(row), nil
}

func (p *Postgres) GetTransaction(ctx context.Context, id uuid.UUID) (tx model.Transaction, err error) {
	op := "Postgres.GetTransaction"
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	done := logQuery(ctx, op, query, map[string]any{"id": id})
	defer func() { done(err) }()

	var row dbModel.Transaction
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Transaction{}, mapErr(err)
	}

	return dbConverter.ConvertTransaction(row), nil
}

// UpdateTransaction persists the patched inputs together with the recomputed amounts.
func (p *Postgres) UpdateTransaction(ctx context.Context, tx model.Transaction) (err error) {
	op := "Postgres.UpdateTransaction"
	query := `
		UPDATE transactions
		SET units = :units, price_per_unit = :price_per_unit, total_amount = :total_amount,
			brokerage_fee = :brokerage_fee, tax_amount = :tax_amount, other_charges = :other_charges,
			net_amount = :net_amount, transaction_date = :transaction_date, platform = :platform, notes = :notes
		WHERE id = :id
		`
	done := logQuery(ctx, op, query, map[string]any{"id": tx.ID})
	defer func() { done(err) }()

	res, err := p.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbTransaction(tx))
	if err != nil {
		return err
	}

	return requireAffected(res)
}

// ListTransactions returns the user's transactions matching f, newest first.
func (p *Postgres) ListTransactions(ctx context.Context, f model.TransactionFilter) (txs []model.Transaction, err error) {
	op := "Postgres.ListTransactions"

	conds := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.InvestmentID != nil {
		conds = append(conds, "investment_id = ?")
		args = append(args, *f.InvestmentID)
	}
	if f.PortfolioID != nil {
		conds = append(conds, "portfolio_id = ?")
		args = append(args, *f.PortfolioID)
	}
	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, string(t))
		}
		conds = append(conds, "type IN (?)")
		args = append(args, types)
	}
	if f.From != nil {
		conds = append(conds, "transaction_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "transaction_date <= ?")
		args = append(args, *f.To)
	}
	if f.Platform != "" {
		// literal substring match, % and _ are not wildcards here
		conds = append(conds, "strpos(lower(platform), lower(?)) > 0")
		args = append(args, f.Platform)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY transaction_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	done := logQuery(ctx, op, query, map[string]any{"userID": f.UserID, "args": len(args)})
	defer func() { done(err) }()

	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = p.txOrDb(ctx).Rebind(query)

	var rows []dbModel.Transaction
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	txs = make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dbConverter.ConvertTransaction(row))
	}

	return txs, nil
}

// ListInvestmentLedger returns every transaction of one investment in booking order.
func (p *Postgres) ListInvestmentLedger(ctx context.Context, investmentID uuid.UUID) (txs []model.Transaction, err error) {
	op := "Postgres.ListInvestmentLedger"
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE investment_id = $1
		ORDER BY transaction_date, created_at
		`
	done := logQuery(ctx, op, query, map[string]any{"investmentID": investmentID})
	defer func() { done(err) }()

	var rows []dbModel.Transaction
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, investmentID); err != nil {
		return nil, err
	}

	txs = make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dbConverter.ConvertTransaction(row))
	}

	return txs, nil
}
