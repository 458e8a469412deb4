package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/utils"
	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31

	colorSummary      = "#cfe2f3"
	colorHoldings     = "#d9ead3"
	colorTransactions = "#cccccc"
)

var sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(report.Portfolios) == 0 {
		return nil, "", errors.New("empty portfolios")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("portfolios", len(report.Portfolios)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	for i, portfolio := range report.Portfolios {
		if err := g.fillSheet(ctx, f, portfolio, i+1); err != nil {
			return nil, "", err
		}
	}

	// sheet created by NewFile
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func sheetName(ordinal int, name string) string {
	res := fmt.Sprintf("%d. %s", ordinal, sheetNameReplacer.Replace(name))
	if r := []rune(res); len(r) > maxSheetName {
		res = string(r[:maxSheetName])
	}
	return res
}

func (g *XSLSXGenerator) fillSheet(ctx context.Context, f *excelize.File, portfolio model.PortfolioReport, ordinal int) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillSheet"

	sheet := sheetName(ordinal, portfolio.Summary.Name)
	if _, err := f.NewSheet(sheet); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	summary := portfolio.Summary
	if err := g.section(f, sheet, 1, "A", "E", "Summary", colorSummary); err != nil {
		return err
	}
	_ = f.SetSheetRow(sheet, "A2", &[]any{"invested", "current value", "gain/loss", "return %", "currency"})
	_ = f.SetSheetRow(sheet, "A3", &[]any{
		summary.TotalInvested.InexactFloat64(),
		summary.CurrentValue.InexactFloat64(),
		summary.TotalGainLoss.InexactFloat64(),
		summary.TotalReturnPercentage.Round(2).InexactFloat64(),
		summary.Currency,
	})

	row := 5
	if err := g.section(f, sheet, row, "A", "I", "Holdings", colorHoldings); err != nil {
		return err
	}
	row++
	_ = f.SetSheetRow(sheet, cell("A", row), &[]any{"name", "symbol", "type", "units", "avg cost", "price", "invested", "value", "gain/loss %"})
	for _, inv := range portfolio.Investments {
		row++
		_ = f.SetSheetRow(sheet, cell("A", row), &[]any{
			inv.Name,
			inv.Symbol,
			string(inv.Type),
			inv.Units.InexactFloat64(),
			inv.AverageCost.InexactFloat64(),
			inv.CurrentPrice.InexactFloat64(),
			inv.TotalInvested.InexactFloat64(),
			inv.CurrentValue.InexactFloat64(),
			inv.GainLossPercentage.Round(2).InexactFloat64(),
		})
	}

	row += 3
	if err := g.section(f, sheet, row, "A", "H", "Transactions", colorTransactions); err != nil {
		return err
	}
	row++
	_ = f.SetSheetRow(sheet, cell("A", row), &[]any{"date", "type", "units", "price", "total", "fees", "net", "platform"})
	for _, tx := range portfolio.Transactions {
		row++
		_ = f.SetSheetRow(sheet, cell("A", row), &[]any{
			tx.TransactionDate.Format(model.DateLayout),
			string(tx.Type),
			tx.Units.InexactFloat64(),
			tx.PricePerUnit.InexactFloat64(),
			tx.TotalAmount.InexactFloat64(),
			tx.Fees().InexactFloat64(),
			tx.NetAmount.InexactFloat64(),
			tx.Platform,
		})
	}

	return nil
}

// section writes a merged, filled title row spanning from..to.
func (g *XSLSXGenerator) section(f *excelize.File, sheet string, row int, from, to, title, color string) error {
	if err := f.MergeCell(sheet, cell(from, row), cell(to, row)); err != nil {
		return err
	}
	_ = f.SetCellStr(sheet, cell(from, row), title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, cell(from, row), cell(from, row), styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
