package moexApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/internal/externalApi"
	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/KotFed0t/finplan/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const securitiesPath = "/engines/stock/markets/shares/boards/TQBR/securities.json"

type MoexApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *MoexApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MoexApi.Url)
	return &MoexApi{client: client}
}

// GetQuotes fetches the last market price of each symbol. Unknown symbols are
// absent from the result.
func (a *MoexApi) GetQuotes(ctx context.Context, symbols []string) (map[string]moexModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"iss.meta":           "off",
		"securities.columns": "SECID,SHORTNAME,CURRENCYID,STATUS",
		"marketdata.columns": "SECID,MARKETPRICE",
		"securities":         strings.Join(symbols, ","),
	}

	slog.Debug("start MoexApi.GetQuotes request", slog.String("rqID", rqID), slog.Int("symbols", len(symbols)))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(securitiesPath)
	if err != nil {
		slog.Error("error while dialing MoexApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}
	if resp.IsError() {
		slog.Error("MoexApi responded with error", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("moex api status %d", resp.StatusCode())
	}

	raw := moexModel.RawQuotes{}
	if err = json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into moexModel.RawQuotes", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	res, err := parseQuotes(raw)
	if err != nil {
		slog.Error("can't parse raw data", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("MoexApi.GetQuotes request complete", slog.String("rqID", rqID), slog.Int("quotes", len(res)))

	return res, nil
}

func (a *MoexApi) GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error) {
	quotes, err := a.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return moexModel.Quote{}, err
	}

	q, ok := quotes[symbol]
	if !ok {
		return moexModel.Quote{}, externalApi.ErrNotFound
	}
	return q, nil
}

func parseQuotes(raw moexModel.RawQuotes) (map[string]moexModel.Quote, error) {
	if len(raw.Marketdata.Data) != len(raw.Securities.Data) {
		return nil, errors.New("lengths Marketdata != Securities")
	}

	res := make(map[string]moexModel.Quote, len(raw.Marketdata.Data))

	for i := range raw.Marketdata.Data {
		if len(raw.Marketdata.Data[i]) != len(raw.Marketdata.Columns) {
			return nil, errors.New("invalid Marketdata")
		}
		if len(raw.Securities.Data[i]) != len(raw.Securities.Columns) {
			return nil, errors.New("invalid Securities")
		}

		q := moexModel.Quote{}

		for j, column := range raw.Marketdata.Columns {
			value := raw.Marketdata.Data[i][j]
			ok := true
			switch column {
			case "SECID":
				q.Symbol, ok = value.(string)
			case "MARKETPRICE":
				if value != nil {
					var price float64
					if price, ok = value.(float64); ok {
						q.Price = decimal.NewFromFloat(price)
					}
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}
			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, value)
			}
		}

		for j, column := range raw.Securities.Columns {
			value := raw.Securities.Data[i][j]
			ok := true
			switch column {
			case "SECID":
				if value != q.Symbol {
					return nil, fmt.Errorf("secID in securities and market data is not equal %v and %s", value, q.Symbol)
				}
			case "SHORTNAME":
				q.Shortname, ok = value.(string)
			case "CURRENCYID":
				q.Currency, ok = value.(string)
				if ok && q.Currency == "SUR" {
					q.Currency = "RUB"
				}
			case "STATUS":
				var status string
				status, ok = value.(string)
				q.Active = ok && status == "A"
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}
			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, value)
			}
		}

		res[q.Symbol] = q
	}

	return res, nil
}
