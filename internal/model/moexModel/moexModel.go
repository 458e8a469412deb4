package moexModel

import "github.com/shopspring/decimal"

// RawQuotes is the ISS securities.json payload: two column/data tables joined by SECID.
type RawQuotes struct {
	Securities Table `json:"securities"`
	Marketdata Table `json:"marketdata"`
}

type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type Quote struct {
	Symbol    string          `json:"symbol"`
	Shortname string          `json:"shortname"`
	Currency  string          `json:"currency"`
	Active    bool            `json:"active"`
	Price     decimal.Decimal `json:"price"`
}
