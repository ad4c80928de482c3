package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetSpec describes a supported asset as declared in assets.yaml.
type AssetSpec struct {
	Symbol         string
	Name           string
	CoingeckoId    string
	Network        string
	DepositAddress string
	FallbackPrice  decimal.Decimal
}

// AssetQuote is a point-in-time market quote for a supported asset.
// Live reports whether the quote came from the upstream feed; quotes served
// from the static fallback table have Live=false and a zero FetchedAt is
// possible before the first successful refresh.
type AssetQuote struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Live      bool            `json:"live"`
	FetchedAt time.Time       `json:"fetched_at"`
}
