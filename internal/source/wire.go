package source

import "github.com/shopspring/decimal"

// Response shapes of the hummingbot backend API.

type wirePerformance struct {
	RealizedPNLQuote   decimal.Decimal `json:"realized_pnl_quote"`
	UnrealizedPNLQuote decimal.Decimal `json:"unrealized_pnl_quote"`
	UnrealizedPNLPct   decimal.Decimal `json:"unrealized_pnl_pct"`
	RealizedPNLPct     decimal.Decimal `json:"realized_pnl_pct"`
	GlobalPNLQuote     decimal.Decimal `json:"global_pnl_quote"`
	GlobalPNLPct       decimal.Decimal `json:"global_pnl_pct"`
	VolumeTraded       decimal.Decimal `json:"volume_traded"`
}

type wireController struct {
	Status      string          `json:"status"`
	Performance wirePerformance `json:"performance"`
}

type wireBot struct {
	Status      string                    `json:"status"`
	Performance map[string]wireController `json:"performance"`
}

type activeBotsResponse struct {
	Status string             `json:"status"`
	Data   map[string]wireBot `json:"data"`
}

type wireTrade struct {
	Market         string `json:"market"`
	TradeID        string `json:"trade_id"`
	Price          string `json:"price"`
	Quantity       string `json:"quantity"`
	Symbol         string `json:"symbol"`
	TradeTimestamp uint64 `json:"trade_timestamp"`
	TradeType      string `json:"trade_type"`
	BaseAsset      string `json:"base_asset"`
	QuoteAsset     string `json:"quote_asset"`
}

type tradesResponse struct {
	Status   string `json:"status"`
	Response struct {
		Status int         `json:"status"`
		Msg    string      `json:"msg"`
		Trades []wireTrade `json:"trades"`
	} `json:"response"`
}

type wireTokenState struct {
	Token          string          `json:"token"`
	Units          decimal.Decimal `json:"units"`
	Price          decimal.Decimal `json:"price"`
	Value          decimal.Decimal `json:"value"`
	AvailableUnits decimal.Decimal `json:"available_units"`
}

// accountsState is account -> exchange -> token states.
type accountsState map[string]map[string][]wireTokenState
