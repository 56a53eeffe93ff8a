package model

import "github.com/shopspring/decimal"

// PNL is a profit-and-loss figure, both as a fraction and in quote units.
type PNL struct {
	Pct   decimal.Decimal
	Quote decimal.Decimal
}

// Controller is one strategy controller running inside a bot.
type Controller struct {
	Status string
	PNL    PNL
}

// Bot is an active bot as reported by the backend status endpoint.
type Bot struct {
	Name        string
	Status      string
	GlobalPNL   PNL
	Controllers map[string]Controller
}
