package source

import (
	"sort"

	"github.com/shopspring/decimal"

	"BotHerald/internal/model"
)

// toTradeEvent maps one backend trade to the internal model. Unknown sides and
// malformed decimals fail this trade only.
func toTradeEvent(w wireTrade) (model.TradeEvent, error) {
	side, err := model.ParseTradeSide(w.TradeType)
	if err != nil {
		return model.TradeEvent{}, err
	}
	amount, err := decimal.NewFromString(w.Quantity)
	if err != nil {
		return model.TradeEvent{}, &model.ValidationError{Field: "quantity", Value: w.Quantity, Reason: err.Error()}
	}
	price, err := decimal.NewFromString(w.Price)
	if err != nil {
		return model.TradeEvent{}, &model.ValidationError{Field: "price", Value: w.Price, Reason: err.Error()}
	}
	return model.TradeEvent{
		BaseAsset:  w.BaseAsset,
		QuoteAsset: w.QuoteAsset,
		Amount:     amount,
		Price:      price,
		Timestamp:  w.TradeTimestamp,
		Side:       side,
	}, nil
}

// toSnapshot maps the accounts state to a snapshot; each token's quote value
// becomes the entry amount.
func toSnapshot(state accountsState, ts uint64) model.Snapshot {
	snap := model.Snapshot{
		Accounts:  make(map[string]map[string][]model.BalanceEntry, len(state)),
		Timestamp: ts,
	}
	for account, exchanges := range state {
		byExchange := make(map[string][]model.BalanceEntry, len(exchanges))
		for exchange, tokens := range exchanges {
			entries := make([]model.BalanceEntry, 0, len(tokens))
			for _, t := range tokens {
				entries = append(entries, model.BalanceEntry{Coin: t.Token, Amount: t.Value})
			}
			byExchange[exchange] = entries
		}
		snap.Accounts[account] = byExchange
	}
	return snap
}

// toBots maps the active bots response, summing each bot's global PNL over its
// controllers. Bots are sorted by name.
func toBots(resp activeBotsResponse) []model.Bot {
	bots := make([]model.Bot, 0, len(resp.Data))
	for name, wb := range resp.Data {
		bot := model.Bot{
			Name:        name,
			Status:      wb.Status,
			GlobalPNL:   model.PNL{Pct: decimal.Zero, Quote: decimal.Zero},
			Controllers: make(map[string]model.Controller, len(wb.Performance)),
		}
		for id, c := range wb.Performance {
			bot.GlobalPNL.Quote = bot.GlobalPNL.Quote.Add(c.Performance.GlobalPNLQuote)
			bot.Controllers[id] = model.Controller{
				Status: c.Status,
				PNL:    model.PNL{Pct: c.Performance.GlobalPNLPct, Quote: c.Performance.GlobalPNLQuote},
			}
		}
		bots = append(bots, bot)
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].Name < bots[j].Name })
	return bots
}
