package aggregate

import (
	"github.com/shopspring/decimal"

	"BotHerald/internal/model"
)

// ProfitSeries walks a bot's trades in order and returns its running realized
// profit, one point per sell. A buy sets the cost basis to its notional; a
// sell books notional minus basis. A sell seen before any buy uses its own
// notional as the basis.
func ProfitSeries(trades []model.TradeEvent) []model.SeriesPoint {
	var (
		basis  = decimal.Zero
		profit = decimal.Zero
		points []model.SeriesPoint
	)
	for _, t := range trades {
		switch t.Side {
		case model.SideBuy:
			basis = t.Notional()
		case model.SideSell:
			if basis.IsZero() {
				basis = t.Notional()
			}
			profit = profit.Add(t.Notional().Sub(basis))
			points = append(points, model.SeriesPoint{Timestamp: t.Timestamp, Value: profit})
		}
	}
	return points
}
