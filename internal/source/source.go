package source

import (
	"context"

	"github.com/moznion/go-optional"

	"BotHerald/internal/model"
)

// Source is the backend that reports bots, their trades and account balances.
// Any call may fail with a transient fetch or decode error.
type Source interface {
	// ListActiveEntities returns the names of the bots currently running.
	ListActiveEntities(ctx context.Context) ([]string, error)
	// LatestEvent returns the bot's most recent trade, or None if it has not traded.
	LatestEvent(ctx context.Context, entity string) (optional.Option[model.TradeEvent], error)
	// CurrentSnapshot captures every account's balances now.
	CurrentSnapshot(ctx context.Context) (model.Snapshot, error)
	// Trades returns the bot's full trade history, oldest first.
	Trades(ctx context.Context, entity string) ([]model.TradeEvent, error)
	// ActiveBots returns the running bots with their performance figures.
	ActiveBots(ctx context.Context) ([]model.Bot, error)
}
