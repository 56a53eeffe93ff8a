package recorder

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// ReportRun is one balance or profit report cycle, scheduled or on demand.
type ReportRun struct {
	ID         string
	Kind       string // "balance" or "profit"
	Trigger    string // "cron", "command", "http", "startup"
	ChatID     int64
	Stage      string // last stage reached
	Images     int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// TradeNotification records one trade announcement attempt.
type TradeNotification struct {
	Bot       string
	Timestamp uint64
	Side      string
	Pair      string
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Delivered bool
	Error     string
}

// Recorder keeps an audit trail of report runs and trade announcements.
type Recorder interface {
	RecordReportRun(ctx context.Context, run *ReportRun) error
	RecordTradeNotification(ctx context.Context, n *TradeNotification) error
	LastReportRun(ctx context.Context, kind string) (optional.Option[ReportRun], error)
	Close() error
}
