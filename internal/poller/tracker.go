package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"BotHerald/internal/botname"
	"BotHerald/internal/notifier"
	"BotHerald/internal/recorder"
)

// tracker polls one bot. Its cursor is never shared with another goroutine.
type tracker struct {
	e      *Engine
	entity string
	cursor uint64
	log    *zap.Logger
}

func (e *Engine) newTracker(entity string) *tracker {
	return &tracker{
		e:      e,
		entity: entity,
		log:    e.log.With(zap.String("bot", entity)),
	}
}

func (t *tracker) run(ctx context.Context) {
	t.restore(ctx)

	ticker := time.NewTicker(t.e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

// restore seeds the cursor from the CursorStore; a failure leaves it at zero.
func (t *tracker) restore(ctx context.Context) {
	saved, err := t.e.cursors.Load(ctx, t.entity)
	if err != nil {
		t.log.Warn("load cursor", zap.Error(err))
		return
	}
	if saved.IsSome() {
		t.cursor = saved.Unwrap()
	}
}

// poll runs one tick. Every failure is logged and absorbed; the cursor only
// moves forward, and only after the notifier accepted the announcement.
func (t *tracker) poll(ctx context.Context) {
	latest, err := t.e.source.LatestEvent(ctx, t.entity)
	if err != nil {
		if ctx.Err() == nil {
			t.log.Warn("fetch latest trade", zap.Error(err))
		}
		return
	}
	if latest.IsNone() {
		return
	}
	ev := latest.Unwrap()
	if ev.Timestamp <= t.cursor {
		return
	}

	msg := notifier.FormatTrade(botname.Display(t.entity), ev)
	sendErr := t.e.notifier.Send(ctx, t.e.cfg.ChatID, msg, nil)

	rec := &recorder.TradeNotification{
		Bot:       t.entity,
		Timestamp: ev.Timestamp,
		Side:      string(ev.Side),
		Pair:      ev.Pair(),
		Amount:    ev.Amount,
		Price:     ev.Price,
		Delivered: sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := t.e.recorder.RecordTradeNotification(ctx, rec); err != nil {
		t.log.Warn("record trade notification", zap.Error(err))
	}

	if sendErr != nil {
		t.log.Warn("announce trade", zap.Uint64("trade_ts", ev.Timestamp), zap.Error(sendErr))
		return
	}

	t.cursor = ev.Timestamp
	t.log.Info("announced trade", zap.Uint64("trade_ts", ev.Timestamp), zap.String("side", string(ev.Side)))
	if err := t.e.cursors.Save(ctx, t.entity, t.cursor); err != nil {
		t.log.Warn("save cursor", zap.Error(err))
	}
}
