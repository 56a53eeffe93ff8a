package scheduler

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"BotHerald/internal/aggregate"
	"BotHerald/internal/botname"
	"BotHerald/internal/model"
	"BotHerald/internal/notifier"
)

// RunProfitReport sends one cumulative profit chart per active bot to chatID.
// Bots without sells are skipped; a failing bot does not stop the others.
func (s *Scheduler) RunProfitReport(ctx context.Context, trigger Trigger, chatID int64) error {
	if !s.profitActive.TryLock() {
		s.log.Warn("profit report skipped, previous run still active", zap.String("trigger", string(trigger)))
		return ErrBusy
	}
	defer s.profitActive.Unlock()

	run := s.newRun("profit", trigger, chatID)
	run.Stage = StageFetching.String()
	bots, err := s.Source.ListActiveEntities(ctx)
	if err != nil {
		err = errors.Wrap(err, "list active bots")
		s.finish(ctx, run, err)
		return err
	}

	run.Stage = StageNotifying.String()
	var failed int
	for _, bot := range bots {
		sent, err := s.profitChart(ctx, bot, chatID)
		if err != nil {
			failed++
			s.log.Warn("profit chart", zap.String("bot", bot), zap.Error(err))
			continue
		}
		if sent {
			run.Images++
		}
	}

	if failed > 0 {
		err = errors.Errorf("%d of %d profit charts failed", failed, len(bots))
	} else {
		run.Stage = StageDone.String()
	}
	s.finish(ctx, run, err)
	return err
}

func (s *Scheduler) profitChart(ctx context.Context, bot string, chatID int64) (bool, error) {
	trades, err := s.Source.Trades(ctx, bot)
	if err != nil {
		return false, errors.Wrap(err, "fetch trades")
	}
	if len(trades) == 0 {
		return false, nil
	}

	name := botname.Display(bot)
	img, err := s.Renderer.Render(ctx, model.ChartRequest{
		Title:  name + " profit",
		Unit:   trades[0].QuoteAsset,
		Series: model.Series{name: aggregate.ProfitSeries(trades)},
	})
	if err != nil {
		return false, errors.Wrap(err, "render")
	}
	if len(img) == 0 {
		return false, nil
	}

	// display names repeat across containers of the same bot
	att := []notifier.Attachment{{Name: bot + s.Renderer.Extension(), Data: img}}
	if err := s.Notifier.Send(ctx, chatID, notifier.FormatProfitCaption(name), att); err != nil {
		return false, errors.Wrap(err, "send")
	}
	return true, nil
}
