package scheduler

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"BotHerald/internal/aggregate"
	"BotHerald/internal/model"
	"BotHerald/internal/notifier"
)

// Stage is a step of the balance report cycle.
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StagePersisting
	StageAggregating
	StageRendering
	StageNotifying
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StagePersisting:
		return "persisting"
	case StageAggregating:
		return "aggregating"
	case StageRendering:
		return "rendering"
	case StageNotifying:
		return "notifying"
	case StageDone:
		return "done"
	default:
		return "idle"
	}
}

// balanceUnit is the quote currency of account values reported by the backend.
const balanceUnit = "USD"

// RunBalanceReport captures a snapshot, appends it to the log, charts the
// stored history per account and sends the charts to chatID. It returns
// ErrBusy without doing anything when another balance cycle is running, and
// ErrNothingToReport when the history yields no chart.
// Failures end the cycle; an append failure is logged and the cycle goes on
// with what the log already holds.
func (s *Scheduler) RunBalanceReport(ctx context.Context, trigger Trigger, chatID int64) error {
	if !s.balanceActive.TryLock() {
		s.log.Warn("balance report skipped, previous cycle still running", zap.String("trigger", string(trigger)))
		return ErrBusy
	}
	defer s.balanceActive.Unlock()

	run := s.newRun("balance", trigger, chatID)
	stage, images, err := s.balanceCycle(ctx, chatID)
	run.Stage = stage.String()
	run.Images = images
	if errors.Is(err, ErrNothingToReport) {
		s.finish(ctx, run, nil)
		return err
	}
	s.finish(ctx, run, err)
	return err
}

func (s *Scheduler) balanceCycle(ctx context.Context, chatID int64) (Stage, int, error) {
	snap, err := s.Source.CurrentSnapshot(ctx)
	if err != nil {
		return StageFetching, 0, errors.Wrap(err, "fetch snapshot")
	}

	if err := s.Store.Append(snap); err != nil {
		s.log.Warn("append snapshot", zap.Uint64("timestamp", snap.Timestamp), zap.Error(err))
	}

	history, err := s.Store.ReadLast(s.Config.History)
	if err != nil {
		return StageAggregating, 0, errors.Wrap(err, "read snapshot history")
	}
	series := aggregate.BalanceSeries(history)

	var images []notifier.Attachment
	for _, account := range aggregate.Accounts(series) {
		img, err := s.Renderer.Render(ctx, model.ChartRequest{
			Title:  "Balance of " + account,
			Unit:   balanceUnit,
			Series: model.Series{account: series[account]},
		})
		if err != nil {
			return StageRendering, 0, errors.Wrapf(err, "render %s", account)
		}
		if len(img) == 0 {
			continue
		}
		images = append(images, notifier.Attachment{Name: account + s.Renderer.Extension(), Data: img})
	}
	if len(images) == 0 {
		s.log.Info("nothing to report", zap.Int("snapshots", len(history)))
		return StageRendering, 0, ErrNothingToReport
	}

	if err := s.Notifier.Send(ctx, chatID, s.Config.Message, images); err != nil {
		return StageNotifying, 0, errors.Wrap(err, "send balance report")
	}
	return StageDone, len(images), nil
}
