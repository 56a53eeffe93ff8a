package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"BotHerald/internal/config"
	"BotHerald/internal/logger"
	"BotHerald/internal/model"
	"BotHerald/internal/notifier"
	"BotHerald/internal/recorder"
	"BotHerald/internal/render"
	"BotHerald/internal/source"
)

// Trigger names what started a report cycle.
type Trigger string

const (
	TriggerCron    Trigger = "cron"
	TriggerCommand Trigger = "command"
	TriggerHTTP    Trigger = "http"
	TriggerStartup Trigger = "startup"
)

// ErrBusy is returned when a report of the same kind is already running.
var ErrBusy = errors.New("report already in progress")

// ErrNothingToReport is returned when a report ran but had no chart to send.
var ErrNothingToReport = errors.New("nothing to report")

// SnapshotStore is the part of the snapshot log the scheduler uses.
type SnapshotStore interface {
	Append(snap model.Snapshot) error
	ReadLast(n int) ([]model.Snapshot, error)
	Count() (int, error)
}

// Scheduler runs the balance report on a cron schedule and serves on-demand
// balance and profit reports through the same code path.
type Scheduler struct {
	Cron     *cron.Cron
	Config   config.ScheduleConfig
	Source   source.Source
	Store    SnapshotStore
	Renderer render.Renderer
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	log           *zap.Logger
	balanceActive sync.Mutex
	profitActive  sync.Mutex
	now           func() time.Time
}

// NewScheduler creates a new Scheduler. ctx bounds every cron-fired cycle.
func NewScheduler(ctx context.Context, cfg config.ScheduleConfig, src source.Source, st SnapshotStore,
	r render.Renderer, n notifier.Notifier, rec recorder.Recorder, log *zap.Logger) *Scheduler {
	cl := logger.NewCronLogger(log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		Config:   cfg,
		Source:   src,
		Store:    st,
		Renderer: r,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		log:      log.Named("scheduler"),
		now:      time.Now,
	}
}

// Register adds the balance report on the configured cron expression. A
// disabled schedule registers nothing.
func (s *Scheduler) Register() error {
	if !s.Config.Enabled {
		s.log.Info("balance schedule disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(s.Config.Cron, s.balanceTask); err != nil {
		return fmt.Errorf("register balance task: %w", err)
	}
	s.log.Info("balance schedule registered", zap.String("cron", s.Config.Cron))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Run starts the scheduler and stops it once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunBalanceNow executes the balance report immediately (RUN_ON_START).
func (s *Scheduler) RunBalanceNow() {
	_ = s.RunBalanceReport(s.Ctx, TriggerStartup, s.Config.ChatID)
}

func (s *Scheduler) balanceTask() {
	_ = s.RunBalanceReport(s.Ctx, TriggerCron, s.Config.ChatID)
}

// finish stamps and records a run; recording failures are only logged.
func (s *Scheduler) finish(ctx context.Context, run *recorder.ReportRun, err error) {
	run.FinishedAt = s.now()
	if err != nil {
		run.Error = err.Error()
	}
	log := s.log.With(
		zap.String("run_id", run.ID),
		zap.String("kind", run.Kind),
		zap.String("trigger", run.Trigger),
		zap.String("stage", run.Stage),
		zap.Int("images", run.Images),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	if err != nil {
		log.Warn("report failed", zap.Error(err))
	} else {
		log.Info("report finished")
	}
	if recErr := s.Recorder.RecordReportRun(context.WithoutCancel(ctx), run); recErr != nil {
		s.log.Warn("record report run", zap.String("run_id", run.ID), zap.Error(recErr))
	}
}

func (s *Scheduler) newRun(kind string, trigger Trigger, chatID int64) *recorder.ReportRun {
	return &recorder.ReportRun{
		ID:        uuid.NewString(),
		Kind:      kind,
		Trigger:   string(trigger),
		ChatID:    chatID,
		Stage:     StageIdle.String(),
		StartedAt: s.now(),
	}
}
