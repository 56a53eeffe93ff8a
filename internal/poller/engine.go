// Package poller announces each tracked bot's newest trade exactly once per
// distinct trade timestamp.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"BotHerald/internal/notifier"
	"BotHerald/internal/recorder"
	"BotHerald/internal/source"
)

// Config holds the engine's intervals and destination.
type Config struct {
	ChatID          int64
	TickInterval    time.Duration
	RefreshInterval time.Duration
}

// Engine runs one poll task per active bot and a supervisor that starts and
// stops tasks as bots come and go.
type Engine struct {
	source   source.Source
	notifier notifier.Notifier
	recorder recorder.Recorder
	cursors  CursorStore
	cfg      Config
	log      *zap.Logger
}

// New creates an Engine. Zero intervals fall back to 5s ticks and 1m refreshes.
func New(src source.Source, n notifier.Notifier, rec recorder.Recorder, cursors CursorStore, cfg Config, log *zap.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	if cursors == nil {
		cursors = NopCursorStore{}
	}
	return &Engine{
		source:   src,
		notifier: n,
		recorder: rec,
		cursors:  cursors,
		cfg:      cfg,
		log:      log.Named("poller"),
	}
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// supervisor owns the task map. Only the goroutine running Engine.Run
// touches it.
type supervisor struct {
	e     *Engine
	tasks map[string]*task
	wg    sync.WaitGroup
}

// Run refreshes the active bot set immediately and then every refresh
// interval until ctx is done. It always returns nil once every poll task
// has stopped.
func (e *Engine) Run(ctx context.Context) error {
	s := &supervisor{e: e, tasks: make(map[string]*task)}
	defer s.stopAll()

	s.refresh(ctx)

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("poller stopped")
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *supervisor) refresh(ctx context.Context) {
	active, err := s.e.source.ListActiveEntities(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.e.log.Warn("refresh active bots", zap.Error(err))
		}
		return
	}
	s.reconcile(ctx, active)
}

func (s *supervisor) reconcile(ctx context.Context, active []string) {
	seen := make(map[string]struct{}, len(active))
	for _, name := range active {
		seen[name] = struct{}{}
		if _, ok := s.tasks[name]; !ok {
			s.start(ctx, name)
		}
	}
	for name, t := range s.tasks {
		if _, ok := seen[name]; ok {
			continue
		}
		t.cancel()
		<-t.done
		delete(s.tasks, name)
		if err := s.e.cursors.Delete(ctx, name); err != nil {
			s.e.log.Warn("delete cursor", zap.String("bot", name), zap.Error(err))
		}
		s.e.log.Info("stopped tracking bot", zap.String("bot", name))
	}
}

func (s *supervisor) start(parent context.Context, name string) {
	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[name] = t

	tr := s.e.newTracker(name)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(t.done)
		tr.run(ctx)
	}()
	s.e.log.Info("tracking bot", zap.String("bot", name))
}

func (s *supervisor) stopAll() {
	for _, t := range s.tasks {
		t.cancel()
	}
	s.wg.Wait()
}
