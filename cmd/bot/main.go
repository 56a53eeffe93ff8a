package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"BotHerald/internal/api"
	"BotHerald/internal/config"
	"BotHerald/internal/logger"
	"BotHerald/internal/model"
	"BotHerald/internal/notifier"
	"BotHerald/internal/poller"
	"BotHerald/internal/recorder"
	"BotHerald/internal/render"
	"BotHerald/internal/scheduler"
	"BotHerald/internal/source"
	"BotHerald/internal/store"
)

func main() {
	cmd := &cli.Command{
		Name:  "botherald",
		Usage: "Announce hummingbot trades and post balance reports to Telegram",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-path",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.BoolFlag{
				Name:    "run-on-start",
				Usage:   "Send a balance report right after startup",
				Sources: cli.EnvVars("RUN_ON_START"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config-path"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	lg, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	lg.Info("BotHerald starting", zap.String("config", cmd.String("config-path")))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := source.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, "")
	src.Log = lg.Named("source")
	lg.Info("data source", zap.String("source", src.Name()), zap.String("base_url", src.BaseURL))

	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.Proxy, lg)
	if err != nil {
		return err
	}
	n := notifier.NewRetrying(tn, 3, lg)

	var rec recorder.Recorder
	sr, err := recorder.NewSQLRecorder(ctx, cfg.Database.Driver, cfg.Database.DSN, lg)
	if err != nil {
		lg.Warn("init recorder failed, using noop", zap.Error(err))
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}
	defer rec.Close()

	var cursors poller.CursorStore = poller.NopCursorStore{}
	if cfg.Redis.Addr != "" {
		rc, err := poller.NewRedisCursorStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Warn("init redis cursor store failed, cursors kept in memory", zap.Error(err))
		} else {
			cursors = rc
			defer rc.Close()
		}
	}

	var renderer render.Renderer
	switch cfg.Render.Mode {
	case "http":
		renderer = render.NewHTTPRenderer(cfg.Render.Endpoint, cfg.Render.Width, cfg.Render.Height, cfg.Backend.Timeout)
	default:
		renderer = render.NewSVGRenderer(cfg.Render.Width, cfg.Render.Height)
	}

	snapshots := store.New[model.Snapshot](cfg.Store.Path)

	sched := scheduler.NewScheduler(ctx, cfg.Schedule, src, snapshots, renderer, n, rec, lg)
	if err := sched.Register(); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}

	engine := poller.New(src, n, rec, cursors, poller.Config{
		ChatID:          cfg.Telegram.ChatID,
		TickInterval:    cfg.Polling.TickInterval,
		RefreshInterval: cfg.Polling.RefreshInterval,
	}, lg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return tn.Listen(ctx, sched.HandleCommand) })
	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(sched, snapshots, cfg.Schedule.ChatID, lg)
		g.Go(func() error { return srv.Run(ctx, cfg.HTTP.Addr) })
	}

	if cmd.Bool("run-on-start") {
		lg.Info("run-on-start enabled, sending balance report now")
		g.Go(func() error {
			sched.RunBalanceNow()
			return nil
		})
	}

	lg.Info("BotHerald is running, press Ctrl+C to stop")
	err = g.Wait()
	lg.Info("BotHerald stopped")
	return err
}
