package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"BotHerald/internal/config"
	"BotHerald/internal/model"
	"BotHerald/internal/notifier"
	"BotHerald/internal/recorder"
	"BotHerald/internal/source"
	"BotHerald/internal/store"
)

type delivery struct {
	ChatID  int64
	Message string
	Images  []notifier.Attachment
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []delivery
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, chatID int64, message string, images []notifier.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, delivery{ChatID: chatID, Message: message, Images: images})
	return nil
}

func (f *fakeNotifier) Sent() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.sent...)
}

type fakeRenderer struct {
	mu       sync.Mutex
	requests []model.ChartRequest
	err      error
	empty    bool
	entered  chan struct{}
	release  chan struct{}
}

func (r *fakeRenderer) Extension() string { return ".svg" }

func (r *fakeRenderer) Render(_ context.Context, req model.ChartRequest) ([]byte, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	if r.empty || req.Empty() {
		return nil, nil
	}
	return []byte("<svg>" + req.Title + "</svg>"), nil
}

type runRecorder struct {
	recorder.NoopRecorder
	mu   sync.Mutex
	runs []recorder.ReportRun
}

func (r *runRecorder) RecordReportRun(_ context.Context, run *recorder.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return nil
}

func (r *runRecorder) LastReportRun(_ context.Context, kind string) (optional.Option[recorder.ReportRun], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].Kind == kind {
			return optional.Some(r.runs[i]), nil
		}
	}
	return optional.None[recorder.ReportRun](), nil
}

func (r *runRecorder) last() recorder.ReportRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[len(r.runs)-1]
}

type failingStore struct {
	*store.Store[model.Snapshot]
}

func (failingStore) Append(model.Snapshot) error {
	return &store.IOError{Op: "open", Path: "/readonly/balances.jsonl", Err: errors.New("read-only file system")}
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotAt(ts uint64, btc, usdt string) model.Snapshot {
	return model.Snapshot{
		Timestamp: ts,
		Accounts: map[string]map[string][]model.BalanceEntry{
			"master": {
				"binance": {{Coin: "BTC", Amount: amount(btc)}},
				"kucoin":  {{Coin: "USDT", Amount: amount(usdt)}},
			},
		},
	}
}

type SchedulerTestSuite struct {
	suite.Suite
	src      *source.MockSource
	store    *store.Store[model.Snapshot]
	renderer *fakeRenderer
	notifier *fakeNotifier
	recorder *runRecorder
	sched    *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.src = source.NewMockSource()
	s.store = store.New[model.Snapshot](filepath.Join(s.T().TempDir(), "data", "balances.jsonl"))
	s.renderer = &fakeRenderer{}
	s.notifier = &fakeNotifier{}
	s.recorder = &runRecorder{}
	s.sched = s.newScheduler(config.ScheduleConfig{
		Cron:    "0 0 9 * * *",
		Enabled: true,
		Message: "Balance report",
		ChatID:  100,
		History: 3,
	})
}

func (s *SchedulerTestSuite) newScheduler(cfg config.ScheduleConfig) *Scheduler {
	return NewScheduler(context.Background(), cfg, s.src, s.store, s.renderer, s.notifier, s.recorder, zap.NewNop())
}

func (s *SchedulerTestSuite) TestBalanceReportFullCycle() {
	s.Require().NoError(s.store.Append(snapshotAt(100, "1000", "50")))
	s.src.Snapshot = snapshotAt(200, "1100", "50")

	s.Require().NoError(s.sched.RunBalanceReport(context.Background(), TriggerCron, 100))

	n, err := s.store.Count()
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Require().Len(s.renderer.requests, 1)
	pts := s.renderer.requests[0].Series["master"]
	s.Require().Len(pts, 2)
	s.True(amount("1050").Equal(pts[0].Value))
	s.True(amount("1150").Equal(pts[1].Value))
	s.Equal(uint64(200), pts[1].Timestamp)

	sent := s.notifier.Sent()
	s.Require().Len(sent, 1)
	s.Equal(int64(100), sent[0].ChatID)
	s.Equal("Balance report", sent[0].Message)
	s.Require().Len(sent[0].Images, 1)
	s.Equal("master.svg", sent[0].Images[0].Name)

	run := s.recorder.last()
	s.Equal("balance", run.Kind)
	s.Equal("cron", run.Trigger)
	s.Equal("done", run.Stage)
	s.Equal(1, run.Images)
	s.Empty(run.Error)
	s.NotEmpty(run.ID)
}

func (s *SchedulerTestSuite) TestBalanceHistoryBounded() {
	for ts := uint64(1); ts <= 5; ts++ {
		s.Require().NoError(s.store.Append(snapshotAt(ts, "1", "1")))
	}
	s.src.Snapshot = snapshotAt(6, "1", "1")

	s.Require().NoError(s.sched.RunBalanceReport(context.Background(), TriggerCommand, 1))
	pts := s.renderer.requests[0].Series["master"]
	s.Require().Len(pts, 3)
	s.Equal(uint64(4), pts[0].Timestamp)
	s.Equal(uint64(6), pts[2].Timestamp)
}

func (s *SchedulerTestSuite) TestOneImagePerAccount() {
	snap := snapshotAt(10, "1", "2")
	snap.Accounts["sub"] = map[string][]model.BalanceEntry{"okx": {{Coin: "ETH", Amount: amount("3")}}}
	s.src.Snapshot = snap

	s.Require().NoError(s.sched.RunBalanceReport(context.Background(), TriggerHTTP, 5))
	sent := s.notifier.Sent()
	s.Require().Len(sent, 1)
	s.Require().Len(sent[0].Images, 2)
	s.Equal("master.svg", sent[0].Images[0].Name)
	s.Equal("sub.svg", sent[0].Images[1].Name)
}

func (s *SchedulerTestSuite) TestFetchFailureStopsCycle() {
	s.src.SnapshotErr = &source.FetchError{URL: "http://backend/accounts-state", Status: 503}

	err := s.sched.RunBalanceReport(context.Background(), TriggerCron, 100)
	s.Require().Error(err)
	s.True(source.IsTransient(err))

	s.True(s.store.IsEmpty())
	s.Empty(s.renderer.requests)
	s.Empty(s.notifier.Sent())
	s.Equal("fetching", s.recorder.last().Stage)
	s.Contains(s.recorder.last().Error, "status 503")
}

func (s *SchedulerTestSuite) TestPersistFailureStillReports() {
	backing := store.New[model.Snapshot](filepath.Join(s.T().TempDir(), "old.jsonl"))
	s.Require().NoError(backing.Append(snapshotAt(50, "7", "3")))
	s.sched.Store = failingStore{backing}
	s.src.Snapshot = snapshotAt(60, "8", "3")

	s.Require().NoError(s.sched.RunBalanceReport(context.Background(), TriggerCron, 100))

	pts := s.renderer.requests[0].Series["master"]
	s.Require().Len(pts, 1)
	s.Equal(uint64(50), pts[0].Timestamp)
	s.Len(s.notifier.Sent(), 1)
}

func (s *SchedulerTestSuite) TestRenderFailureKeepsAppend() {
	s.src.Snapshot = snapshotAt(1, "1", "1")
	s.renderer.err = errors.New("chart service down")

	s.Require().Error(s.sched.RunBalanceReport(context.Background(), TriggerCron, 100))
	n, err := s.store.Count()
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Empty(s.notifier.Sent())
	s.Equal("rendering", s.recorder.last().Stage)
}

func (s *SchedulerTestSuite) TestEmptyRenderSkipsNotify() {
	s.src.Snapshot = snapshotAt(1, "1", "1")
	s.renderer.empty = true

	s.Require().ErrorIs(s.sched.RunBalanceReport(context.Background(), TriggerCron, 100), ErrNothingToReport)
	s.Empty(s.notifier.Sent())
	s.Equal("rendering", s.recorder.last().Stage)
	s.Empty(s.recorder.last().Error)
}

func (s *SchedulerTestSuite) TestNotifyFailure() {
	s.src.Snapshot = snapshotAt(1, "1", "1")
	s.notifier.err = errors.New("telegram down")

	err := s.sched.RunBalanceReport(context.Background(), TriggerCron, 100)
	s.Require().Error(err)
	s.Contains(err.Error(), "telegram down")
	s.Equal("notifying", s.recorder.last().Stage)
}

func (s *SchedulerTestSuite) TestOverlappingRunSkipped() {
	s.src.Snapshot = snapshotAt(1, "1", "1")
	s.renderer.entered = make(chan struct{})
	s.renderer.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.sched.RunBalanceReport(context.Background(), TriggerCron, 100) }()
	<-s.renderer.entered

	s.ErrorIs(s.sched.RunBalanceReport(context.Background(), TriggerCommand, 100), ErrBusy)
	s.Contains(s.sched.HandleCommand(context.Background(), 100, "/balance"), "already running")

	close(s.renderer.release)
	s.NoError(<-done)
	n, err := s.store.Count()
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Len(s.notifier.Sent(), 1)
}

func (s *SchedulerTestSuite) TestProfitReport() {
	s.src.SetEntities("hummingbot-alpha-2024.05.01_10.00", "hummingbot-idle-2024.05.01_10.00")
	s.src.History["hummingbot-alpha-2024.05.01_10.00"] = []model.TradeEvent{
		{BaseAsset: "BTC", QuoteAsset: "USDT", Amount: amount("1"), Price: amount("100"), Timestamp: 1, Side: model.SideBuy},
		{BaseAsset: "BTC", QuoteAsset: "USDT", Amount: amount("1"), Price: amount("110"), Timestamp: 2, Side: model.SideSell},
	}

	s.Require().NoError(s.sched.RunProfitReport(context.Background(), TriggerCommand, 42))

	sent := s.notifier.Sent()
	s.Require().Len(sent, 1)
	s.Equal(int64(42), sent[0].ChatID)
	s.Equal("Profit chart for <b>alpha</b>", sent[0].Message)
	s.Equal("hummingbot-alpha-2024.05.01_10.00.svg", sent[0].Images[0].Name)

	req := s.renderer.requests[0]
	s.Equal("USDT", req.Unit)
	s.True(amount("10").Equal(req.Series["alpha"][0].Value))

	run := s.recorder.last()
	s.Equal("profit", run.Kind)
	s.Equal(1, run.Images)
	s.Equal("done", run.Stage)
}

func (s *SchedulerTestSuite) TestProfitReportNamesAttachmentsByContainer() {
	older, newer := "hummingbot-alpha-2024.05.01_10.00", "hummingbot-alpha-2024.06.01_10.00"
	s.src.SetEntities(older, newer)
	for _, bot := range []string{older, newer} {
		s.src.History[bot] = []model.TradeEvent{
			{BaseAsset: "BTC", QuoteAsset: "USDT", Amount: amount("1"), Price: amount("100"), Timestamp: 1, Side: model.SideBuy},
			{BaseAsset: "BTC", QuoteAsset: "USDT", Amount: amount("1"), Price: amount("120"), Timestamp: 2, Side: model.SideSell},
		}
	}

	s.Require().NoError(s.sched.RunProfitReport(context.Background(), TriggerCommand, 42))

	sent := s.notifier.Sent()
	s.Require().Len(sent, 2)
	names := []string{sent[0].Images[0].Name, sent[1].Images[0].Name}
	s.ElementsMatch([]string{older + ".svg", newer + ".svg"}, names)
	s.Equal(sent[0].Message, sent[1].Message)
}

func (s *SchedulerTestSuite) TestProfitReportListFailure() {
	s.src.ListErr = errors.New("backend down")
	s.Require().Error(s.sched.RunProfitReport(context.Background(), TriggerHTTP, 42))
	s.Equal("fetching", s.recorder.last().Stage)
}

func (s *SchedulerTestSuite) TestHandleCommands() {
	ctx := context.Background()
	s.src.Snapshot = snapshotAt(1, "1", "1")

	s.Empty(s.sched.HandleCommand(ctx, 7, "/balance@herald_bot"))
	s.Equal(int64(7), s.notifier.Sent()[0].ChatID)

	s.sched.Config.OnDemandChatID = 9
	s.Empty(s.sched.HandleCommand(ctx, 7, "/balance"))
	s.Equal(int64(9), s.notifier.Sent()[1].ChatID)

	s.src.Bots = []model.Bot{{Name: "hummingbot-alpha-2024.05.01_10.00", Status: "running"}}
	status := s.sched.HandleCommand(ctx, 7, "/status")
	s.Contains(status, "Stored snapshots: 2")
	s.Contains(status, "alpha (running)")
	s.Contains(status, "Last balance report:")

	s.Equal(notifier.HelpText(), s.sched.HandleCommand(ctx, 7, "hello"))
	s.Equal(notifier.HelpText(), s.sched.HandleCommand(ctx, 7, "   "))

	s.renderer.empty = true
	s.Equal("No balance history to chart yet.", s.sched.HandleCommand(ctx, 7, "/balance"))
	s.Len(s.notifier.Sent(), 2)
	s.renderer.empty = false

	s.src.SnapshotErr = errors.New("backend down")
	s.True(strings.HasPrefix(s.sched.HandleCommand(ctx, 7, "/BALANCE"), "Balance report failed"))
}

func (s *SchedulerTestSuite) TestRegister() {
	s.Require().NoError(s.sched.Register())
	s.Len(s.sched.Cron.Entries(), 1)

	disabled := s.newScheduler(config.ScheduleConfig{Cron: "0 0 9 * * *", Enabled: false})
	s.Require().NoError(disabled.Register())
	s.Empty(disabled.Cron.Entries())

	bad := s.newScheduler(config.ScheduleConfig{Cron: "every day", Enabled: true})
	s.Error(bad.Register())
}

func (s *SchedulerTestSuite) TestCronFiresBalanceReport() {
	s.src.Snapshot = snapshotAt(1, "1", "1")
	sched := s.newScheduler(config.ScheduleConfig{Cron: "* * * * * *", Enabled: true, ChatID: 3, History: 10})
	s.Require().NoError(sched.Register())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	s.Eventually(func() bool { return len(s.notifier.Sent()) > 0 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	s.NoError(<-done)
	s.Equal(int64(3), s.notifier.Sent()[0].ChatID)
}
