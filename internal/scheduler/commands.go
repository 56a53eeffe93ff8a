package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"BotHerald/internal/botname"
	"BotHerald/internal/notifier"
)

// HandleCommand processes a chat command from chatID and returns a reply.
// Reports are delivered by the report itself, so a successful /balance or
// /profit replies with nothing.
func (s *Scheduler) HandleCommand(ctx context.Context, chatID int64, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	// "/balance@herald_bot" in group chats
	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch command {
	case "/balance":
		target := chatID
		if s.Config.OnDemandChatID != 0 {
			target = s.Config.OnDemandChatID
		}
		return reportReply("Balance", s.RunBalanceReport(ctx, TriggerCommand, target))
	case "/profit":
		return reportReply("Profit", s.RunProfitReport(ctx, TriggerCommand, chatID))
	case "/status":
		return s.status(ctx)
	default:
		return notifier.HelpText()
	}
}

func reportReply(kind string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return fmt.Sprintf("%s report is already running, try again shortly.", kind)
	case errors.Is(err, ErrNothingToReport):
		return fmt.Sprintf("No %s history to chart yet.", strings.ToLower(kind))
	default:
		return fmt.Sprintf("%s report failed: %s", kind, html.EscapeString(err.Error()))
	}
}

func (s *Scheduler) status(ctx context.Context) string {
	count, err := s.Store.Count()
	if err != nil {
		s.log.Warn("count snapshots", zap.Error(err))
	}
	bots, err := s.Source.ActiveBots(ctx)
	if err != nil {
		s.log.Warn("status active bots", zap.Error(err))
		return fmt.Sprintf("Stored snapshots: %d\nActive bots unavailable: %s", count, html.EscapeString(err.Error()))
	}

	reply := notifier.FormatStatus(count, bots, botname.Display)
	last, err := s.Recorder.LastReportRun(ctx, "balance")
	if err != nil {
		s.log.Warn("last report run", zap.Error(err))
		return reply
	}
	if last.IsSome() {
		run := last.Unwrap()
		reply += fmt.Sprintf("\n\nLast balance report: %s (%s, %s)",
			run.StartedAt.UTC().Format("2006-01-02 15:04"), run.Trigger, run.Stage)
	}
	return reply
}
