package notifier

import (
	"fmt"
	"html"
	"strings"

	"BotHerald/internal/model"
)

// FormatTrade formats a new-trade announcement for botName.
func FormatTrade(botName string, ev model.TradeEvent) string {
	icon := "🟢"
	if ev.Side == model.SideSell {
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>New trade</b>\n", icon)
	fmt.Fprintf(&b, "%s %s\n\n", ev.Side, html.EscapeString(ev.Pair()))
	fmt.Fprintf(&b, "Bot: %s\n", html.EscapeString(botName))
	fmt.Fprintf(&b, "Amount: %s\n", ev.Amount.String())
	fmt.Fprintf(&b, "Price: %s %s", ev.Price.String(), html.EscapeString(ev.QuoteAsset))
	return b.String()
}

// FormatProfitCaption is the caption sent with a bot's profit chart.
func FormatProfitCaption(botName string) string {
	return fmt.Sprintf("Profit chart for <b>%s</b>", html.EscapeString(botName))
}

// FormatStatus formats the store size and the active bots with their PNL.
// names maps raw bot names to display names.
func FormatStatus(snapshots int, bots []model.Bot, names func(string) string) string {
	var b strings.Builder
	b.WriteString("📦 <b>Status</b>\n\n")
	fmt.Fprintf(&b, "Stored snapshots: %d\n", snapshots)
	if len(bots) == 0 {
		b.WriteString("Active bots: none")
		return b.String()
	}
	fmt.Fprintf(&b, "Active bots: %d\n", len(bots))
	for _, bot := range bots {
		fmt.Fprintf(&b, "\n• %s (%s)\n", html.EscapeString(names(bot.Name)), html.EscapeString(bot.Status))
		fmt.Fprintf(&b, "  PNL: %s quote, %d controllers", bot.GlobalPNL.Quote.StringFixed(4), len(bot.Controllers))
	}
	return b.String()
}

// HelpText lists the supported chat commands.
func HelpText() string {
	return `Commands:
/balance - balance report for every account
/profit - cumulative profit chart per bot
/status - stored snapshots and active bots
/help - this message`
}
