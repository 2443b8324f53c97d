// internal/infra/telegram/ops_notifier.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance_notifier/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// OpsNotifier posts run summaries to an operations chat so a human sees
// timeouts and transport failures without watching dashboards. Send
// failures are logged and dropped; the summary is also returned to the
// HTTP caller, so this channel is best-effort by design.
type OpsNotifier struct {
	bot    *telebot.Bot
	chatID int64
	logger *logrus.Entry
}

func NewOpsNotifier(token string, chatID int64, logger *logrus.Entry) (*OpsNotifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create ops bot: %w", err)
	}
	return &OpsNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *OpsNotifier) NotifyRunSummary(ctx context.Context, summary *app.RunSummary) {
	var b strings.Builder
	fmt.Fprintf(&b, "Notification run %s\n", summary.RunID)
	fmt.Fprintf(&b, "reminders: %d, due today: %d, overdue: %d\n",
		len(summary.RemindersSent), len(summary.DueTodayAlerts), len(summary.OverdueAlerts))
	fmt.Fprintf(&b, "duration: %s", time.Duration(summary.DurationMS)*time.Millisecond)
	if summary.TimedOut {
		b.WriteString("\n⚠️ run hit its wall-clock budget")
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintf(&b, "\n🚨 %d errors, first: %s", len(summary.Errors), summary.Errors[0])
	}

	if _, err := n.bot.Send(telebot.ChatID(n.chatID), b.String()); err != nil {
		n.logger.Errorf("Failed to send run summary to ops chat: %v", err)
	}
}
