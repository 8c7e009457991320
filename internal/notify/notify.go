// Package notify pushes run-completion summaries to Telegram.
package notify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"iperfmon/internal/storage"
	logx "iperfmon/pkg/logx"
)

// Notifier delivers a summary of a finished run.
type Notifier interface {
	RunCompleted(r storage.RunRecord) error
}

type Telegram struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func NewTelegram(token string, chatID int64, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		// Send-only; no poller.
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID, log: log}, nil
}

func (t *Telegram) RunCompleted(r storage.RunRecord) error {
	msg := FormatRun(r)
	_, err := t.bot.Send(tele.ChatID(t.chatID), msg)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Debug("run summary sent", logx.Int64("chat_id", t.chatID))
	return nil
}

// FormatRun renders a run record as a plain-text message.
func FormatRun(r storage.RunRecord) string {
	var b strings.Builder
	switch r.Kind {
	case "latency":
		fmt.Fprintf(&b, "Ping finished: %s\n", r.Host)
	default:
		fmt.Fprintf(&b, "Speed test finished: %s\n", r.Host)
	}
	if !r.At.IsZero() {
		fmt.Fprintf(&b, "At: %s\n", r.At.Format(time.RFC3339))
	}
	if r.DurationSec > 0 {
		fmt.Fprintf(&b, "Duration: %.0fs\n", r.DurationSec)
	}

	names := make([]string, 0, len(r.Series))
	for name := range r.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.Series[name]
		unit := "Mbps"
		if r.Kind == "latency" {
			unit = "ms"
		}
		fmt.Fprintf(&b, "%s: avg %.1f %s (min %.1f, max %.1f, n=%d)\n",
			name, s.Avg, unit, s.Min, s.Max, s.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}
