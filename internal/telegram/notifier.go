// Package telegram posts grievance status events to an administrators'
// Telegram chat and answers /track commands sent there.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sampark/backend/internal/localization"
	"sampark/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const queueSize = 100

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier реалізує grievance.EventPublisher
type Notifier struct {
	Bot       Sender
	ChatID    int64
	Localizer *localization.Localizer
	Lang      string

	queue chan models.StatusEvent
}

// NewNotifier authorizes the bot token against the Telegram API.
func NewNotifier(token string, chatID int64, loc *localization.Localizer, lang string) (*Notifier, *tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, nil, err
	}
	bot.Debug = false
	log.Printf("INFO: Telegram notifier authorized on account %s", bot.Self.UserName)
	return New(bot, chatID, loc, lang), bot, nil
}

func New(bot Sender, chatID int64, loc *localization.Localizer, lang string) *Notifier {
	return &Notifier{
		Bot:       bot,
		ChatID:    chatID,
		Localizer: loc,
		Lang:      lang,
		queue:     make(chan models.StatusEvent, queueSize),
	}
}

// Publish queues ev without blocking; a full queue drops the event.
func (n *Notifier) Publish(_ context.Context, ev models.StatusEvent) error {
	select {
	case n.queue <- ev:
		return nil
	default:
		return fmt.Errorf("telegram queue full, dropped %s for %s", ev.Status, ev.TrackingID)
	}
}

// Run є write pump: надсилає події з черги, доки ctx не завершиться.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.send(ev)
		}
	}
}

// Flush sends everything already queued and returns when the queue is
// empty. Short-lived processes call it instead of Run.
func (n *Notifier) Flush(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.send(ev)
		default:
			return
		}
	}
}

func (n *Notifier) send(ev models.StatusEvent) {
	msg := tgbotapi.NewMessage(n.ChatID, n.Text(ev))
	if _, err := n.Bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram notification for %s: %v", ev.TrackingID, err)
	}
}

// Text renders ev in the notifier's language.
func (n *Notifier) Text(ev models.StatusEvent) string {
	var b strings.Builder
	if ev.Status == models.StatusSubmitted {
		category := n.Localizer.GetString(n.Lang, "category."+strings.ToLower(string(ev.Category)))
		b.WriteString(n.Localizer.Format(n.Lang, "notify.submitted", ev.TrackingID, ev.Title, category))
	} else {
		status := n.Localizer.StatusLabel(n.Lang, string(ev.Status))
		b.WriteString(n.Localizer.Format(n.Lang, "notify.transition", ev.TrackingID, status))
		if ev.Comment != "" {
			b.WriteString("\n")
			b.WriteString(n.Localizer.Format(n.Lang, "notify.comment", ev.Comment))
		}
	}
	return b.String()
}
