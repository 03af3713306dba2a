package telegram

import (
	"context"
	"errors"
	"log"
	"strings"

	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Tracker defines the lookup the /track command needs.
type Tracker interface {
	TrackByCode(ctx context.Context, code string) (*models.Grievance, error)
}

// HandleTrackCommand answers "/track <code>" with the grievance's current
// status. Other commands are ignored.
func (n *Notifier) HandleTrackCommand(ctx context.Context, update *tgbotapi.Update, t Tracker) {
	if update.Message == nil || update.Message.Command() != "track" {
		return
	}

	var responseText string
	code := strings.TrimSpace(update.Message.CommandArguments())
	if code == "" {
		responseText = "Usage: /track <tracking code>"
	} else {
		g, err := t.TrackByCode(ctx, code)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			responseText = "No grievance with tracking code " + strings.ToUpper(code)
		case err != nil:
			log.Printf("ERROR: /track lookup for %s failed: %v", code, err)
			responseText = "An error occurred while processing your request."
		default:
			responseText = g.TrackingID + ": " + g.Title + "\n" + n.Localizer.StatusLabel(n.Lang, string(g.CurrentStatus))
		}
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, responseText)
	msg.ReplyToMessageID = update.Message.MessageID
	if _, err := n.Bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to answer /track: %v", err)
	}
}

// Listen dispatches bot updates to HandleTrackCommand until ctx is done.
func (n *Notifier) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel, t Tracker) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			n.HandleTrackCommand(ctx, &update, t)
		}
	}
}
