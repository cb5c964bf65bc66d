// Package bot delivers free game announcements to subscribed Telegram chats.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"freegames_bot/internal/model"
	"freegames_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher fans a single offer out to every chat subscribed to the
// offer's store or to all stores.
type Dispatcher struct {
	api   telegramAPI
	store storage.Storage
	log   *slog.Logger
	delay time.Duration
}

// New creates a Dispatcher with the given Telegram token and storage.
func New(token string, store storage.Storage, log *slog.Logger) (*Dispatcher, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Dispatcher{
		api:   api,
		store: store,
		log:   log,
		delay: 50 * time.Millisecond,
	}, nil
}

// Dispatch sends the offer to every subscribed chat and reports how many
// sends succeeded. It returns an error only when there were targets and
// none of them could be reached, a partial delivery still counts.
func (d *Dispatcher) Dispatch(ctx context.Context, offer model.Offer) (int, error) {
	targets, err := d.store.TargetsForStore(ctx, offer.Store)
	if err != nil {
		return 0, fmt.Errorf("list targets: %w", err)
	}
	if len(targets) == 0 {
		d.log.Debug("no subscribers for store", "store", offer.Store, "title", offer.CleanedTitle)
		return 0, nil
	}

	text := FormatOffer(offer)

	sent := 0
	var errs []error
	for _, chatID := range targets {
		if ctx.Err() != nil {
			break
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := d.api.Send(msg); err != nil {
			d.log.Error("send message", "chat_id", chatID, "error", err)
			errs = append(errs, err)
			continue
		}
		sent++

		// Rate limit: ~20 messages/sec max for Telegram
		time.Sleep(d.delay)
	}

	if sent == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return sent, nil
}
