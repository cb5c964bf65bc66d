// Package dedup collapses duplicate offers and suppresses recent repeats.
//
// Deduplication happens in two stages. Collapse folds one polling batch
// onto itself, so four feeds reporting the same giveaway produce one
// offer. Admit then drops whatever was already dispatched inside the
// delivery window. An offer is recorded as delivered only after a chat
// actually accepted it, so a failed dispatch stays eligible for the next
// cycle.
package dedup

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"freegames_bot/internal/canonical"
	"freegames_bot/internal/model"
)

// DeliveryLog is the slice of storage the filter needs: which canonical
// keys were dispatched and when.
type DeliveryLog interface {
	DeliveredSince(ctx context.Context, key string, since time.Time) (bool, error)
	RecordDelivery(ctx context.Context, key string, at time.Time) error
}

// DefaultWindow is how long an offer stays suppressed after a dispatch.
// Storefronts recycle giveaways, so the window is finite.
const DefaultWindow = 30 * 24 * time.Hour

// Filter enforces offer uniqueness within a batch and across cycles.
type Filter struct {
	history DeliveryLog
	window  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Filter over the given delivery history. A non-positive
// window falls back to DefaultWindow.
func New(history DeliveryLog, window time.Duration, log *slog.Logger) *Filter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Filter{
		history: history,
		window:  window,
		log:     log,
		now:     time.Now,
	}
}

// Collapse removes in-batch duplicates. The first occurrence of a key
// wins and keeps its position; later occurrences only fill in fields the
// winner is missing. Every returned offer has CanonicalKey set.
func (f *Filter) Collapse(offers []model.Offer) []model.Offer {
	out := make([]model.Offer, 0, len(offers))
	index := make(map[string]int, len(offers))

	for _, o := range offers {
		if o.CanonicalKey == "" {
			o.CanonicalKey = canonical.Key(o.URL)
		}
		if i, ok := index[o.CanonicalKey]; ok {
			fillMissing(&out[i], o)
			continue
		}
		index[o.CanonicalKey] = len(out)
		out = append(out, o)
	}
	return out
}

func fillMissing(dst *model.Offer, src model.Offer) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.DiscountText == "" {
		dst.DiscountText = src.DiscountText
	}
	if dst.TrailerURL == "" {
		dst.TrailerURL = src.TrailerURL
	}
	// Placeholder art counts as missing.
	if src.ImageURL != "" && (dst.ImageURL == "" || strings.Contains(dst.ImageURL, "placehold.co")) {
		dst.ImageURL = src.ImageURL
	}
	if dst.StartsAt == nil {
		dst.StartsAt = src.StartsAt
	}
	if dst.EndsAt == nil {
		dst.EndsAt = src.EndsAt
	}
}

// Admit returns the offers whose canonical key has no delivery inside the
// window. A history read error suppresses the offer: staying silent once
// beats repeating a notification.
func (f *Filter) Admit(ctx context.Context, offers []model.Offer) []model.Offer {
	cutoff := f.now().Add(-f.window)
	admitted := make([]model.Offer, 0, len(offers))

	for _, o := range offers {
		if o.CanonicalKey == "" {
			o.CanonicalKey = canonical.Key(o.URL)
		}
		delivered, err := f.history.DeliveredSince(ctx, o.CanonicalKey, cutoff)
		if err != nil {
			f.log.Error("failed to check delivery history", "key", o.CanonicalKey, "error", err)
			continue
		}
		if delivered {
			f.log.Debug("suppressing recently delivered offer", "key", o.CanonicalKey)
			continue
		}
		admitted = append(admitted, o)
	}
	return admitted
}

// MarkDelivered records o as dispatched now. Call it only after at least
// one chat accepted the message.
func (f *Filter) MarkDelivered(ctx context.Context, o model.Offer) error {
	key := o.CanonicalKey
	if key == "" {
		key = canonical.Key(o.URL)
	}
	return f.history.RecordDelivery(ctx, key, f.now())
}
