// Package source contains the adapters that discover offers upstream.
//
// Each adapter speaks one feed or API and normalizes what it finds into
// model.Offer values. An adapter returns an error only when its source is
// entirely unavailable; individual broken records are skipped and logged,
// never fatal.
package source

import (
	"context"
	"log/slog"

	"freegames_bot/internal/model"
	"freegames_bot/internal/validate"
)

// Adapter discovers offers from one upstream source.
type Adapter interface {
	Name() string
	FetchOffers(ctx context.Context) ([]model.Offer, error)
}

// keepValid drops offers that fail struct validation, logging each one.
// A record with no title or URL is a data anomaly, not a source failure.
func keepValid(offers []model.Offer, val *validate.Validator, log *slog.Logger, source string) []model.Offer {
	kept := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if err := val.Struct(o); err != nil {
			log.Warn("skipping invalid offer", "source", source, "title", o.RawTitle, "error", err)
			continue
		}
		kept = append(kept, o)
	}
	return kept
}
