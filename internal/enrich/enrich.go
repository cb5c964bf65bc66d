// Package enrich fills in missing offer details from supplementary
// sources such as the Steam storefront, Metacritic and translation APIs.
package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"freegames_bot/internal/model"
)

// Enricher adds detail to a single offer in place. Enrichment is best
// effort: an error means this enricher contributed nothing to the offer,
// the offer itself stays valid.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, offer *model.Offer) error
}

// Stage applies an ordered list of enrichers to a batch of offers.
// Offers are processed concurrently, the enrichers for a single offer
// run in order because later enrichers read fields earlier ones fill.
type Stage struct {
	enrichers []Enricher
	limit     int
	log       *slog.Logger
}

func NewStage(log *slog.Logger, enrichers ...Enricher) *Stage {
	return &Stage{
		enrichers: enrichers,
		limit:     4,
		log:       log,
	}
}

// SetConcurrency bounds how many offers are enriched at the same time.
func (s *Stage) SetConcurrency(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Run enriches all offers in place. Failures are logged and never abort
// the batch, a partially enriched offer is still worth announcing.
func (s *Stage) Run(ctx context.Context, offers []model.Offer) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for i := range offers {
		g.Go(func() error {
			for _, e := range s.enrichers {
				if ctx.Err() != nil {
					return nil
				}
				if err := e.Enrich(ctx, &offers[i]); err != nil {
					s.log.Warn("enrichment failed",
						"enricher", e.Name(),
						"title", offers[i].CleanedTitle,
						"error", err)
				}
			}
			return nil
		})
	}

	// Workers log their own failures and always return nil.
	_ = g.Wait()
}
