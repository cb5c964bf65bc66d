// Package scheduler drives the polling pipeline: fetch offers from every
// source, canonicalize and classify them, drop duplicates, enrich what
// is new and hand it to the dispatcher.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"freegames_bot/internal/canonical"
	"freegames_bot/internal/classify"
	"freegames_bot/internal/dedup"
	"freegames_bot/internal/enrich"
	"freegames_bot/internal/model"
	"freegames_bot/internal/source"
)

// Dispatcher is the interface for delivering one offer to its audience.
type Dispatcher interface {
	Dispatch(ctx context.Context, offer model.Offer) (int, error)
}

// Scheduler periodically polls all sources and pushes new offers through
// the pipeline.
type Scheduler struct {
	sources    []source.Adapter
	dedup      *dedup.Filter
	stage      *enrich.Stage
	dispatcher Dispatcher
	exportPath string
	log        *slog.Logger
	tick       time.Duration
}

// New creates a Scheduler. A nil dispatcher disables notifications, the
// pipeline still polls and exports.
func New(sources []source.Adapter, filter *dedup.Filter, stage *enrich.Stage, dispatcher Dispatcher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		sources:    sources,
		dedup:      filter,
		stage:      stage,
		dispatcher: dispatcher,
		log:        log,
		tick:       30 * time.Minute,
	}
}

// SetTickInterval overrides the default 30-minute polling interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetExportPath enables writing each cycle's offers to a JSON file.
func (s *Scheduler) SetExportPath(path string) {
	s.exportPath = path
}

// Run starts the polling loop, blocking until ctx is cancelled. The
// first cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	offers := s.collect(ctx)
	if len(offers) == 0 {
		s.log.Info("no offers found this cycle")
		return
	}

	for i := range offers {
		normalize(&offers[i])
	}

	batch := s.dedup.Collapse(offers)

	eligible := make([]model.Offer, 0, len(batch))
	for _, o := range batch {
		if !o.IsFree || o.IsDLC {
			s.log.Debug("skipping ineligible offer",
				"title", o.CleanedTitle, "free", o.IsFree, "dlc", o.IsDLC)
			continue
		}
		eligible = append(eligible, o)
	}

	fresh := s.dedup.Admit(ctx, eligible)
	s.log.Info("cycle summary",
		"collected", len(offers),
		"unique", len(batch),
		"eligible", len(eligible),
		"new", len(fresh))

	if len(fresh) > 0 {
		s.stage.Run(ctx, fresh)
		s.dispatch(ctx, fresh)
	}

	if s.exportPath != "" {
		if err := s.exportSnapshot(batch, fresh); err != nil {
			s.log.Error("export snapshot", "path", s.exportPath, "error", err)
		}
	}
}

// collect fetches all sources concurrently. results keeps the configured
// adapter order, so collapse winners stay deterministic.
func (s *Scheduler) collect(ctx context.Context) []model.Offer {
	results := make([][]model.Offer, len(s.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, adapter := range s.sources {
		g.Go(func() error {
			found, err := adapter.FetchOffers(ctx)
			if err != nil {
				s.log.Error("fetch source", "source", adapter.Name(), "error", err)
				return nil
			}
			s.log.Info("fetched source", "source", adapter.Name(), "offers", len(found))
			results[i] = found
			return nil
		})
	}

	// Adapters log their own failures and never return errors.
	_ = g.Wait()

	var offers []model.Offer
	for _, found := range results {
		offers = append(offers, found...)
	}
	return offers
}

func (s *Scheduler) dispatch(ctx context.Context, offers []model.Offer) {
	if s.dispatcher == nil {
		s.log.Warn("no dispatcher configured, skipping notifications", "offers", len(offers))
		return
	}

	for _, o := range offers {
		if ctx.Err() != nil {
			return
		}

		sent, err := s.dispatcher.Dispatch(ctx, o)
		if err != nil {
			s.log.Error("dispatch offer", "key", o.CanonicalKey, "error", err)
			continue
		}
		if sent == 0 {
			continue
		}

		if err := s.dedup.MarkDelivered(ctx, o); err != nil {
			s.log.Error("record delivery", "key", o.CanonicalKey, "error", err)
		}
		s.log.Info("dispatched offer", "title", o.CleanedTitle, "store", o.Store, "chats", sent)
	}
}

// normalize derives the computed fields every later stage relies on.
// Store detection and DLC classification read the raw title, cleaning
// strips the bracketed hints they key on.
func normalize(o *model.Offer) {
	if o.CleanedTitle == "" {
		o.CleanedTitle = canonical.CleanTitle(o.RawTitle)
	}
	o.Store = canonical.ResolveStore(*o)
	o.IsDLC = classify.IsDLC(o.RawTitle)
	if o.CanonicalKey == "" {
		o.CanonicalKey = canonical.Key(o.URL)
	}
}
