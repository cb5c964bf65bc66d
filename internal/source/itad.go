package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
	"freegames_bot/internal/validate"
)

// The filter parameter narrows the feed to heavy discounts; it is the
// site's own encoding of a saved deal filter.
const itadFeedURL = "https://isthereanydeal.com/feeds/US/USD/deals.rss?filter=N4IgDgTglgxgpiAXKAtlAdk9BXANrgGhBQEMAPJABgF8iAXATzAUQG0BGAXWqA%253D%253D"

// The deals feed moves fast, so it is cached much shorter than the
// fetcher default.
const itadCacheTTL = 15 * time.Minute

// ITAD consumes the IsThereAnyDeal aggregated deals feed. Each RSS item
// wraps the store name, deal link and discount inside its description
// markup.
type ITAD struct {
	fetcher *fetcher.Fetcher
	feedURL string
	val     *validate.Validator
	log     *slog.Logger
}

// NewITAD creates the IsThereAnyDeal adapter.
func NewITAD(f *fetcher.Fetcher, val *validate.Validator, log *slog.Logger) *ITAD {
	return &ITAD{fetcher: f, feedURL: itadFeedURL, val: val, log: log}
}

// Name identifies the adapter in logs.
func (a *ITAD) Name() string { return "itad" }

// FetchOffers downloads and splits the deals feed.
func (a *ITAD) FetchOffers(ctx context.Context) ([]model.Offer, error) {
	body, err := a.fetcher.Fetch(ctx, fetcher.Request{URL: a.feedURL, TTL: itadCacheTTL})
	if err != nil {
		return nil, fmt.Errorf("fetch deals feed: %w", err)
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse deals feed: %w", err)
	}

	var offers []model.Offer
	for _, item := range feed.Items {
		o, ok := a.itemOffer(item)
		if !ok {
			continue
		}
		offers = append(offers, o)
	}
	return keepValid(offers, a.val, a.log, a.Name()), nil
}

func (a *ITAD) itemOffer(item *gofeed.Item) (model.Offer, bool) {
	if item.Title == "" || item.GUID == "" || item.Description == "" {
		a.log.Warn("skipping deal item with missing fields", "title", item.Title)
		return model.Offer{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		a.log.Warn("failed to parse deal description", "title", item.Title, "error", err)
		return model.Offer{}, false
	}

	// The first <i> holds the cut, e.g. "(-100%)".
	cut := strings.Trim(strings.TrimSpace(doc.Find("i").First().Text()), "()")
	isFree := strings.Contains(cut, "-100%")
	discount := strings.TrimPrefix(cut, "-")
	if isFree {
		discount = "100% Off"
	}

	// The first <a> names the store and links to the deal.
	anchor := doc.Find("a").First()
	dealURL, _ := anchor.Attr("href")
	if dealURL == "" {
		dealURL = item.Link
	}

	return model.Offer{
		SourceID:      "itad_" + item.GUID,
		Source:        "isthereanydeal",
		RawTitle:      item.Title,
		URL:           dealURL,
		DeclaredStore: strings.TrimSpace(anchor.Text()),
		IsFree:        isFree,
		DiscountText:  discount,
	}, true
}
