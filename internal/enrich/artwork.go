package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
)

const itunesSearchURL = "https://itunes.apple.com/search?term=%s&entity=software&limit=1"

// artworkTTL keeps lookups cached for a month, cover art rarely changes.
const artworkTTL = 30 * 24 * time.Hour

// imageHostBlacklist lists hosts that only ever serve placeholders or
// avatars, never cover art.
var imageHostBlacklist = []string{"placehold.co", "gravatar.com", "avatar.com"}

// Artwork finds cover art for offers that arrived without one, first
// through the iTunes search API for App Store games and then by reading
// the usual meta tags off the deal page itself.
type Artwork struct {
	fetcher *fetcher.Fetcher
	log     *slog.Logger
}

func NewArtwork(f *fetcher.Fetcher, log *slog.Logger) *Artwork {
	return &Artwork{fetcher: f, log: log}
}

func (a *Artwork) Name() string { return "artwork" }

func (a *Artwork) Enrich(ctx context.Context, offer *model.Offer) error {
	if usableImage(offer.ImageURL) {
		return nil
	}

	if offer.Store == model.StoreIOSAppStore && offer.CleanedTitle != "" {
		found, err := a.fromITunes(ctx, offer.CleanedTitle)
		if err != nil {
			a.log.Debug("itunes artwork lookup failed", "title", offer.CleanedTitle, "error", err)
		}
		if usableImage(found) {
			offer.ImageURL = found
			return nil
		}
	}

	if offer.URL != "" {
		found, err := a.fromMetaTags(ctx, offer.URL)
		if err != nil {
			return fmt.Errorf("scrape deal page: %w", err)
		}
		if usableImage(found) {
			offer.ImageURL = found
			return nil
		}
	}

	a.log.Debug("no artwork found", "title", offer.CleanedTitle)
	return nil
}

// fromITunes resolves App Store artwork through the public search API.
func (a *Artwork) fromITunes(ctx context.Context, title string) (string, error) {
	searchURL := fmt.Sprintf(itunesSearchURL, url.QueryEscape(title))
	body, err := a.fetcher.Fetch(ctx, fetcher.Request{URL: searchURL, Structured: true, TTL: artworkTTL})
	if err != nil {
		return "", err
	}

	var resp struct {
		ResultCount int `json:"resultCount"`
		Results     []struct {
			ArtworkURL512 string `json:"artworkUrl512"`
			ArtworkURL100 string `json:"artworkUrl100"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode itunes response: %w", err)
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return "", nil
	}
	if art := resp.Results[0].ArtworkURL512; art != "" {
		return art, nil
	}
	return resp.Results[0].ArtworkURL100, nil
}

// fromMetaTags pulls the page's own social preview image.
func (a *Artwork) fromMetaTags(ctx context.Context, pageURL string) (string, error) {
	body, err := a.fetcher.Fetch(ctx, fetcher.Request{URL: pageURL, TTL: artworkTTL})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse deal page: %w", err)
	}

	selectors := []struct {
		query string
		attr  string
	}{
		{`meta[property="og:image"]`, "content"},
		{`meta[name="twitter:image"]`, "content"},
		{`link[rel="apple-touch-icon"]`, "href"},
	}
	for _, sel := range selectors {
		if v, ok := doc.Find(sel.query).First().Attr(sel.attr); ok && usableImage(v) {
			return v, nil
		}
	}
	return "", nil
}

func usableImage(imageURL string) bool {
	if !strings.HasPrefix(imageURL, "http") {
		return false
	}
	for _, host := range imageHostBlacklist {
		if strings.Contains(imageURL, host) {
			return false
		}
	}
	return true
}
