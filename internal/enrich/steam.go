package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
)

const (
	steamSearchURL     = "https://store.steampowered.com/search/?term=%s&category1=998"
	steamAppDetailsURL = "https://store.steampowered.com/api/appdetails?appids=%s&cc=us&l=english"
)

// steamSearchStores are the stores whose giveaways are usually PC games,
// so a title search on Steam has a realistic chance of a hit.
var steamSearchStores = map[model.StoreTag]bool{
	model.StoreSteam:     true,
	model.StoreEpicGames: true,
	model.StoreGOG:       true,
	model.StoreOther:     true,
	model.StoreReddit:    true,
	model.StoreHumble:    true,
	model.StoreFanatical: true,
	model.StoreMicrosoft: true,
	model.StoreAmazon:    true,
	model.StoreBlizzard:  true,
	model.StoreEA:        true,
	model.StoreUbisoft:   true,
	model.StoreItchIO:    true,
	model.StoreIndieGala: true,
	model.StoreStove:     true,
}

var multiplayerCategories = map[string]bool{
	"Multi-player":        true,
	"Online Multi-Player": true,
	"Co-op":               true,
	"Online Co-op":        true,
}

var onlineCategories = map[string]bool{
	"Online Multi-Player": true,
	"Online Co-op":        true,
}

var steamAppURLRe = regexp.MustCompile(`steampowered\.com/app/(\d+)`)

// Steam looks an offer up on the Steam storefront and copies over
// description, artwork, genres, player modes, trailer and review data.
type Steam struct {
	fetcher *fetcher.Fetcher
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewSteam(f *fetcher.Fetcher, log *slog.Logger) *Steam {
	return &Steam{
		fetcher: f,
		// The storefront throttles bursts hard, one request per second
		// keeps a full batch under the radar.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log,
	}
}

func (s *Steam) Name() string { return "steam" }

func (s *Steam) Enrich(ctx context.Context, offer *model.Offer) error {
	if offer.CleanedTitle == "" {
		return nil
	}

	appID := offer.SteamAppID
	if appID == "" {
		appID = appIDFromURL(offer.URL)
	}
	if appID == "" {
		if !steamSearchStores[offer.Store] {
			return nil
		}
		var err error
		appID, err = s.findAppID(ctx, offer.CleanedTitle)
		if err != nil {
			return fmt.Errorf("search app id: %w", err)
		}
	}
	if appID == "" {
		s.log.Debug("no steam app id found", "title", offer.CleanedTitle)
		return nil
	}
	offer.SteamAppID = appID

	details, err := s.appDetails(ctx, appID)
	if err != nil {
		return fmt.Errorf("app details for %s: %w", appID, err)
	}
	if details == nil {
		s.log.Debug("steam app details unavailable", "app_id", appID)
		return nil
	}

	apply(offer, details)
	return nil
}

// appIDFromURL recognizes offers that already point at a Steam app page.
func appIDFromURL(rawURL string) string {
	if m := steamAppURLRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// findAppID scrapes the store search for the first matching app. An
// empty result with a nil error means the title is not on Steam.
func (s *Steam) findAppID(ctx context.Context, title string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	searchURL := fmt.Sprintf(steamSearchURL, url.QueryEscape(title))
	body, err := s.fetcher.Fetch(ctx, fetcher.Request{URL: searchURL})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse search results: %w", err)
	}

	appID, _ := doc.Find("a.search_result_row[data-ds-appid]").First().Attr("data-ds-appid")
	// Bundle rows list several ids separated by commas, the first one is
	// the main app.
	if i := strings.IndexByte(appID, ','); i >= 0 {
		appID = appID[:i]
	}
	return appID, nil
}

type steamAppDetails struct {
	AboutTheGame string `json:"about_the_game"`
	HeaderImage  string `json:"header_image"`
	Genres       []struct {
		Description string `json:"description"`
	} `json:"genres"`
	Categories []struct {
		Description string `json:"description"`
	} `json:"categories"`
	Movies []struct {
		Webm map[string]string `json:"webm"`
	} `json:"movies"`
	RequiredAge        json.RawMessage `json:"required_age"`
	ContentDescriptors struct {
		Notes string `json:"notes"`
	} `json:"content_descriptors"`
	Recommendations struct {
		Total    int  `json:"total"`
		Positive *int `json:"positive"`
	} `json:"recommendations"`
}

// requiredAge tolerates the API returning the age as either a number or
// a quoted string.
func (d *steamAppDetails) requiredAge() int {
	s := strings.Trim(string(d.RequiredAge), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (s *Steam) appDetails(ctx context.Context, appID string) (*steamAppDetails, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	detailsURL := fmt.Sprintf(steamAppDetailsURL, appID)
	body, err := s.fetcher.Fetch(ctx, fetcher.Request{URL: detailsURL, Structured: true})
	if err != nil {
		return nil, err
	}

	var resp map[string]struct {
		Success bool            `json:"success"`
		Data    steamAppDetails `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode app details: %w", err)
	}

	entry, ok := resp[appID]
	if !ok || !entry.Success {
		return nil, nil
	}
	return &entry.Data, nil
}

func apply(offer *model.Offer, d *steamAppDetails) {
	if desc := htmlText(d.AboutTheGame); desc != "" {
		offer.Description = desc
	}
	if d.HeaderImage != "" {
		offer.ImageURL = d.HeaderImage
	}

	for _, g := range d.Genres {
		offer.Genres = appendUnique(offer.Genres, g.Description)
	}

	for _, c := range d.Categories {
		if multiplayerCategories[c.Description] {
			offer.IsMultiplayer = true
		}
		if onlineCategories[c.Description] {
			offer.IsOnline = true
		}
	}

	if len(d.Movies) > 0 {
		webm := d.Movies[0].Webm
		for _, quality := range []string{"max", "480", "250"} {
			if u := webm[quality]; u != "" {
				offer.TrailerURL = u
				break
			}
		}
	}

	if notes := strings.TrimSpace(d.ContentDescriptors.Notes); notes != "" {
		offer.AgeRating = notes
	} else if age := d.requiredAge(); age > 0 {
		offer.AgeRating = strconv.Itoa(age)
	}

	if positive := d.Recommendations.Positive; positive != nil && d.Recommendations.Total > 0 {
		score := int(math.Round(float64(*positive) / float64(d.Recommendations.Total) * 100))
		count := d.Recommendations.Total
		offer.ReviewScore = &score
		offer.ReviewCount = &count
	}
}

func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// htmlText flattens an HTML fragment to its visible text.
func htmlText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Text(), " "))
}

var whitespaceRe = regexp.MustCompile(`\s+`)
