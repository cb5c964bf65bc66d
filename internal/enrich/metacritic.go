package enrich

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
)

const (
	metacriticBaseURL   = "https://www.metacritic.com"
	metacriticSearchURL = "https://www.metacritic.com/search/%s/"
)

var userScoreRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Metacritic scrapes critic and user scores for an offer. Mobile apps
// rarely have a page there, a miss is normal and not an error.
type Metacritic struct {
	fetcher *fetcher.Fetcher
	log     *slog.Logger
}

func NewMetacritic(f *fetcher.Fetcher, log *slog.Logger) *Metacritic {
	return &Metacritic{fetcher: f, log: log}
}

func (m *Metacritic) Name() string { return "metacritic" }

func (m *Metacritic) Enrich(ctx context.Context, offer *model.Offer) error {
	if offer.CleanedTitle == "" || offer.MetaScore != nil {
		return nil
	}

	pageURL, err := m.findGamePage(ctx, offer.CleanedTitle)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if pageURL == "" {
		m.log.Debug("no metacritic page found", "title", offer.CleanedTitle)
		return nil
	}

	body, err := m.fetcher.Fetch(ctx, fetcher.Request{URL: pageURL})
	if err != nil {
		return fmt.Errorf("game page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse game page: %w", err)
	}

	if text := strings.TrimSpace(doc.Find(`[data-testid="metascore-value"]`).First().Text()); text != "" {
		if score, err := strconv.Atoi(text); err == nil {
			offer.MetaScore = &score
		}
	}
	if text := strings.TrimSpace(doc.Find(`div[data-testid="userscore-value"] > span`).First().Text()); userScoreRe.MatchString(text) {
		if score, err := strconv.ParseFloat(text, 64); err == nil {
			offer.UserScore = &score
		}
	}
	return nil
}

// findGamePage returns the URL of the first game result, or "" when the
// search has no game hits.
func (m *Metacritic) findGamePage(ctx context.Context, title string) (string, error) {
	query := strings.Join(strings.Fields(title), " ")
	if query == "" {
		return "", nil
	}

	searchURL := fmt.Sprintf(metacriticSearchURL, url.PathEscape(query))
	body, err := m.fetcher.Fetch(ctx, fetcher.Request{URL: searchURL})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse search results: %w", err)
	}

	href, ok := doc.Find(`#main-content a[href^="/game/"]`).First().Attr("href")
	if !ok {
		return "", nil
	}
	return metacriticBaseURL + href, nil
}
