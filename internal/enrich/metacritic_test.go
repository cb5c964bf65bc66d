package enrich

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"freegames_bot/internal/model"
)

func TestMetacriticEnrich(t *testing.T) {
	searchURL := fmt.Sprintf(metacriticSearchURL, url.PathEscape("Portal 2"))
	pageURL := metacriticBaseURL + "/game/portal-2/"
	transport := &routeTransport{routes: map[string]string{
		searchURL: loadFixture(t, "../../testdata/metacritic_search.html"),
		pageURL:   loadFixture(t, "../../testdata/metacritic_game.html"),
	}}
	mc := NewMetacritic(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{CleanedTitle: "Portal 2"}
	if err := mc.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if offer.MetaScore == nil || *offer.MetaScore != 95 {
		t.Errorf("MetaScore = %v, want 95", offer.MetaScore)
	}
	if offer.UserScore == nil || *offer.UserScore != 8.8 {
		t.Errorf("UserScore = %v, want 8.8", offer.UserScore)
	}
}

func TestMetacriticSkipsWhenAlreadyScored(t *testing.T) {
	transport := &routeTransport{routes: map[string]string{}}
	mc := NewMetacritic(newEnrichFetcher(t, transport), testLogger())

	score := 80
	offer := model.Offer{CleanedTitle: "Portal 2", MetaScore: &score}
	if err := mc.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(transport.calls) != 0 {
		t.Errorf("got %d requests, want none for an already scored offer", len(transport.calls))
	}
}

func TestMetacriticNoGameResults(t *testing.T) {
	searchURL := fmt.Sprintf(metacriticSearchURL, url.PathEscape("Totally Unknown Title"))
	transport := &routeTransport{routes: map[string]string{
		searchURL: `<html><body><div id="main-content"><p class="no-results">No search results found.</p></div></body></html>`,
	}}
	mc := NewMetacritic(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{CleanedTitle: "Totally Unknown Title"}
	if err := mc.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if offer.MetaScore != nil || offer.UserScore != nil {
		t.Errorf("scores set without a game page, MetaScore = %v, UserScore = %v",
			offer.MetaScore, offer.UserScore)
	}
	if len(transport.calls) != 1 {
		t.Errorf("got %d requests, want only the search", len(transport.calls))
	}
}

func TestMetacriticIgnoresNonNumericScores(t *testing.T) {
	searchURL := fmt.Sprintf(metacriticSearchURL, url.PathEscape("Fresh Release"))
	pageURL := metacriticBaseURL + "/game/fresh-release/"
	transport := &routeTransport{routes: map[string]string{
		searchURL: `<html><body><div id="main-content"><a href="/game/fresh-release/">Fresh Release</a></div></body></html>`,
		pageURL: `<html><body><div id="main-content">
			<div data-testid="metascore-value"><span>tbd</span></div>
			<div data-testid="userscore-value"><span>tbd</span></div>
		</div></body></html>`,
	}}
	mc := NewMetacritic(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{CleanedTitle: "Fresh Release"}
	if err := mc.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if offer.MetaScore != nil || offer.UserScore != nil {
		t.Errorf("scores parsed from tbd page, MetaScore = %v, UserScore = %v",
			offer.MetaScore, offer.UserScore)
	}
}
