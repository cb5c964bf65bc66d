package enrich

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"freegames_bot/internal/model"
)

func TestArtworkKeepsExistingImage(t *testing.T) {
	transport := &routeTransport{routes: map[string]string{}}
	art := NewArtwork(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{
		CleanedTitle: "Mystery Game",
		URL:          "https://example-store.com/mystery-game",
		ImageURL:     "https://cdn.example-store.com/images/existing.jpg",
	}
	if err := art.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if offer.ImageURL != "https://cdn.example-store.com/images/existing.jpg" {
		t.Errorf("ImageURL = %q, existing art replaced", offer.ImageURL)
	}
	if len(transport.calls) != 0 {
		t.Errorf("got %d requests, want none when art already exists", len(transport.calls))
	}
}

func TestArtworkReplacesPlaceholder(t *testing.T) {
	dealURL := "https://example-store.com/mystery-game"
	transport := &routeTransport{routes: map[string]string{
		dealURL: loadFixture(t, "../../testdata/deal_page.html"),
	}}
	art := NewArtwork(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{
		CleanedTitle: "Mystery Game",
		URL:          dealURL,
		ImageURL:     "https://placehold.co/600x400?text=game",
	}
	if err := art.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := "https://cdn.example-store.com/images/mystery-game-cover.jpg"
	if offer.ImageURL != want {
		t.Errorf("ImageURL = %q, want og:image %q", offer.ImageURL, want)
	}
}

func TestArtworkITunesLookup(t *testing.T) {
	itunesURL := fmt.Sprintf(itunesSearchURL, url.QueryEscape("Mystery App"))
	transport := &routeTransport{routes: map[string]string{
		itunesURL: `{"resultCount":1,"results":[{"artworkUrl512":"https://is1-ssl.mzstatic.com/image/thumb/512x512bb.jpg","artworkUrl100":"https://is1-ssl.mzstatic.com/image/thumb/100x100bb.jpg"}]}`,
	}}
	art := NewArtwork(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{
		CleanedTitle: "Mystery App",
		URL:          "https://apps.apple.com/us/app/mystery-app/id123456789",
		Store:        model.StoreIOSAppStore,
	}
	if err := art.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := "https://is1-ssl.mzstatic.com/image/thumb/512x512bb.jpg"
	if offer.ImageURL != want {
		t.Errorf("ImageURL = %q, want iTunes artwork %q", offer.ImageURL, want)
	}
	if len(transport.calls) != 1 {
		t.Errorf("got %d requests, want only the iTunes lookup", len(transport.calls))
	}
}

func TestArtworkFallsBackToMetaTags(t *testing.T) {
	itunesURL := fmt.Sprintf(itunesSearchURL, url.QueryEscape("Mystery App"))
	dealURL := "https://apps.apple.com/us/app/mystery-app/id123456789"
	transport := &routeTransport{routes: map[string]string{
		itunesURL: `{"resultCount":0,"results":[]}`,
		dealURL:   loadFixture(t, "../../testdata/deal_page.html"),
	}}
	art := NewArtwork(newEnrichFetcher(t, transport), testLogger())

	offer := model.Offer{
		CleanedTitle: "Mystery App",
		URL:          dealURL,
		Store:        model.StoreIOSAppStore,
	}
	if err := art.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := "https://cdn.example-store.com/images/mystery-game-cover.jpg"
	if offer.ImageURL != want {
		t.Errorf("ImageURL = %q, want og:image fallback %q", offer.ImageURL, want)
	}
}

func TestUsableImage(t *testing.T) {
	tests := []struct {
		imageURL string
		want     bool
	}{
		{"https://cdn.example.com/cover.jpg", true},
		{"http://cdn.example.com/cover.jpg", true},
		{"", false},
		{"/relative/cover.png", false},
		{"https://placehold.co/600x400", false},
		{"https://secure.gravatar.com/avatar/abc123", false},
	}
	for _, tt := range tests {
		if got := usableImage(tt.imageURL); got != tt.want {
			t.Errorf("usableImage(%q) = %v, want %v", tt.imageURL, got, tt.want)
		}
	}
}
