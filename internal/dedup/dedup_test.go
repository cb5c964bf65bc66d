package dedup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"freegames_bot/internal/model"
)

type fakeHistory struct {
	delivered map[string]time.Time
	err       error
}

func (h *fakeHistory) DeliveredSince(_ context.Context, key string, since time.Time) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	at, ok := h.delivered[key]
	return ok && !at.Before(since), nil
}

func (h *fakeHistory) RecordDelivery(_ context.Context, key string, at time.Time) error {
	if h.err != nil {
		return h.err
	}
	h.delivered[key] = at
	return nil
}

func newTestFilter(t *testing.T, history *fakeHistory) *Filter {
	t.Helper()

	if history.delivered == nil {
		history.delivered = make(map[string]time.Time)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(history, DefaultWindow, log)
}

func TestCollapse(t *testing.T) {
	f := newTestFilter(t, &fakeHistory{})

	offers := []model.Offer{
		{
			SourceID: "epic_1",
			RawTitle: "Tower Siege",
			URL:      "https://store.steampowered.com/app/620/?utm_source=epic",
			ImageURL: "https://placehold.co/600x400",
		},
		{
			SourceID: "gog_1",
			RawTitle: "Other Game",
			URL:      "https://www.gog.com/en/game/other_game",
		},
		{
			SourceID:     "reddit_1",
			RawTitle:     "[Steam] Tower Siege (Free)",
			URL:          "https://store.steampowered.com/app/620/Tower_Siege/",
			Description:  "A fine tower defense.",
			ImageURL:     "https://cdn.example.com/tower.jpg",
			DiscountText: "100% Off",
		},
	}

	got := f.Collapse(offers)
	if len(got) != 2 {
		t.Fatalf("collapsed to %d offers, want 2", len(got))
	}

	// First occurrence wins identity and position.
	if got[0].SourceID != "epic_1" {
		t.Errorf("winner SourceID = %q, want epic_1", got[0].SourceID)
	}
	if got[0].CanonicalKey != "steam:620" {
		t.Errorf("winner key = %q, want steam:620", got[0].CanonicalKey)
	}

	// The duplicate only fills what the winner was missing.
	if got[0].Description != "A fine tower defense." {
		t.Errorf("description not filled: %q", got[0].Description)
	}
	if got[0].DiscountText != "100% Off" {
		t.Errorf("discount not filled: %q", got[0].DiscountText)
	}
	if got[0].ImageURL != "https://cdn.example.com/tower.jpg" {
		t.Errorf("placeholder image not replaced: %q", got[0].ImageURL)
	}

	wantTitles := []string{"Tower Siege", "Other Game"}
	var gotTitles []string
	for _, o := range got {
		gotTitles = append(gotTitles, o.RawTitle)
	}
	if diff := cmp.Diff(wantTitles, gotTitles); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCollapseKeepsWinnerFields(t *testing.T) {
	f := newTestFilter(t, &fakeHistory{})

	offers := []model.Offer{
		{SourceID: "a", RawTitle: "First", URL: "https://example.com/x", Description: "first description"},
		{SourceID: "b", RawTitle: "Second", URL: "https://example.com/x", Description: "second description"},
	}

	got := f.Collapse(offers)
	if len(got) != 1 {
		t.Fatalf("collapsed to %d offers, want 1", len(got))
	}
	if got[0].Description != "first description" {
		t.Errorf("winner description overwritten: %q", got[0].Description)
	}
}

func TestAdmitWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{delivered: map[string]time.Time{
		"steam:620": now.Add(-10 * 24 * time.Hour),
		"gog:stale": now.Add(-40 * 24 * time.Hour),
	}}
	f := newTestFilter(t, history)
	f.now = func() time.Time { return now }

	offers := []model.Offer{
		{RawTitle: "Recent", URL: "https://store.steampowered.com/app/620/"},
		{RawTitle: "Stale", URL: "https://www.gog.com/game/stale"},
		{RawTitle: "Fresh", URL: "https://www.gog.com/game/fresh"},
	}

	got := f.Admit(context.Background(), offers)

	wantTitles := []string{"Stale", "Fresh"}
	var gotTitles []string
	for _, o := range got {
		gotTitles = append(gotTitles, o.RawTitle)
	}
	if diff := cmp.Diff(wantTitles, gotTitles); diff != "" {
		t.Errorf("admitted mismatch (-want +got):\n%s", diff)
	}
}

func TestAdmitHistoryError(t *testing.T) {
	history := &fakeHistory{err: errors.New("disk on fire")}
	f := newTestFilter(t, history)

	offers := []model.Offer{
		{RawTitle: "Tower Siege", URL: "https://store.steampowered.com/app/620/"},
	}

	if got := f.Admit(context.Background(), offers); len(got) != 0 {
		t.Errorf("admitted %d offers on history error, want 0", len(got))
	}
}

func TestMarkDelivered(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newTestFilter(t, &fakeHistory{})
	f.now = func() time.Time { return now }

	offer := model.Offer{RawTitle: "Tower Siege", URL: "https://store.steampowered.com/app/620/"}
	if err := f.MarkDelivered(context.Background(), offer); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	if got := f.Admit(context.Background(), []model.Offer{offer}); len(got) != 0 {
		t.Errorf("offer admitted right after delivery, want suppressed")
	}
}
