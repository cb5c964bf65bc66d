package enrich

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"freegames_bot/internal/model"
)

func googleURLFor(text string) string {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "en")
	params.Set("tl", "fa")
	params.Set("dt", "t")
	params.Set("q", text)
	return googleTranslateURL + "?" + params.Encode()
}

func myMemoryURLFor(text string) string {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", "en|fa")
	return myMemoryURL + "?" + params.Encode()
}

func TestTranslatorJoinsGoogleChunks(t *testing.T) {
	text := "A hand-crafted puzzle adventure. Now free to keep."
	transport := &routeTransport{routes: map[string]string{
		googleURLFor(text): `[[["یک ماجراجویی پازل دست‌ساز. ","A hand-crafted puzzle adventure. ",null,null,10],["اکنون رایگان.","Now free to keep.",null,null,10]],null,"en"]`,
	}}
	tr := NewTranslator(newEnrichFetcher(t, transport), "fa", testLogger())

	offer := model.Offer{CleanedTitle: "Puzzle Adventure", Description: text}
	if err := tr.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := "یک ماجراجویی پازل دست‌ساز. اکنون رایگان."
	if offer.TranslatedSummary != want {
		t.Errorf("TranslatedSummary = %q, want %q", offer.TranslatedSummary, want)
	}
}

func TestTranslatorFallsBackToMyMemory(t *testing.T) {
	text := "Free this weekend."
	transport := &routeTransport{routes: map[string]string{
		myMemoryURLFor(text): `{"responseData":{"translatedText":"این آخر هفته رایگان است."},"responseStatus":200}`,
	}}
	tr := NewTranslator(newEnrichFetcher(t, transport), "fa", testLogger())

	offer := model.Offer{CleanedTitle: "Weekend Deal", Description: text}
	if err := tr.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := "این آخر هفته رایگان است."
	if offer.TranslatedSummary != want {
		t.Errorf("TranslatedSummary = %q, want %q", offer.TranslatedSummary, want)
	}
}

func TestTranslatorKeepsOriginalWhenAllServicesFail(t *testing.T) {
	transport := &routeTransport{routes: map[string]string{}}
	tr := NewTranslator(newEnrichFetcher(t, transport), "fa", testLogger())

	offer := model.Offer{CleanedTitle: "Stubborn Game", Description: "Untranslatable text."}
	if err := tr.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if offer.TranslatedSummary != "Untranslatable text." {
		t.Errorf("TranslatedSummary = %q, want the original text", offer.TranslatedSummary)
	}
}

func TestTranslatorDisabledWithoutTarget(t *testing.T) {
	transport := &routeTransport{routes: map[string]string{}}
	tr := NewTranslator(newEnrichFetcher(t, transport), "", testLogger())

	offer := model.Offer{CleanedTitle: "Any Game", Description: "Some description."}
	if err := tr.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if offer.TranslatedSummary != "" {
		t.Errorf("TranslatedSummary = %q, want empty when disabled", offer.TranslatedSummary)
	}
	if len(transport.calls) != 0 {
		t.Errorf("got %d requests, want none when disabled", len(transport.calls))
	}
}

func TestTranslatorSkipsEmptyDescription(t *testing.T) {
	transport := &routeTransport{routes: map[string]string{}}
	tr := NewTranslator(newEnrichFetcher(t, transport), "fa", testLogger())

	offer := model.Offer{CleanedTitle: "Silent Game"}
	if err := tr.Enrich(context.Background(), &offer); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(transport.calls) != 0 {
		t.Errorf("got %d requests, want none without a description", len(transport.calls))
	}
}

func TestClip(t *testing.T) {
	short := "Fits as is."
	if got := clip(short, translateMaxChars); got != short {
		t.Errorf("clip() = %q, want unchanged input", got)
	}

	long := strings.Repeat("ab ", 300)
	got := clip(long, translateMaxChars)
	if n := len([]rune(got)); n > translateMaxChars {
		t.Errorf("clip() kept %d runes, want at most %d", n, translateMaxChars)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("clip() = %q, trailing whitespace kept", got)
	}
}
