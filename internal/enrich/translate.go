package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
)

const (
	googleTranslateURL = "https://translate.googleapis.com/translate_a/single"
	myMemoryURL        = "https://api.mymemory.translated.net/get"

	// Long descriptions blow past the URL length both services accept.
	translateMaxChars = 500

	translateTTL = 30 * 24 * time.Hour
)

// Translator produces a localized summary of the offer description
// through free public translation endpoints. No API key is needed, so
// responses are treated with suspicion and any failure falls back to
// the untranslated text.
type Translator struct {
	fetcher *fetcher.Fetcher
	target  string
	log     *slog.Logger
}

// NewTranslator translates into the given language code. An empty
// target disables translation entirely.
func NewTranslator(f *fetcher.Fetcher, target string, log *slog.Logger) *Translator {
	return &Translator{fetcher: f, target: target, log: log}
}

func (t *Translator) Name() string { return "translate" }

func (t *Translator) Enrich(ctx context.Context, offer *model.Offer) error {
	if t.target == "" || offer.TranslatedSummary != "" {
		return nil
	}
	text := clip(offer.Description, translateMaxChars)
	if text == "" {
		return nil
	}

	translated, err := t.viaGoogle(ctx, text)
	if err != nil || translated == "" {
		if err != nil {
			t.log.Debug("google translate failed", "error", err)
		}
		translated, err = t.viaMyMemory(ctx, text)
	}
	if err != nil || translated == "" {
		t.log.Warn("translation failed, keeping original text", "title", offer.CleanedTitle)
		offer.TranslatedSummary = text
		return nil
	}

	offer.TranslatedSummary = translated
	return nil
}

// viaGoogle uses the unofficial gtx endpoint. The response is a nested
// array where element [0][i][0] holds the i-th translated chunk.
func (t *Translator) viaGoogle(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "en")
	params.Set("tl", t.target)
	params.Set("dt", "t")
	params.Set("q", text)

	body, err := t.fetcher.Fetch(ctx, fetcher.Request{
		URL:        googleTranslateURL + "?" + params.Encode(),
		Structured: true,
		TTL:        translateTTL,
	})
	if err != nil {
		return "", err
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode translation: %w", err)
	}
	if len(payload) == 0 {
		return "", errors.New("empty translation payload")
	}

	var chunks [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &chunks); err != nil {
		return "", fmt.Errorf("decode translation chunks: %w", err)
	}

	var b strings.Builder
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(chunk[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

func (t *Translator) viaMyMemory(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", "en|"+t.target)

	body, err := t.fetcher.Fetch(ctx, fetcher.Request{
		URL:        myMemoryURL + "?" + params.Encode(),
		Structured: true,
		TTL:        translateTTL,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		ResponseStatus int `json:"responseStatus"`
		ResponseData   struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode mymemory response: %w", err)
	}
	if resp.ResponseStatus != 200 {
		return "", fmt.Errorf("mymemory status %d", resp.ResponseStatus)
	}
	return resp.ResponseData.TranslatedText, nil
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
