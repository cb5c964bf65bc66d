package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
	"freegames_bot/internal/validate"
)

const (
	epicAPIURL   = "https://store-content-ipv4.ak.epicgames.com/api/graphql"
	epicStoreURL = "https://www.epicgames.com/store/p/"
)

// The API refuses requests that do not look like they come from the
// storefront itself.
var epicHeaders = map[string]string{
	"Content-Type": "application/json",
	"Referer":      "https://www.epicgames.com/store/",
	"Origin":       "https://www.epicgames.com",
}

const epicQuery = `query searchStoreQuery($country: String!, $locale: String!, $category: String) {
  Catalog {
    searchStore(country: $country, locale: $locale, category: $category) {
      elements {
        title
        id
        description
        productSlug
        urlSlug
        keyImages { type url }
        promotions(category: $category) {
          promotionalOffers {
            promotionalOffers { startDate endDate }
          }
        }
      }
    }
  }
}`

type epicRequest struct {
	Query     string        `json:"query"`
	Variables epicVariables `json:"variables"`
}

type epicVariables struct {
	Country  string `json:"country"`
	Locale   string `json:"locale"`
	Category string `json:"category"`
}

type epicResponse struct {
	Data struct {
		Catalog struct {
			SearchStore struct {
				Elements []epicElement `json:"elements"`
			} `json:"searchStore"`
		} `json:"Catalog"`
	} `json:"data"`
}

type epicElement struct {
	Title       string         `json:"title"`
	ID          string         `json:"id"`
	Description string         `json:"description"`
	ProductSlug string         `json:"productSlug"`
	URLSlug     string         `json:"urlSlug"`
	KeyImages   []epicKeyImage `json:"keyImages"`
	Promotions  *struct {
		PromotionalOffers []struct {
			PromotionalOffers []epicWindow `json:"promotionalOffers"`
		} `json:"promotionalOffers"`
	} `json:"promotions"`
}

type epicKeyImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type epicWindow struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

var epicImagePriority = []string{"OfferImageWide", "VaultHandout", "OfferImageTall", "DieselStoreFrontWide"}

// Epic polls the Epic Games Store free games promotion via its GraphQL API.
type Epic struct {
	fetcher *fetcher.Fetcher
	val     *validate.Validator
	log     *slog.Logger
	now     func() time.Time
}

// NewEpic creates the Epic Games Store adapter.
func NewEpic(f *fetcher.Fetcher, val *validate.Validator, log *slog.Logger) *Epic {
	return &Epic{fetcher: f, val: val, log: log, now: time.Now}
}

// Name identifies the adapter in logs.
func (e *Epic) Name() string { return "epicgames" }

// FetchOffers queries the freegames catalog and returns the giveaways
// whose promotional window covers the current time.
func (e *Epic) FetchOffers(ctx context.Context) ([]model.Offer, error) {
	payload, err := json.Marshal(epicRequest{
		Query: epicQuery,
		Variables: epicVariables{
			Country:  "US",
			Locale:   "en-US",
			Category: "freegames",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	body, err := e.fetcher.Fetch(ctx, fetcher.Request{
		Method:     http.MethodPost,
		URL:        epicAPIURL,
		Header:     epicHeaders,
		Body:       payload,
		Structured: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query free games: %w", err)
	}

	var resp epicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode free games: %w", err)
	}

	var offers []model.Offer
	for _, el := range resp.Data.Catalog.SearchStore.Elements {
		o, ok := e.normalize(el)
		if !ok {
			continue
		}
		offers = append(offers, o)
	}
	return keepValid(offers, e.val, e.log, e.Name()), nil
}

func (e *Epic) normalize(el epicElement) (model.Offer, bool) {
	if el.Title == "" || el.ID == "" {
		e.log.Warn("skipping epic element without title or id")
		return model.Offer{}, false
	}
	start, end, active := e.activeWindow(el)
	if !active {
		return model.Offer{}, false
	}

	slug := el.ProductSlug
	if slug == "" {
		slug = el.URLSlug
	}
	slug = strings.TrimSuffix(slug, "/home")
	if slug == "" {
		// Without a slug there is no product page, and every such element
		// would share one URL and collapse into one key downstream.
		e.log.Warn("skipping epic element without slug", "title", el.Title)
		return model.Offer{}, false
	}

	return model.Offer{
		SourceID:      "epic_" + el.ID,
		Source:        "epicgames",
		RawTitle:      el.Title,
		URL:           epicStoreURL + slug,
		DeclaredStore: string(model.StoreEpicGames),
		Description:   el.Description,
		ImageURL:      pickEpicImage(el.KeyImages),
		IsFree:        true,
		DiscountText:  "100% Off",
		StartsAt:      start,
		EndsAt:        end,
	}, true
}

// activeWindow scans the first promotion block for a window covering now.
// Later blocks are upcoming promotions, not current ones.
func (e *Epic) activeWindow(el epicElement) (*time.Time, *time.Time, bool) {
	if el.Promotions == nil || len(el.Promotions.PromotionalOffers) == 0 {
		return nil, nil, false
	}
	now := e.now()
	for _, w := range el.Promotions.PromotionalOffers[0].PromotionalOffers {
		start, err1 := time.Parse(time.RFC3339, w.StartDate)
		end, err2 := time.Parse(time.RFC3339, w.EndDate)
		if err1 != nil || err2 != nil {
			e.log.Warn("skipping promo window with bad dates",
				"title", el.Title, "start", w.StartDate, "end", w.EndDate)
			continue
		}
		if now.Before(start) || now.After(end) {
			continue
		}
		return &start, &end, true
	}
	return nil, nil, false
}

func pickEpicImage(images []epicKeyImage) string {
	for _, typ := range epicImagePriority {
		for _, img := range images {
			if img.Type == typ && img.URL != "" {
				return img.URL
			}
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}
