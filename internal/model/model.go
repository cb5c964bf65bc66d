// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// StoreTag identifies the storefront an offer belongs to. The set of tags
// is closed: anything that does not map to a known storefront is StoreOther.
type StoreTag string

// Known storefronts.
const (
	StoreSteam          StoreTag = "steam"
	StoreEpicGames      StoreTag = "epicgames"
	StoreGOG            StoreTag = "gog"
	StoreGooglePlay     StoreTag = "googleplay"
	StoreIOSAppStore    StoreTag = "iosappstore"
	StoreXbox           StoreTag = "xbox"
	StorePlayStation    StoreTag = "playstation"
	StoreNintendo       StoreTag = "nintendo"
	StoreItchIO         StoreTag = "itch.io"
	StoreIndieGala      StoreTag = "indiegala"
	StoreStove          StoreTag = "stove"
	StoreMicrosoft      StoreTag = "microsoftstore"
	StoreAmazon         StoreTag = "amazon"
	StoreBlizzard       StoreTag = "blizzard"
	StoreEA             StoreTag = "eastore"
	StoreUbisoft        StoreTag = "ubisoftstore"
	StoreHumble         StoreTag = "humblestore"
	StoreFanatical      StoreTag = "fanatical"
	StoreGreenManGaming StoreTag = "greenmangaming"
	StoreReddit         StoreTag = "reddit"
	StoreOther          StoreTag = "other"
)

// StoreAll is a subscription wildcard, not a storefront: a chat subscribed
// to it receives offers from every store. It is never assigned to an offer.
const StoreAll StoreTag = "all"

var storeTags = map[StoreTag]bool{
	StoreSteam:          true,
	StoreEpicGames:      true,
	StoreGOG:            true,
	StoreGooglePlay:     true,
	StoreIOSAppStore:    true,
	StoreXbox:           true,
	StorePlayStation:    true,
	StoreNintendo:       true,
	StoreItchIO:         true,
	StoreIndieGala:      true,
	StoreStove:          true,
	StoreMicrosoft:      true,
	StoreAmazon:         true,
	StoreBlizzard:       true,
	StoreEA:             true,
	StoreUbisoft:        true,
	StoreHumble:         true,
	StoreFanatical:      true,
	StoreGreenManGaming: true,
	StoreReddit:         true,
	StoreOther:          true,
}

// ParseStoreTag normalizes a raw store name ("Epic Games", "itch.io") to a
// StoreTag. The second result reports whether the name mapped to a known tag.
func ParseStoreTag(s string) (StoreTag, bool) {
	t := StoreTag(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", ""))
	if storeTags[t] {
		return t, true
	}
	return StoreOther, false
}

// Valid reports whether t is a known store tag or the StoreAll wildcard.
func (t StoreTag) Valid() bool {
	return t == StoreAll || storeTags[t]
}

// Offer is a single giveaway or deal as it flows through the pipeline.
// Adapters fill the source fields; canonicalization sets CanonicalKey,
// Store and CleanedTitle; enrichment fills the pointer fields it can
// resolve and leaves the rest nil.
type Offer struct {
	SourceID      string   `json:"source_id" validate:"required"`
	Source        string   `json:"source"`
	RawTitle      string   `json:"raw_title" validate:"required"`
	CleanedTitle  string   `json:"cleaned_title"`
	URL           string   `json:"url" validate:"required"`
	CanonicalKey  string   `json:"canonical_key"`
	Store         StoreTag `json:"store"`
	DeclaredStore string   `json:"declared_store,omitempty"`
	Description   string   `json:"description,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	IsFree        bool     `json:"is_free"`
	IsDLC         bool     `json:"is_dlc"`
	DiscountText  string   `json:"discount_text,omitempty"`

	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	SteamAppID        string   `json:"steam_app_id,omitempty"`
	Genres            []string `json:"genres,omitempty"`
	IsMultiplayer     bool     `json:"is_multiplayer,omitempty"`
	IsOnline          bool     `json:"is_online,omitempty"`
	TrailerURL        string   `json:"trailer_url,omitempty"`
	AgeRating         string   `json:"age_rating,omitempty"`
	ReviewScore       *int     `json:"review_score,omitempty"`
	ReviewCount       *int     `json:"review_count,omitempty"`
	MetaScore         *int     `json:"meta_score,omitempty"`
	UserScore         *float64 `json:"user_score,omitempty"`
	TranslatedSummary string   `json:"translated_summary,omitempty"`
}

// DeliveryRecord marks a canonical key as dispatched at a point in time.
type DeliveryRecord struct {
	CanonicalKey string
	DeliveredAt  time.Time
}

// Subscription routes offers for one store (or StoreAll) to a chat.
type Subscription struct {
	ChatID    int64
	Store     StoreTag
	CreatedAt time.Time
}
