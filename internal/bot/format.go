package bot

import (
	"fmt"
	"strings"

	"freegames_bot/internal/model"
)

// descriptionLimit keeps announcements scannable, Telegram itself allows
// up to 4096 characters.
const descriptionLimit = 300

var storeLabels = map[model.StoreTag]string{
	model.StoreSteam:          "Steam",
	model.StoreEpicGames:      "Epic Games",
	model.StoreGOG:            "GOG",
	model.StoreGooglePlay:     "Google Play",
	model.StoreIOSAppStore:    "iOS App Store",
	model.StoreXbox:           "Xbox",
	model.StorePlayStation:    "PlayStation",
	model.StoreNintendo:       "Nintendo",
	model.StoreItchIO:         "itch.io",
	model.StoreIndieGala:      "IndieGala",
	model.StoreStove:          "STOVE",
	model.StoreMicrosoft:      "Microsoft Store",
	model.StoreAmazon:         "Amazon",
	model.StoreBlizzard:       "Blizzard",
	model.StoreEA:             "EA",
	model.StoreUbisoft:        "Ubisoft",
	model.StoreHumble:         "Humble Store",
	model.StoreFanatical:      "Fanatical",
	model.StoreGreenManGaming: "Green Man Gaming",
	model.StoreReddit:         "Reddit",
	model.StoreOther:          "Other",
}

func storeLabel(t model.StoreTag) string {
	if label, ok := storeLabels[t]; ok {
		return label
	}
	return string(t)
}

// FormatOffer renders an offer as a plain text Telegram message.
func FormatOffer(o model.Offer) string {
	var b strings.Builder

	title := o.CleanedTitle
	if title == "" {
		title = o.RawTitle
	}
	b.WriteString(title)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Store: %s\n", storeLabel(o.Store))

	switch {
	case o.DiscountText != "":
		fmt.Fprintf(&b, "Deal: %s\n", o.DiscountText)
	case o.IsFree:
		b.WriteString("Deal: Free\n")
	}

	if o.EndsAt != nil {
		fmt.Fprintf(&b, "Until: %s\n", o.EndsAt.Format("2006-01-02 15:04 UTC"))
	}
	if len(o.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(o.Genres, ", "))
	}
	if o.ReviewScore != nil && o.ReviewCount != nil {
		fmt.Fprintf(&b, "Steam reviews: %d%% positive of %d\n", *o.ReviewScore, *o.ReviewCount)
	}
	if o.MetaScore != nil {
		fmt.Fprintf(&b, "Metascore: %d\n", *o.MetaScore)
	}

	if desc := truncate(summaryOf(o), descriptionLimit); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	if o.URL != "" {
		b.WriteString("\n")
		b.WriteString(o.URL)
	}
	return b.String()
}

// summaryOf prefers the translated summary when one was produced.
func summaryOf(o model.Offer) string {
	if o.TranslatedSummary != "" {
		return o.TranslatedSummary
	}
	return o.Description
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
