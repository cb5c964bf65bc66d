// Package classify separates full-game giveaways from add-on content.
package classify

import "strings"

// Keywords are matched as substrings of the lowercased title, the way
// storefronts phrase their listings ("Soundtrack", "Season Pass").
var (
	dlcKeywords = []string{
		"dlc", "expansion", "season pass", "soundtrack", "artbook",
		"bonus", "pack", "upgrade", "add-on",
	}
	ambiguousKeywords = []string{
		"bundle", "edition", "ultimate", "deluxe", "collection", "complete",
	}
	fullGameKeywords = []string{
		"game", "full game", "standard edition",
	}
)

// IsDLC reports whether a title looks like add-on content rather than a
// standalone game. A hard DLC keyword always wins; an ambiguous keyword
// ("edition", "bundle") counts only when nothing in the title marks it
// as a full game.
func IsDLC(title string) bool {
	t := strings.ToLower(title)

	for _, kw := range dlcKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}

	ambiguous := false
	for _, kw := range ambiguousKeywords {
		if strings.Contains(t, kw) {
			ambiguous = true
			break
		}
	}
	if !ambiguous {
		return false
	}
	for _, kw := range fullGameKeywords {
		if strings.Contains(t, kw) {
			return false
		}
	}
	return true
}
