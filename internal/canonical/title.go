package canonical

import (
	"regexp"
	"strings"
)

var (
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	// Promotional suffixes that feeds append to game names. Stripped in a
	// loop because they stack ("Game - Free - 100% Off").
	promoSuffixRe = regexp.MustCompile(`(?i)[\s|:,.\x{2013}\x{2014}-]+(100%\s*(off|discount)|free(\s+to\s+keep)?|giveaway)[\s!.]*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// CleanTitle strips feed decorations from a raw offer title: bracketed and
// parenthesized segments, stacked promotional suffixes and leftover
// separators. If cleaning consumes the whole title, the trimmed original
// is returned so the offer keeps a displayable name.
func CleanTitle(raw string) string {
	title := bracketRe.ReplaceAllString(raw, " ")
	title = parenRe.ReplaceAllString(title, " ")

	for {
		next := promoSuffixRe.ReplaceAllString(title, "")
		if next == title {
			break
		}
		title = next
	}

	title = spaceRe.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -–—|:,.!")
	if title == "" {
		return strings.TrimSpace(raw)
	}
	return title
}
