// Package canonical gives every offer a stable identity.
//
// Two things come out of it: a store tag, used to route subscriptions, and
// a canonical key, used to recognize the same product across sources. The
// key is a pure function of the offer URL, so an Epic giveaway seen via the
// Epic API and the same giveaway seen via a Reddit post collapse to one key.
package canonical

import (
	"net/url"
	"regexp"
	"strings"

	"freegames_bot/internal/model"
)

type domainRule struct {
	host         string
	pathContains string
	tag          model.StoreTag
}

// Ordered: the Epic mobile rules must precede the general epicgames.com
// rule, since Epic hosts its Android and iOS giveaway pages on its own
// domain with platform-marked slugs.
var domainRules = []domainRule{
	{host: "epicgames.com", pathContains: "-android-", tag: model.StoreGooglePlay},
	{host: "epicgames.com", pathContains: "-ios-", tag: model.StoreIOSAppStore},
	{host: "epicgames.com", tag: model.StoreEpicGames},
	{host: "steampowered.com", tag: model.StoreSteam},
	{host: "steamcommunity.com", tag: model.StoreSteam},
	{host: "play.google.com", tag: model.StoreGooglePlay},
	{host: "apps.apple.com", tag: model.StoreIOSAppStore},
	{host: "itunes.apple.com", tag: model.StoreIOSAppStore},
	{host: "xbox.com", tag: model.StoreXbox},
	{host: "microsoft.com", tag: model.StoreMicrosoft},
	{host: "playstation.com", tag: model.StorePlayStation},
	{host: "nintendo.com", tag: model.StoreNintendo},
	{host: "gog.com", tag: model.StoreGOG},
	{host: "itch.io", tag: model.StoreItchIO},
	{host: "indiegala.com", tag: model.StoreIndieGala},
	{host: "onstove.com", tag: model.StoreStove},
	{host: "ea.com", tag: model.StoreEA},
	{host: "ubisoft.com", tag: model.StoreUbisoft},
	{host: "humblebundle.com", tag: model.StoreHumble},
	{host: "fanatical.com", tag: model.StoreFanatical},
	{host: "greenmangaming.com", tag: model.StoreGreenManGaming},
	{host: "amazon.com", tag: model.StoreAmazon},
	{host: "blizzard.com", tag: model.StoreBlizzard},
	{host: "battle.net", tag: model.StoreBlizzard},
	{host: "reddit.com", tag: model.StoreReddit},
	{host: "redd.it", tag: model.StoreReddit},
}

type keywordRule struct {
	re  *regexp.Regexp
	tag model.StoreTag
}

// Ordered by specificity: "epic games" must win before the bare "epic"
// fallback at the end, "nintendo" before "switch".
var keywordRules = compileKeywordRules()

func compileKeywordRules() []keywordRule {
	ordered := []struct {
		phrase string
		tag    model.StoreTag
	}{
		{"epic games", model.StoreEpicGames},
		{"egs", model.StoreEpicGames},
		{"steam", model.StoreSteam},
		{"gog", model.StoreGOG},
		{"google play", model.StoreGooglePlay},
		{"googleplaydeals", model.StoreGooglePlay},
		{"android", model.StoreGooglePlay},
		{"app store", model.StoreIOSAppStore},
		{"ios", model.StoreIOSAppStore},
		{"itunes", model.StoreIOSAppStore},
		{"xbox", model.StoreXbox},
		{"playstation", model.StorePlayStation},
		{"psn", model.StorePlayStation},
		{"ps4", model.StorePlayStation},
		{"ps5", model.StorePlayStation},
		{"nintendo", model.StoreNintendo},
		{"switch", model.StoreNintendo},
		{"itch", model.StoreItchIO},
		{"indiegala", model.StoreIndieGala},
		{"stove", model.StoreStove},
		{"microsoft store", model.StoreMicrosoft},
		{"humble", model.StoreHumble},
		{"fanatical", model.StoreFanatical},
		{"green man gaming", model.StoreGreenManGaming},
		{"gmg", model.StoreGreenManGaming},
		{"prime gaming", model.StoreAmazon},
		{"amazon", model.StoreAmazon},
		{"blizzard", model.StoreBlizzard},
		{"battle.net", model.StoreBlizzard},
		{"ea app", model.StoreEA},
		{"origin", model.StoreEA},
		{"ubisoft", model.StoreUbisoft},
		{"uplay", model.StoreUbisoft},
		{"epic", model.StoreEpicGames},
	}

	rules := make([]keywordRule, 0, len(ordered))
	for _, e := range ordered {
		rules = append(rules, keywordRule{
			re:  regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(e.phrase) + `\b`),
			tag: e.tag,
		})
	}
	return rules
}

var (
	steamAppRe  = regexp.MustCompile(`/(app|sub|bundle)/(\d+)`)
	epicSlugRe  = regexp.MustCompile(`/(?:p|product)/([^/]+)`)
	gogSlugRe   = regexp.MustCompile(`/(?:game|movie)/([^/]+)`)
	appleIDRe   = regexp.MustCompile(`/id(\d+)`)
	trackingRe  = regexp.MustCompile(`^utm_`)
	trackingSet = map[string]bool{
		"ref":    true,
		"source": true,
		"mc_cid": true,
		"mc_eid": true,
		"snr":    true,
	}
)

// ResolveStore picks the store tag for an offer. A store the adapter
// declared wins unless it failed to parse; after that the URL decides,
// then keywords in the raw title and feed name, then StoreOther.
func ResolveStore(o model.Offer) model.StoreTag {
	if tag, ok := model.ParseStoreTag(o.DeclaredStore); ok && tag != model.StoreOther {
		return tag
	}
	if tag, ok := storeForURL(o.URL); ok {
		return tag
	}
	if tag, ok := storeFromText(o.RawTitle + " " + o.Source); ok {
		return tag
	}
	return model.StoreOther
}

func storeForURL(rawURL string) (model.StoreTag, bool) {
	u, ok := parseURL(rawURL)
	if !ok {
		return model.StoreOther, false
	}
	host := normalizeHost(u)
	path := strings.ToLower(u.Path)
	for _, r := range domainRules {
		if !matchHost(host, r.host) {
			continue
		}
		if r.pathContains != "" && !strings.Contains(path, r.pathContains) {
			continue
		}
		return r.tag, true
	}
	return model.StoreOther, false
}

func storeFromText(text string) (model.StoreTag, bool) {
	for _, r := range keywordRules {
		if r.re.MatchString(text) {
			return r.tag, true
		}
	}
	return model.StoreOther, false
}

// Key derives the canonical key for a URL. Store product pages get a
// compact store-qualified id ("steam:620", "epicgames:the-cycle"); any
// other URL is normalized with the scheme, fragment and known tracking
// parameters dropped. A string that cannot be parsed as a URL at all is
// still keyed, on its lowercased text, so a malformed offer dedupes
// against itself rather than crashing the pipeline.
func Key(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	if k, ok := productKey(u); ok {
		return k
	}
	return genericKey(u)
}

func parseURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

func productKey(u *url.URL) (string, bool) {
	host := normalizeHost(u)
	path := u.Path
	switch {
	case matchHost(host, "steampowered.com") || matchHost(host, "steamcommunity.com"):
		if m := steamAppRe.FindStringSubmatch(path); m != nil {
			if m[1] == "app" {
				return "steam:" + m[2], true
			}
			// Packages and bundles share the numeric id space with apps,
			// so they keep their kind as a prefix.
			return "steam:" + m[1] + m[2], true
		}
	case matchHost(host, "epicgames.com"):
		if m := epicSlugRe.FindStringSubmatch(path); m != nil {
			return "epicgames:" + strings.ToLower(m[1]), true
		}
	case matchHost(host, "gog.com"):
		if m := gogSlugRe.FindStringSubmatch(path); m != nil {
			return "gog:" + strings.ToLower(m[1]), true
		}
	case matchHost(host, "play.google.com"):
		if id := u.Query().Get("id"); id != "" {
			return "googleplay:" + id, true
		}
	case matchHost(host, "apps.apple.com") || matchHost(host, "itunes.apple.com"):
		if m := appleIDRe.FindStringSubmatch(path); m != nil {
			return "iosappstore:" + m[1], true
		}
	}
	return "", false
}

func genericKey(u *url.URL) string {
	host := normalizeHost(u)
	path := strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	for param := range q {
		if trackingSet[param] || trackingRe.MatchString(param) {
			q.Del(param)
		}
	}

	key := host + path
	if enc := q.Encode(); enc != "" {
		key += "?" + enc
	}
	return key
}

func normalizeHost(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func matchHost(host, want string) bool {
	return host == want || strings.HasSuffix(host, "."+want)
}
