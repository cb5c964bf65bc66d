package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/model"
	"freegames_bot/internal/validate"
)

const redditFeedURL = "https://www.reddit.com/r/%s/new/.rss"

// DefaultSubreddits are the deal communities watched when no explicit
// list is configured.
var DefaultSubreddits = []string{"GameDeals", "FreeGameFindings", "googleplaydeals", "AppHookup"}

var (
	redditHostRe     = regexp.MustCompile(`(?i)^https?://([^/]*\.)?(reddit\.com|redd\.it)(/|$)`)
	redditCommentsRe = regexp.MustCompile(`reddit\.com/r/[^/]+/comments/`)
	percentOffRe     = regexp.MustCompile(`(?i)\d+%\s*off`)
)

// Reddit watches deal subreddits through their RSS feeds. Posts that link
// out of Reddit are resolved to the actual store page; AppHookup weekly
// digests are split into one offer per listed app.
type Reddit struct {
	fetcher    *fetcher.Fetcher
	subreddits []string
	val        *validate.Validator
	log        *slog.Logger
}

// NewReddit creates the Reddit adapter. An empty subreddit list falls
// back to DefaultSubreddits.
func NewReddit(f *fetcher.Fetcher, subreddits []string, val *validate.Validator, log *slog.Logger) *Reddit {
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	return &Reddit{fetcher: f, subreddits: subreddits, val: val, log: log}
}

// Name identifies the adapter in logs.
func (r *Reddit) Name() string { return "reddit" }

// FetchOffers polls every configured subreddit. One dead subreddit does
// not fail the adapter; all of them dead does.
func (r *Reddit) FetchOffers(ctx context.Context) ([]model.Offer, error) {
	var offers []model.Offer
	failed := 0
	for _, sub := range r.subreddits {
		subOffers, err := r.fetchSubreddit(ctx, sub)
		if err != nil {
			r.log.Error("failed to fetch subreddit", "subreddit", sub, "error", err)
			failed++
			continue
		}
		offers = append(offers, subOffers...)
	}
	if failed == len(r.subreddits) {
		return nil, fmt.Errorf("all %d subreddits failed", failed)
	}
	return keepValid(offers, r.val, r.log, r.Name()), nil
}

func (r *Reddit) fetchSubreddit(ctx context.Context, sub string) ([]model.Offer, error) {
	body, err := r.fetcher.Fetch(ctx, fetcher.Request{URL: fmt.Sprintf(redditFeedURL, sub)})
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var offers []model.Offer
	for _, item := range feed.Items {
		offers = append(offers, r.itemOffers(ctx, sub, item)...)
	}
	return offers, nil
}

func (r *Reddit) itemOffers(ctx context.Context, sub string, item *gofeed.Item) []model.Offer {
	title := strings.ToLower(item.Title)
	if strings.EqualFold(sub, "AppHookup") &&
		strings.Contains(title, "weekly") && strings.Contains(title, "deals") {
		return r.digestOffers(sub, item)
	}
	if o, ok := r.postOffer(ctx, sub, item); ok {
		return []model.Offer{o}
	}
	return nil
}

// postOffer turns a single deal post into an offer. Posts whose title
// carries neither a free marker nor a discount are not deals.
func (r *Reddit) postOffer(ctx context.Context, sub string, item *gofeed.Item) (model.Offer, bool) {
	free, discount := dealTerms(sub, item.Title)
	if !free && discount == "" {
		return model.Offer{}, false
	}

	o := model.Offer{
		SourceID:     "reddit_" + feedItemID(item),
		Source:       "reddit/r/" + sub,
		RawTitle:     item.Title,
		URL:          item.Link,
		IsFree:       free,
		DiscountText: discount,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(itemContent(item)))
	if err != nil {
		r.log.Warn("failed to parse post content", "title", item.Title, "error", err)
		return o, true
	}

	if u := r.resolveDealURL(ctx, doc); u != "" {
		o.URL = u
	}
	o.Description = strings.TrimSpace(doc.Find("div.md").First().Text())
	if src, ok := doc.Find("img[src]").First().Attr("src"); ok {
		o.ImageURL = src
	}
	return o, true
}

// resolveDealURL finds the store page a post points at. Link posts carry
// a "[link]" anchor; when that anchor loops back to the comments page the
// outbound link is pulled from the page itself. Self posts fall back to
// the first external link in the body. An empty result means the caller
// should keep the permalink.
func (r *Reddit) resolveDealURL(ctx context.Context, doc *goquery.Document) string {
	anchor := doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == "[link]"
	}).First()

	if href, ok := anchor.Attr("href"); ok {
		if !redditCommentsRe.MatchString(href) {
			return href
		}
		if resolved := r.resolveOutbound(ctx, href); resolved != "" {
			return resolved
		}
		return ""
	}
	return firstExternalLink(doc.Selection)
}

// resolveOutbound fetches a comments page and extracts the link the post
// submitted.
func (r *Reddit) resolveOutbound(ctx context.Context, permalink string) string {
	body, err := r.fetcher.Fetch(ctx, fetcher.Request{URL: permalink})
	if err != nil {
		r.log.Warn("failed to resolve reddit permalink", "url", permalink, "error", err)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find(`a[data-testid="outbound-link"]`).First().Attr("href"); ok {
		return href
	}
	return firstExternalLink(doc.Find("div.md").First())
}

// digestOffers splits an AppHookup weekly digest into one offer per app.
// Each paragraph or list item with an external link and a deal marker
// becomes its own offer, keyed on the digest id plus the app URL.
func (r *Reddit) digestOffers(sub string, item *gofeed.Item) []model.Offer {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(itemContent(item)))
	if err != nil {
		r.log.Warn("failed to parse digest post", "title", item.Title, "error", err)
		return nil
	}

	parentID := feedItemID(item)
	var offers []model.Offer
	doc.Find("p, li").Each(func(_ int, block *goquery.Selection) {
		a := block.Find("a[href]").First()
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") || isRedditURL(href) {
			return
		}
		text := strings.TrimSpace(block.Text())
		free, discount := digestTerms(text)
		if !free && discount == "" {
			return
		}
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return
		}

		sum := sha256.Sum256([]byte(parentID + "-" + href))
		offers = append(offers, model.Offer{
			SourceID:     fmt.Sprintf("reddit_%x", sum),
			Source:       "reddit/r/" + sub,
			RawTitle:     title,
			URL:          href,
			Description:  text,
			IsFree:       free,
			DiscountText: discount,
		})
	})
	return offers
}

// dealTerms classifies a post title. Everything on FreeGameFindings is a
// freebie by charter; elsewhere the title has to say so.
func dealTerms(sub, title string) (bool, string) {
	t := strings.ToLower(title)
	free := strings.EqualFold(sub, "FreeGameFindings") ||
		strings.Contains(t, "free") ||
		strings.Contains(t, "100% off") ||
		strings.Contains(t, "100% discount")
	if free {
		return true, "100% Off"
	}
	if strings.Contains(t, "off") || strings.Contains(t, "discount") {
		if m := percentOffRe.FindString(title); m != "" {
			return false, m
		}
		return false, "Discount"
	}
	return false, ""
}

// digestTerms classifies one digest line. "-> 0" is the digest notation
// for a price dropping to zero.
func digestTerms(text string) (bool, string) {
	t := strings.ToLower(text)
	if strings.Contains(t, "free") || strings.Contains(t, "100% off") || strings.Contains(t, "-> 0") {
		return true, "100% Off"
	}
	if strings.Contains(t, "off") {
		if m := percentOffRe.FindString(text); m != "" {
			return false, m
		}
		return false, "Discount"
	}
	return false, ""
}

func firstExternalLink(s *goquery.Selection) string {
	var found string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "http") && !isRedditURL(href) {
			found = href
			return false
		}
		return true
	})
	return found
}

func isRedditURL(u string) bool {
	return redditHostRe.MatchString(u)
}

// feedItemID returns the feed-supplied id for an item, hashing title and
// link when the feed omits one.
func feedItemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
