package source

import (
	"context"
	"fmt"
	"time"

	"github.com/elonfeng/hotboard/internal/logging"
	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/mmcdole/gofeed"
)

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name string
	URL  string
}

// RSS treats each configured feed as a ranking: position in the feed is the
// rank.
type RSS struct {
	client *httpClient
	parser *gofeed.Parser
	feeds  []RSSFeed
}

// NewRSS creates a new RSS adapter.
func NewRSS(feeds []RSSFeed, timeout time.Duration) *RSS {
	return &RSS{
		client: newHTTPClient(timeout),
		parser: gofeed.NewParser(),
		feeds:  feeds,
	}
}

func (r *RSS) Name() Platform { return PlatformRSS }

// Fetch collects every feed. A broken feed is logged and skipped; the call
// only fails when no feed could be read.
func (r *RSS) Fetch(ctx context.Context) ([]normalize.Item, error) {
	var (
		all     []normalize.Item
		lastErr error
		ok      int
	)
	for _, feed := range r.feeds {
		items, err := r.fetchFeed(ctx, feed)
		if err != nil {
			logging.Platform(string(PlatformRSS)).WithField("feed", feed.Name).WithError(err).Warn("feed failed")
			lastErr = err
			continue
		}
		ok++
		all = append(all, items...)
	}
	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feed RSSFeed) ([]normalize.Item, error) {
	body, err := r.client.get(ctx, feed.URL, map[string]string{"User-Agent": "hotboard/1.0"})
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", feed.Name, err)
	}

	parsed, err := r.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	scrapedAt := stamp()
	items := make([]normalize.Item, 0, len(parsed.Items))
	for i, entry := range parsed.Items {
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		item := normalize.Item{
			"rank":       i + 1,
			"title":      entry.Title,
			"url":        link,
			"scraped_at": scrapedAt,
			"feed_name":  feed.Name,
			"categories": entry.Categories,
		}
		if entry.GUID != "" {
			item["guid"] = entry.GUID
		}
		if desc := plainText(entry.Description); desc != "" {
			item["excerpt"] = truncate(desc, 500)
		}
		if entry.Image != nil && entry.Image.URL != "" {
			item["image_url"] = entry.Image.URL
		}
		items = append(items, item)
	}
	return items, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
