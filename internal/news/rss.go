package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/andrejche/coinfly-v2/internal/imgcache"
)

// RSSClient fetches news from an RSS feed (Google News search results in
// the default config).
type RSSClient struct {
	feedURL   string
	imageHost string
	parser    *gofeed.Parser
}

func NewRSSClient(feedURL, imageHost string) *RSSClient {
	return &RSSClient{
		feedURL:   feedURL,
		imageHost: imageHost,
		parser:    gofeed.NewParser(),
	}
}

func (c *RSSClient) Fetch(ctx context.Context) ([]Item, error) {
	feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rss feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		// Entries without a title or usable link are dropped individually.
		if entry.Title == "" || entry.Link == "" {
			continue
		}
		item := Item{
			Title:       entry.Title,
			URL:         entry.Link,
			Source:      rssSource(entry),
			PublishedAt: entry.PublishedParsed,
		}
		if item.PublishedAt == nil {
			item.PublishedAt = entry.UpdatedParsed
		}
		if img := imgcache.AbsoluteURL(firstImage(entry), c.imageHost); img != "" {
			item.Image = &img
		}
		items = append(items, item)
	}
	return items, nil
}

// rssSource extracts the publisher name. Google News appends " - Publisher"
// to every item title; fall back to "News" when the pattern is absent.
func rssSource(entry *gofeed.Item) string {
	if i := strings.LastIndex(entry.Title, " - "); i > 0 && i+3 < len(entry.Title) {
		return strings.TrimSpace(entry.Title[i+3:])
	}
	return "News"
}

// firstImage picks the first usable image reference from media:content,
// media:thumbnail, an enclosure, or the item image, in that order.
func firstImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, tag := range []string{"content", "thumbnail"} {
			for _, ext := range media[tag] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range entry.Enclosures {
		if enc.URL != "" && (enc.Type == "" || strings.HasPrefix(enc.Type, "image/")) {
			return enc.URL
		}
	}
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	return ""
}
