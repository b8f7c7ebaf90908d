// Package news fetches and normalizes crypto news items from the
// CryptoCompare JSON API or a Google News RSS feed.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andrejche/coinfly-v2/internal/imgcache"
)

// Item is the canonical news item shape served to clients. Image and
// ImageLocal are pointers so absent values serialize as null: ImageLocal is
// only ever set when the image cache actually produced a stored asset.
type Item struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"publishedAt"`
	Image       *string    `json:"image"`
	ImageLocal  *string    `json:"imageLocal"`
}

// Payload is the published news document.
type Payload struct {
	UpdatedAt string `json:"updatedAt"`
	Items     []Item `json:"items"`
}

// Source fetches raw news items from one upstream.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// Limit caps items to at most n entries, bounding per-run latency and
// storage growth.
func Limit(items []Item, n int) []Item {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// ccResponse and ccArticle are the CryptoCompare news wire shapes.
type ccResponse struct {
	Data []ccArticle `json:"Data"`
}

type ccArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	ImageURL    string `json:"imageurl"`
	PublishedOn int64  `json:"published_on"`
	SourceInfo  *struct {
		Name string `json:"name"`
	} `json:"source_info"`
}

// APIClient fetches news from the CryptoCompare JSON API.
type APIClient struct {
	apiURL    string
	imageHost string
	client    *http.Client
}

func NewAPIClient(apiURL, imageHost string, timeout time.Duration) *APIClient {
	return &APIClient{
		apiURL:    apiURL,
		imageHost: imageHost,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "coinfly/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news upstream returned http %d", resp.StatusCode)
	}

	var decoded ccResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding news response: %w", err)
	}

	items := make([]Item, 0, len(decoded.Data))
	for _, a := range decoded.Data {
		if a.URL == "" {
			continue
		}
		item := Item{
			Title:  a.Title,
			URL:    a.URL,
			Source: sourceName(a),
		}
		if item.Title == "" {
			item.Title = "Untitled"
		}
		if a.PublishedOn > 0 {
			t := time.Unix(a.PublishedOn, 0).UTC()
			item.PublishedAt = &t
		}
		if img := imgcache.AbsoluteURL(a.ImageURL, c.imageHost); img != "" {
			item.Image = &img
		}
		items = append(items, item)
	}
	return items, nil
}

func sourceName(a ccArticle) string {
	if a.SourceInfo != nil && a.SourceInfo.Name != "" {
		return a.SourceInfo.Name
	}
	if a.Source != "" {
		return a.Source
	}
	return "News"
}
