package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

const (
	weiboAPIURL  = "https://weibo.com/ajax/side/hotSearch"
	weiboReferer = "https://weibo.com/hot/search"
)

var xsrfRe = regexp.MustCompile(`\bXSRF-TOKEN=([^;]+)`)

// Weibo reads the side hot search list of the microblogging site. The API
// requires a logged-in cookie.
type Weibo struct {
	client *httpClient
	url    string
	cookie string
}

// NewWeibo creates a Weibo adapter. An empty apiURL uses the public endpoint.
func NewWeibo(apiURL, cookie string, timeout time.Duration) *Weibo {
	if apiURL == "" {
		apiURL = weiboAPIURL
	}
	return &Weibo{client: newHTTPClient(timeout), url: apiURL, cookie: strings.TrimSpace(cookie)}
}

func (w *Weibo) Name() Platform { return PlatformWeibo }

type weiboResponse struct {
	Data struct {
		Realtime []struct {
			Note       string          `json:"note"`
			Word       string          `json:"word"`
			WordScheme string          `json:"word_scheme"`
			Num        json.RawMessage `json:"num"`
			Rank       *int            `json:"rank"`
			LabelName  string          `json:"label_name"`
			IsAd       int             `json:"is_ad"`
		} `json:"realtime"`
	} `json:"data"`
}

func (w *Weibo) Fetch(ctx context.Context) ([]normalize.Item, error) {
	if w.cookie == "" {
		return nil, fmt.Errorf("weibo: cookie not configured: %w", ErrForbidden)
	}

	var resp weiboResponse
	if err := w.client.getJSON(ctx, w.url, w.headers(), &resp); err != nil {
		return nil, fmt.Errorf("weibo: %w", err)
	}

	scrapedAt := stamp()
	items := make([]normalize.Item, 0, len(resp.Data.Realtime))
	for i, rt := range resp.Data.Realtime {
		if rt.IsAd == 1 {
			continue
		}
		title := rt.Note
		if title == "" {
			title = rt.Word
		}
		scheme := rt.WordScheme
		if scheme == "" && rt.Word != "" {
			scheme = "#" + rt.Word + "#"
		}

		heatText := rawText(rt.Num)
		item := normalize.Item{
			"title":       title,
			"url":         "https://s.weibo.com/weibo?q=" + safeQuery(scheme) + "&t=31",
			"heat_text":   heatText,
			"rank":        i + 1,
			"word_scheme": scheme,
			"scraped_at":  scrapedAt,
		}
		if rt.Rank != nil {
			item["rank"] = *rt.Rank + 1
		}
		if v, ok := normalize.ParseHeat(heatText); ok {
			item["heat_value"] = v
		}
		if rt.LabelName != "" {
			item["labels"] = []string{rt.LabelName}
		}
		items = append(items, item)
	}
	return items, nil
}

func (w *Weibo) headers() map[string]string {
	h := map[string]string{
		"User-Agent":       desktopUA,
		"Accept":           "application/json, text/plain, */*",
		"Accept-Language":  "zh-CN,zh;q=0.9",
		"Referer":          weiboReferer,
		"Cookie":           w.cookie,
		"X-Requested-With": "XMLHttpRequest",
	}
	if m := xsrfRe.FindStringSubmatch(w.cookie); m != nil {
		h["X-XSRF-TOKEN"] = m[1]
	}
	return h
}

// safeQuery escapes a search term unless it already carries escapes.
func safeQuery(s string) string {
	if strings.Contains(s, "%") {
		return s
	}
	return url.QueryEscape(s)
}
