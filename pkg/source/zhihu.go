package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

const zhihuUA = "osee2unifiedRelease/4318 osee2unifiedReleaseVersion/7.7.0 Mozilla/5.0 (iPhone; CPU iPhone OS 14_4_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"

// ZhihuEndpoints are tried in order; the first one that answers wins.
var ZhihuEndpoints = []string{
	"https://api.zhihu.com/topstory/hot-list?reverse_order=0",
	"https://www.zhihu.com/api/v3/feed/topstory/hot-lists/total",
}

// Zhihu reads the hot question list of the Q&A site.
type Zhihu struct {
	client    *httpClient
	endpoints []string
	limit     int
}

// NewZhihu creates a Zhihu adapter returning at most limit items.
func NewZhihu(endpoints []string, limit int, timeout time.Duration) *Zhihu {
	if len(endpoints) == 0 {
		endpoints = ZhihuEndpoints
	}
	if limit <= 0 {
		limit = 50
	}
	return &Zhihu{client: newHTTPClient(timeout), endpoints: endpoints, limit: limit}
}

func (z *Zhihu) Name() Platform { return PlatformZhihu }

type zhihuTarget struct {
	ID            json.RawMessage `json:"id"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Excerpt       string          `json:"excerpt"`
	AnswerCount   *int            `json:"answer_count"`
	FollowerCount *int            `json:"follower_count"`
}

type zhihuResponse struct {
	Data []struct {
		zhihuTarget
		Target     *zhihuTarget `json:"target"`
		DetailText string       `json:"detail_text"`
		Children   []struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"children"`
	} `json:"data"`
}

func (z *Zhihu) Fetch(ctx context.Context) ([]normalize.Item, error) {
	resp, err := z.fetchFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("zhihu: %w", err)
	}

	scrapedAt := stamp()
	var items []normalize.Item
	for i, d := range resp.Data {
		target := d.Target
		if target == nil {
			target = &d.zhihuTarget
		}
		if target.Title == "" {
			continue
		}

		item := normalize.Item{
			"rank":       i + 1,
			"title":      target.Title,
			"url":        questionURL(target),
			"scraped_at": scrapedAt,
		}
		if ex := plainText(target.Excerpt); ex != "" {
			item["excerpt"] = ex
		}
		if target.AnswerCount != nil {
			item["answer_count"] = *target.AnswerCount
		}
		if target.FollowerCount != nil {
			item["follower_count"] = *target.FollowerCount
		}
		if heat, ok := normalize.FormatWan(d.DetailText); ok {
			item["heat_text"] = heat
			if v, ok := normalize.ParseHeat(heat); ok {
				item["heat_value"] = v
			}
		}
		if len(d.Children) > 0 && d.Children[0].Thumbnail != "" {
			item["image_url"] = d.Children[0].Thumbnail
		}

		items = append(items, item)
		if len(items) >= z.limit {
			break
		}
	}
	return items, nil
}

func (z *Zhihu) fetchFirst(ctx context.Context) (*zhihuResponse, error) {
	headers := map[string]string{"User-Agent": zhihuUA}
	var errs []error
	for _, endpoint := range z.endpoints {
		var resp zhihuResponse
		err := z.client.getJSON(ctx, withLimit(endpoint, z.limit), headers, &resp)
		if err == nil {
			return &resp, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func withLimit(endpoint string, limit int) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String()
}

func questionURL(t *zhihuTarget) string {
	if t.URL != "" {
		u := strings.Replace(t.URL, "//api.zhihu.com", "//www.zhihu.com", 1)
		return strings.Replace(u, "/questions/", "/question/", 1)
	}
	if id := rawText(t.ID); id != "" {
		return "https://www.zhihu.com/question/" + id
	}
	return ""
}
