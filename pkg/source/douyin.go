package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

const douyinHotURL = "https://www.douyin.com/aweme/v1/web/hot/search/list/?device_platform=webapp&aid=6383&channel=channel_pc_web&detail_list=1&source=6&main_billboard_count=5&update_version_code=170400&pc_client_type=1&pc_libra_divert=Mac&support_h265=1&support_dash=1&cpu_core_num=8&version_code=170400&version_name=17.4.0&cookie_enabled=true&screen_width=1512&screen_height=982"

// Douyin reads the hot search billboard of the short-video site.
type Douyin struct {
	client    *httpClient
	url       string
	userAgent string
	cookie    string
}

// NewDouyin creates a Douyin adapter. Empty url and userAgent use defaults.
func NewDouyin(hotURL, userAgent, cookie string, timeout time.Duration) *Douyin {
	if hotURL == "" {
		hotURL = douyinHotURL
	}
	if userAgent == "" {
		userAgent = desktopUA
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Douyin{client: newHTTPClient(timeout), url: hotURL, userAgent: userAgent, cookie: cookie}
}

func (d *Douyin) Name() Platform { return PlatformDouyin }

type douyinResponse struct {
	Data struct {
		WordList []struct {
			Word       string          `json:"word"`
			SentenceID json.RawMessage `json:"sentence_id"`
			HotValue   json.RawMessage `json:"hot_value"`
			WordCover  struct {
				URLList []string `json:"url_list"`
			} `json:"word_cover"`
		} `json:"word_list"`
	} `json:"data"`
}

func (d *Douyin) Fetch(ctx context.Context) ([]normalize.Item, error) {
	headers := map[string]string{
		"User-Agent": d.userAgent,
		"Accept":     "application/json, text/plain, */*",
		"Referer":    "https://www.douyin.com/hot",
		"Cookie":     d.cookie,
	}

	var resp douyinResponse
	if err := d.client.getJSON(ctx, d.url, headers, &resp); err != nil {
		return nil, fmt.Errorf("douyin: %w", err)
	}

	scrapedAt := stamp()
	items := make([]normalize.Item, 0, len(resp.Data.WordList))
	for _, w := range resp.Data.WordList {
		id := rawText(w.SentenceID)
		if w.Word == "" || id == "" {
			continue
		}

		item := normalize.Item{
			"title":       w.Word,
			"url":         "https://www.douyin.com/hot/" + id + "/" + url.PathEscape(w.Word),
			"heat_value":  rawText(w.HotValue),
			"sentence_id": id,
			"scraped_at":  scrapedAt,
		}
		if len(w.WordCover.URLList) > 0 {
			item["image_url"] = w.WordCover.URLList[0]
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		hi, _ := normalize.CoerceInt(items[i]["heat_value"])
		hj, _ := normalize.CoerceInt(items[j]["heat_value"])
		return hi > hj
	})
	for i := range items {
		items[i]["rank"] = i + 1
	}
	return items, nil
}
