package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

const cailianTelegraphURL = "https://www.cls.cn/nodeapi/telegraphList?"

// Cailian reads the telegraph wire of the financial news site.
type Cailian struct {
	client *httpClient
	url    string
}

// NewCailian creates a Cailian adapter. An empty url uses the public wire.
func NewCailian(url string, timeout time.Duration) *Cailian {
	if url == "" {
		url = cailianTelegraphURL
	}
	return &Cailian{client: newHTTPClient(timeout), url: url}
}

func (c *Cailian) Name() Platform { return PlatformCailian }

type cailianResponse struct {
	Error int `json:"error"`
	Data  struct {
		RollData []struct {
			ID         json.RawMessage `json:"id"`
			Ctime      json.RawMessage `json:"ctime"`
			Title      string          `json:"title"`
			Brief      string          `json:"brief"`
			Content    string          `json:"content"`
			Level      string          `json:"level"`
			ReadingNum json.RawMessage `json:"reading_num"`
			CommentNum json.RawMessage `json:"comment_num"`
			ShareURL   string          `json:"shareurl"`
		} `json:"roll_data"`
	} `json:"data"`
}

func (c *Cailian) Fetch(ctx context.Context) ([]normalize.Item, error) {
	headers := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9",
		"Referer":         "https://www.cls.cn/telegraph",
	}

	var resp cailianResponse
	if err := c.client.getJSON(ctx, c.url, headers, &resp); err != nil {
		return nil, fmt.Errorf("cailian: %w", err)
	}
	if resp.Error != 0 {
		return nil, fmt.Errorf("cailian: error code %d: %w", resp.Error, ErrUpstream)
	}

	scrapedAt := stamp()
	items := make([]normalize.Item, 0, len(resp.Data.RollData))
	for _, it := range resp.Data.RollData {
		id := rawText(it.ID)
		link := it.ShareURL
		if link == "" && id != "" {
			link = "https://api3.cls.cn/share/article/" + id + "?os=web&app=CailianpressWeb"
		}

		readNum := rawText(it.ReadingNum)
		if readNum == "" {
			readNum = "0"
		}

		item := normalize.Item{
			"title":       it.Title,
			"excerpt":     plainText(it.Brief),
			"content":     plainText(it.Content),
			"heat_text":   readNum,
			"heat_value":  readNum,
			"url":         link,
			"scraped_at":  scrapedAt,
			"level":       it.Level,
			"id":          jsonScalar(it.ID),
			"ctime":       jsonScalar(it.Ctime),
			"comment_num": jsonScalar(it.CommentNum),
		}
		items = append(items, item)
	}
	return items, nil
}

// jsonScalar keeps numbers as json.Number so they round-trip into extra_json
// unchanged.
func jsonScalar(raw json.RawMessage) any {
	s := rawText(raw)
	if s == "" {
		return nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return s
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return s
	}
	return json.Number(s)
}
