package source

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/elonfeng/hotboard/pkg/normalize"
)

const (
	baiduBoardURL = "https://top.baidu.com/board?tab=realtime"
	baiduHost     = "https://www.baidu.com"
)

// Baidu scrapes the realtime board of the search engine.
type Baidu struct {
	client *httpClient
	url    string
}

// NewBaidu creates a Baidu adapter. An empty url uses the public board.
func NewBaidu(url string, timeout time.Duration) *Baidu {
	if url == "" {
		url = baiduBoardURL
	}
	return &Baidu{client: newHTTPClient(timeout), url: url}
}

func (b *Baidu) Name() Platform { return PlatformBaidu }

func (b *Baidu) Fetch(ctx context.Context) ([]normalize.Item, error) {
	body, err := b.client.get(ctx, b.url, nil)
	if err != nil {
		return nil, err
	}
	return parseBaidu(body, stamp())
}

func parseBaidu(body []byte, scrapedAt string) ([]normalize.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse baidu html: %w", err)
	}

	var items []normalize.Item
	doc.Find("div.category-wrap_iQLoo").Each(func(i int, card *goquery.Selection) {
		item := normalize.Item{"scraped_at": scrapedAt}

		rank := strings.TrimSpace(card.Find("div.index_1Ew5p").First().Text())
		if n, err := strconv.Atoi(rank); err == nil {
			item["rank"] = n
		} else {
			item["rank"] = i + 1
		}

		img := card.Find("a.img-wrapper_29V76 img").First()
		if src, ok := img.Attr("src"); ok && src != "" {
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			item["image_url"] = src
		}

		item["title"] = strings.TrimSpace(card.Find("div.c-single-text-ellipsis").First().Text())

		desc := card.Find("div.hot-desc_1m_jR").First().Text()
		desc = strings.TrimSpace(strings.ReplaceAll(desc, "查看更多>", ""))
		if desc != "" {
			item["excerpt"] = desc
		}

		heat := strings.TrimSpace(card.Find("div.hot-index_1Bl1a").First().Text())
		if heat != "" {
			item["heat_text"] = heat
			if v, ok := normalize.ParseHeat(heat); ok {
				item["heat_value"] = v
			}
		}

		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			if !strings.HasPrefix(href, "http") {
				href = baiduHost + href
			}
			item["url"] = href
		}

		items = append(items, item)
	})

	return items, nil
}
