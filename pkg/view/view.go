// Package view turns history queries into paginated, display-ready pages.
// Pagination state lives in a caller-owned Session so the same code serves
// the HTTP API, the CLI and any future front end.
package view

import (
	"context"
	"math"
	"strconv"

	"github.com/elonfeng/hotboard/internal/store"
	"github.com/elonfeng/hotboard/pkg/normalize"
)

// DefaultPageSize is used when a caller asks for an unsupported size.
const DefaultPageSize = 50

// PageSizes are the page sizes offered to users.
var PageSizes = []int{20, 50, 100, 200}

// Querier is the read side of the store.
type Querier interface {
	Count(ctx context.Context, f store.Filter) (int64, error)
	Query(ctx context.Context, opts store.QueryOpts) ([]normalize.Record, error)
}

// Params describes one history view.
type Params struct {
	Filter   store.Filter
	Order    store.Order
	PageSize int
}

// Session is the pagination state carried between renders.
type Session struct {
	Page int `json:"page"`
}

// Page is one rendered page of history.
type Page struct {
	Rows       []normalize.Record `json:"rows"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	PageSize   int                `json:"page_size"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// PageSize returns size when it is one of PageSizes, else DefaultPageSize.
func PageSize(size int) int {
	for _, s := range PageSizes {
		if s == size {
			return size
		}
	}
	return DefaultPageSize
}

// Render counts matches, clamps the session page into range and loads that
// page. Storage errors never escape: they are reported on the page next to an
// empty row set. A nil session renders the first page.
func Render(ctx context.Context, q Querier, params Params, sess *Session) Page {
	if sess == nil {
		sess = &Session{Page: 1}
	}
	size := PageSize(params.PageSize)
	page := Page{Rows: []normalize.Record{}, PageSize: size, Page: 1, TotalPages: 1}

	total, err := q.Count(ctx, params.Filter)
	if err != nil {
		sess.Page = 1
		return page.fail(err)
	}

	page.Total = total
	page.TotalPages = totalPages(total, size)
	sess.Page = min(max(1, sess.Page), page.TotalPages)
	page.Page = sess.Page

	rows, err := q.Query(ctx, store.QueryOpts{
		Filter: params.Filter,
		Order:  params.Order,
		Limit:  size,
		Offset: (sess.Page - 1) * size,
	})
	if err != nil {
		return page.fail(err)
	}
	page.Rows = rows
	return page
}

func (p Page) fail(err error) Page {
	p.Err = err
	p.Error = err.Error()
	return p
}

func totalPages(total int64, size int) int {
	n := int(math.Ceil(float64(total) / float64(size)))
	return max(1, n)
}

// HeatDisplay renders the popularity of r: values of ten thousand and up in
// 万, smaller values as integers, else the raw heat text.
func HeatDisplay(r normalize.Record) string {
	if r.HeatValue != nil {
		hv := float64(*r.HeatValue)
		if hv >= 10000 {
			return strconv.FormatFloat(hv/10000, 'f', 0, 64) + "万"
		}
		return strconv.FormatInt(*r.HeatValue, 10)
	}
	return orDash(r.HeatText)
}

var platformLabels = map[string]string{
	"baidu":   "百度",
	"weibo":   "微博",
	"zhihu":   "知乎",
	"douyin":  "抖音",
	"cailian": "财联社",
}

// PlatformLabel returns the display name of a platform, or the platform
// itself when it has none.
func PlatformLabel(platform string) string {
	if l, ok := platformLabels[platform]; ok {
		return l
	}
	return platform
}

// OrderOption pairs a user-facing label with a sort order.
type OrderOption struct {
	Label string
	Order store.Order
}

// OrderOptions lists the sort orders offered to users, default first.
var OrderOptions = []OrderOption{
	{"按抓取时间（最新→最旧）", store.OrderScrapedAtDesc},
	{"按抓取时间（最旧→最新）", store.OrderScrapedAtAsc},
	{"按热度（高→低）", store.OrderHeatValueDesc},
	{"按热度（低→高）", store.OrderHeatValueAsc},
	{"按排名（低→高）", store.OrderRankAsc},
	{"按排名（高→低）", store.OrderRankDesc},
}
