package view

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/elonfeng/hotboard/internal/store"
	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, n int) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	items := make([]normalize.Item, n)
	for i := range items {
		items[i] = normalize.Item{
			"title":      fmt.Sprintf("item %d", i),
			"url":        fmt.Sprintf("https://example.com/%d", i),
			"rank":       i + 1,
			"scraped_at": "2025-01-01 10:00:00",
		}
	}
	_, err = s.UpsertItems(context.Background(), "baidu", items, normalize.Policy{})
	require.NoError(t, err)
	return s
}

func TestRenderPaginates(t *testing.T) {
	s := seeded(t, 45)
	sess := &Session{Page: 1}
	params := Params{Order: store.OrderRankAsc, PageSize: 20}

	p := Render(context.Background(), s, params, sess)
	require.NoError(t, p.Err)
	assert.Equal(t, int64(45), p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Rows, 20)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	sess.Page = p.TotalPages
	p = Render(context.Background(), s, params, sess)
	assert.Equal(t, 3, p.Page)
	require.Len(t, p.Rows, 5)
	assert.Equal(t, "item 40", p.Rows[0].Title)
	assert.False(t, p.HasNext())

	sess.Page++
	p = Render(context.Background(), s, params, sess)
	assert.Equal(t, 3, p.Page, "page clamps to the last page")
	assert.Equal(t, 3, sess.Page)

	sess.Page = -4
	p = Render(context.Background(), s, params, sess)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, "item 0", p.Rows[0].Title)
}

func TestRenderClampsAfterFilterShrinks(t *testing.T) {
	s := seeded(t, 120)
	sess := &Session{Page: 6}

	p := Render(context.Background(), s, Params{
		Filter:   store.Filter{Keyword: "item 1"},
		PageSize: 20,
	}, sess)
	// item 1, item 10-19, item 100-119
	assert.Equal(t, int64(31), p.Total)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, 2, sess.Page)
	assert.Len(t, p.Rows, 11)
}

func TestRenderEmpty(t *testing.T) {
	s := seeded(t, 0)
	p := Render(context.Background(), s, Params{}, nil)
	require.NoError(t, p.Err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.NotNil(t, p.Rows)
	assert.Empty(t, p.Rows)
}

type brokenQuerier struct {
	countErr, queryErr error
}

func (b brokenQuerier) Count(context.Context, store.Filter) (int64, error) {
	return 10, b.countErr
}

func (b brokenQuerier) Query(context.Context, store.QueryOpts) ([]normalize.Record, error) {
	return nil, b.queryErr
}

func TestRenderReportsStorageErrors(t *testing.T) {
	sess := &Session{Page: 4}
	p := Render(context.Background(), brokenQuerier{countErr: errors.New("db locked")}, Params{}, sess)
	assert.EqualError(t, p.Err, "db locked")
	assert.Equal(t, "db locked", p.Error)
	assert.Empty(t, p.Rows)
	assert.Equal(t, 1, sess.Page)

	p = Render(context.Background(), brokenQuerier{queryErr: errors.New("disk I/O")}, Params{}, sess)
	assert.Equal(t, "disk I/O", p.Error)
	assert.NotNil(t, p.Rows)
	assert.Empty(t, p.Rows)
	assert.Equal(t, int64(10), p.Total)
}

func TestPageSize(t *testing.T) {
	for _, size := range PageSizes {
		assert.Equal(t, size, PageSize(size))
	}
	assert.Equal(t, DefaultPageSize, PageSize(0))
	assert.Equal(t, DefaultPageSize, PageSize(7))
	assert.Equal(t, DefaultPageSize, PageSize(1000))
}

func TestHeatDisplay(t *testing.T) {
	tests := []struct {
		name string
		rec  normalize.Record
		want string
	}{
		{"wan", normalize.Record{HeatValue: normalize.Int64(7904613)}, "790万"},
		{"exact", normalize.Record{HeatValue: normalize.Int64(10000)}, "1万"},
		{"small", normalize.Record{HeatValue: normalize.Int64(9999)}, "9999"},
		{"text fallback", normalize.Record{HeatText: normalize.String("热")}, "热"},
		{"nothing", normalize.Record{}, "—"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeatDisplay(tt.rec))
		})
	}
}

func TestCards(t *testing.T) {
	p := Page{Rows: []normalize.Record{
		{Platform: "cailian", Title: "快讯", URL: "https://x", Rank: normalize.Int64(3), ScrapedDate: "2025-01-01"},
		{Platform: "rss", URL: "https://y"},
	}}
	cards := p.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "财联社", cards[0].Platform)
	assert.Equal(t, "3", cards[0].Rank)
	assert.Equal(t, "—", cards[0].ScrapedAt)
	assert.Equal(t, "rss", cards[1].Platform)
	assert.Equal(t, "无标题", cards[1].Title)
	assert.Equal(t, "—", cards[1].Heat)
}

func TestOrderOptionsStartWithDefault(t *testing.T) {
	assert.Equal(t, store.DefaultOrder, OrderOptions[0].Order)
	assert.Equal(t, "微博", PlatformLabel("weibo"))
}
