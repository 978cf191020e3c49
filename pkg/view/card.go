package view

import (
	"strconv"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

const dash = "—"

// Card is a record formatted for display. Missing values read as a dash.
type Card struct {
	Platform    string `json:"platform"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Rank        string `json:"rank"`
	Heat        string `json:"heat"`
	ScrapedDate string `json:"scraped_date"`
	ScrapedAt   string `json:"scraped_at"`
	Excerpt     string `json:"excerpt,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// NewCard formats r.
func NewCard(r normalize.Record) Card {
	c := Card{
		Platform:    PlatformLabel(r.Platform),
		Title:       r.Title,
		URL:         r.URL,
		Rank:        dash,
		Heat:        HeatDisplay(r),
		ScrapedDate: orDefault(r.ScrapedDate, dash),
		ScrapedAt:   orDefault(r.ScrapedAt, dash),
	}
	if c.Title == "" {
		c.Title = "无标题"
	}
	if r.Rank != nil {
		c.Rank = strconv.FormatInt(*r.Rank, 10)
	}
	if r.Excerpt != nil {
		c.Excerpt = *r.Excerpt
	}
	if r.ImageURL != nil {
		c.ImageURL = *r.ImageURL
	}
	return c
}

// Cards formats every row of p.
func (p Page) Cards() []Card {
	cards := make([]Card, len(p.Rows))
	for i, r := range p.Rows {
		cards[i] = NewCard(r)
	}
	return cards
}

func orDash(s *string) string {
	if s == nil {
		return dash
	}
	return orDefault(*s, dash)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
