package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Timestamp layouts of scraped_at and scraped_date.
const (
	TimeLayout = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

// Normalize maps one raw item into a canonical record. The second return is
// false when the item lacks a title or url and must be dropped. now is the
// capture time used when the item carries no usable scraped_at; its location
// is also the zone scraped_at values are rendered in.
func Normalize(platform string, raw Item, p Policy, now time.Time) (Record, bool) {
	if !Accepts(raw) {
		return Record{}, false
	}
	title := strings.TrimSpace(stringOf(raw["title"]))
	url := strings.TrimSpace(stringOf(raw["url"]))

	scrapedAt := captureTime(raw["scraped_at"], now)
	scrapedDate, _, _ := strings.Cut(scrapedAt, " ")

	heat, ok := raw["heat_value"]
	if !ok {
		heat = raw["num"]
	}

	rec := Record{
		Platform:    platform,
		Title:       title,
		URL:         url,
		ImageURL:    optString(raw["image_url"]),
		Excerpt:     optString(raw["excerpt"]),
		HeatText:    optString(raw["heat_text"]),
		HeatValue:   optInt(heat),
		Rank:        optInt(raw["rank"]),
		ScrapedAt:   scrapedAt,
		ScrapedDate: scrapedDate,
	}

	if p.TopicKeyField != "" {
		rec.TopicKey = optString(raw[p.TopicKeyField])
	}
	if p.TagsField != "" {
		rec.TagsText = joinTags(raw[p.TagsField])
	}
	rec.ExtraJSON = extraJSON(raw, p.ExtraFields)

	return rec, true
}

// Accepts reports whether raw carries the two required fields.
func Accepts(raw Item) bool {
	return strings.TrimSpace(stringOf(raw["title"])) != "" &&
		strings.TrimSpace(stringOf(raw["url"])) != ""
}

// NormalizeBatch normalizes items in order and reports how many were rejected.
func NormalizeBatch(platform string, items []Item, p Policy, now time.Time) ([]Record, int) {
	records := make([]Record, 0, len(items))
	rejected := 0
	for _, it := range items {
		rec, ok := Normalize(platform, it, p, now)
		if !ok {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	return records, rejected
}

// CoerceInt converts v to an integer: direct integer parse first, then float
// truncation. Anything else, including nil and "", yields false.
func CoerceInt(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return truncate(float64(x))
	case float64:
		return truncate(x)
	case json.Number:
		return coerceString(x.String())
	case string:
		return coerceString(x)
	}
	return 0, false
}

func coerceString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return truncate(f)
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func optInt(v any) *int64 {
	n, ok := CoerceInt(v)
	if !ok {
		return nil
	}
	return &n
}

func optString(v any) *string {
	s := strings.TrimSpace(stringOf(v))
	if s == "" {
		return nil
	}
	return &s
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func captureTime(v any, now time.Time) string {
	loc := now.Location()
	switch x := v.(type) {
	case time.Time:
		if !x.IsZero() {
			return x.In(loc).Format(TimeLayout)
		}
	case string:
		if at, ok := ParseTimestamp(x, loc); ok {
			return at
		}
	}
	return now.Format(TimeLayout)
}

// ParseTimestamp reads a scraped_at value in any common layout and renders it
// as TimeLayout in loc. Values without a zone are taken to be in loc.
func ParseTimestamp(s string, loc *time.Location) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return "", false
	}
	return t.In(loc).Format(TimeLayout), true
}

func joinTags(v any) *string {
	var raw []any
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	case []any:
		raw = x
	default:
		return nil
	}

	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if s := strings.TrimSpace(stringOf(t)); s != "" {
			tags = append(tags, s)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	joined := strings.Join(tags, "|")
	return &joined
}

func extraJSON(raw Item, fields []string) *string {
	extra := make(map[string]any)
	for _, k := range fields {
		if v, ok := raw[k]; ok {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(extra); err != nil {
		return nil
	}
	s := strings.TrimRight(buf.String(), "\n")
	return &s
}
