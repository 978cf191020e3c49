package normalize

// Item is one loosely-typed entry as emitted by a source adapter.
type Item map[string]any

// Record is the canonical, platform-agnostic hot item row.
type Record struct {
	ID          int64   `json:"id" db:"id"`
	Platform    string  `json:"platform" db:"platform"`
	TopicKey    *string `json:"topic_key,omitempty" db:"topic_key"`
	Title       string  `json:"title" db:"title"`
	URL         string  `json:"url" db:"url"`
	ImageURL    *string `json:"image_url,omitempty" db:"image_url"`
	Excerpt     *string `json:"excerpt,omitempty" db:"excerpt"`
	HeatText    *string `json:"heat_text,omitempty" db:"heat_text"`
	HeatValue   *int64  `json:"heat_value,omitempty" db:"heat_value"`
	Rank        *int64  `json:"rank,omitempty" db:"rank"`
	TagsText    *string `json:"tags_text,omitempty" db:"tags_text"`
	ScrapedAt   string  `json:"scraped_at" db:"scraped_at"`
	ScrapedDate string  `json:"scraped_date" db:"scraped_date"`
	ExtraJSON   *string `json:"extra_json,omitempty" db:"extra_json"`
}

// Policy routes platform-specific raw fields into canonical slots.
// Fields named here but missing from an item are skipped.
type Policy struct {
	TopicKeyField string   `yaml:"topic_key_field" json:"topic_key_field,omitempty"`
	TagsField     string   `yaml:"tags_field" json:"tags_field,omitempty"`
	ExtraFields   []string `yaml:"extra_fields" json:"extra_fields,omitempty"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
