package store

const schema = `
CREATE TABLE IF NOT EXISTS hot_items_history (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    platform     TEXT NOT NULL,
    topic_key    TEXT,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    image_url    TEXT,
    excerpt      TEXT,
    heat_text    TEXT,
    heat_value   INTEGER,
    rank         INTEGER,
    tags_text    TEXT,
    scraped_at   TEXT NOT NULL,
    scraped_date TEXT NOT NULL,
    extra_json   TEXT,
    UNIQUE(platform, url, scraped_date) ON CONFLICT REPLACE
);

CREATE INDEX IF NOT EXISTS idx_hot_hist_platform_date ON hot_items_history(platform, scraped_date);
CREATE INDEX IF NOT EXISTS idx_hot_hist_date ON hot_items_history(scraped_date);
CREATE INDEX IF NOT EXISTS idx_hot_hist_heat_value ON hot_items_history(heat_value);
CREATE INDEX IF NOT EXISTS idx_hot_hist_rank ON hot_items_history(rank);
`
