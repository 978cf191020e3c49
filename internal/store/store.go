package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elonfeng/hotboard/internal/logging"
	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrInvalidRecord is returned when a record without title or url, or with an
// unreadable scraped_at, reaches the write path.
var ErrInvalidRecord = errors.New("invalid record")

// Filter is a conjunction of optional predicates. Zero values impose no
// constraint.
type Filter struct {
	Keyword   string
	Platforms []string
	DateFrom  string // inclusive, YYYY-MM-DD
	DateTo    string // inclusive, YYYY-MM-DD
}

// QueryOpts controls history listing.
type QueryOpts struct {
	Filter
	Order  Order
	Limit  int // negative means unlimited
	Offset int
}

// PlatformStat summarises the stored rows of one platform.
type PlatformStat struct {
	Platform      string `db:"platform" json:"platform"`
	Items         int64  `db:"items" json:"items"`
	LastScrapedAt string `db:"last_scraped_at" json:"last_scraped_at"`
}

// Store is the persistence interface.
type Store interface {
	UpsertBatch(ctx context.Context, records []normalize.Record) (int64, error)
	UpsertItems(ctx context.Context, platform string, items []normalize.Item, p normalize.Policy) (int64, error)

	Count(ctx context.Context, f Filter) (int64, error)
	Query(ctx context.Context, opts QueryOpts) ([]normalize.Record, error)
	ListPlatforms(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) ([]PlatformStat, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sqlx.DB
	ownConn bool
	now     func() time.Time
}

// New opens (creating if needed) a SQLite database and runs migrations. The
// returned store owns the connection.
func New(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	s := &SQLiteStore{db: db, ownConn: true, now: time.Now}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps a connection owned by the caller. Close leaves it open and
// no migrations are run.
func NewWithDB(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Migrate creates the history table and its indexes if missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.ownConn {
		return nil
	}
	return s.db.Close()
}

const upsertSQL = `
	INSERT INTO hot_items_history
		(platform, topic_key, title, url, image_url, excerpt,
		 heat_text, heat_value, rank, tags_text, scraped_at, scraped_date, extra_json)
	VALUES
		(:platform, :topic_key, :title, :url, :image_url, :excerpt,
		 :heat_text, :heat_value, :rank, :tags_text, :scraped_at, :scraped_date, :extra_json)
	ON CONFLICT(platform, url, scraped_date) DO UPDATE SET
		topic_key = excluded.topic_key,
		title = excluded.title,
		image_url = excluded.image_url,
		excerpt = excluded.excerpt,
		heat_text = excluded.heat_text,
		heat_value = excluded.heat_value,
		rank = excluded.rank,
		tags_text = excluded.tags_text,
		scraped_at = excluded.scraped_at,
		extra_json = excluded.extra_json
`

// UpsertBatch writes records in one transaction. A record whose
// (platform, url, scraped_date) already exists is overwritten in place; later
// records in the slice win over earlier ones with the same key. scraped_at is
// re-rendered as normalize.TimeLayout and scraped_date derived from it. The result is
// the engine's rows-affected total.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, records []normalize.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	loc := s.now().Location()
	rows := make([]normalize.Record, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Title) == "" || strings.TrimSpace(rec.URL) == "" {
			return 0, fmt.Errorf("upsert %s record %d: %w", rec.Platform, i, ErrInvalidRecord)
		}
		at, ok := normalize.ParseTimestamp(rec.ScrapedAt, loc)
		if !ok {
			return 0, fmt.Errorf("upsert %s record %d: scraped_at %q: %w", rec.Platform, i, rec.ScrapedAt, ErrInvalidRecord)
		}
		rec.ScrapedAt = at
		rec.ScrapedDate, _, _ = strings.Cut(at, " ")
		rows[i] = rec
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	var affected int64
	for i := range rows {
		res, err := stmt.ExecContext(ctx, &rows[i])
		if err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", rows[i].Platform, rows[i].URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("upsert rows affected: %w", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return affected, nil
}

// UpsertItems normalizes raw adapter items with the platform's routing policy
// and writes the survivors as one batch. Items missing a title or url are
// dropped silently.
func (s *SQLiteStore) UpsertItems(ctx context.Context, platform string, items []normalize.Item, p normalize.Policy) (int64, error) {
	records, rejected := normalize.NormalizeBatch(platform, items, p, s.now())
	if rejected > 0 {
		logging.Platform(platform).WithField("rejected", rejected).Debug("dropped items without title or url")
	}
	return s.UpsertBatch(ctx, records)
}

func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args, err := f.where()
	if err != nil {
		return 0, err
	}

	var n int64
	query := s.db.Rebind("SELECT COUNT(*) FROM hot_items_history WHERE " + where)
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Query(ctx context.Context, opts QueryOpts) ([]normalize.Record, error) {
	where, args, err := opts.where()
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit < 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, platform, topic_key, title, url, image_url, excerpt,
		       heat_text, heat_value, rank, tags_text, scraped_at, scraped_date, extra_json
		FROM hot_items_history
		WHERE ` + where + `
		ORDER BY ` + opts.Order.clause() + `
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	records := []normalize.Record{}
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) ListPlatforms(ctx context.Context) ([]string, error) {
	platforms := []string{}
	err := s.db.SelectContext(ctx, &platforms,
		"SELECT DISTINCT platform FROM hot_items_history WHERE platform <> '' ORDER BY platform")
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return platforms, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) ([]PlatformStat, error) {
	stats := []PlatformStat{}
	err := s.db.SelectContext(ctx, &stats, `
		SELECT platform, COUNT(*) AS items, MAX(scraped_at) AS last_scraped_at
		FROM hot_items_history
		GROUP BY platform
		ORDER BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	return stats, nil
}

func (f Filter) where() (string, []any, error) {
	clauses := []string{"1=1"}
	var args []any

	if len(f.Platforms) > 0 {
		in, inArgs, err := sqlx.In("platform IN (?)", f.Platforms)
		if err != nil {
			return "", nil, fmt.Errorf("build platform filter: %w", err)
		}
		clauses = append(clauses, in)
		args = append(args, inArgs...)
	}
	if f.Keyword != "" {
		kw := "%" + escapeLike(f.Keyword) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')`)
		args = append(args, kw, kw, kw)
	}
	if f.DateFrom != "" {
		clauses = append(clauses, "scraped_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, "scraped_date <= ?")
		args = append(args, f.DateTo)
	}

	return strings.Join(clauses, " AND "), args, nil
}

// escapeLike makes LIKE wildcards in s match literally under ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
