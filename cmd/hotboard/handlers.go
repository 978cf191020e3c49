package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/elonfeng/hotboard/internal/config"
	"github.com/elonfeng/hotboard/internal/logging"
	"github.com/elonfeng/hotboard/internal/scheduler"
	"github.com/elonfeng/hotboard/internal/store"
	"github.com/elonfeng/hotboard/pkg/alert"
	"github.com/elonfeng/hotboard/pkg/server"
	"github.com/elonfeng/hotboard/pkg/source"
	"github.com/elonfeng/hotboard/pkg/view"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// buildSources returns the enabled adapters in configured order.
func buildSources(cfg *config.Config) []source.Source {
	var sources []source.Source
	seen := make(map[source.Platform]bool)
	for _, name := range cfg.Sources.Order {
		p := source.Platform(strings.ToLower(strings.TrimSpace(name)))
		if seen[p] {
			continue
		}
		seen[p] = true
		if src := newSource(p, cfg.Sources); src != nil {
			sources = append(sources, src)
		}
	}
	return sources
}

func newSource(p source.Platform, sc config.SourcesConfig) source.Source {
	timeout := sc.ParseTimeout()
	switch p {
	case source.PlatformBaidu:
		if sc.Baidu.Enabled {
			return source.NewBaidu(sc.Baidu.URL, timeout)
		}
	case source.PlatformWeibo:
		if sc.Weibo.Enabled {
			return source.NewWeibo(sc.Weibo.URL, sc.Weibo.Cookie, timeout)
		}
	case source.PlatformDouyin:
		if sc.Douyin.Enabled {
			return source.NewDouyin(sc.Douyin.URL, sc.Douyin.UserAgent, sc.Douyin.Cookie, 0)
		}
	case source.PlatformZhihu:
		if sc.Zhihu.Enabled {
			return source.NewZhihu(sc.Zhihu.Endpoints, sc.Zhihu.Limit, timeout)
		}
	case source.PlatformCailian:
		if sc.Cailian.Enabled {
			return source.NewCailian(sc.Cailian.URL, timeout)
		}
	case source.PlatformRSS:
		if sc.RSS.Enabled && len(sc.RSS.Feeds) > 0 {
			feeds := make([]source.RSSFeed, len(sc.RSS.Feeds))
			for i, f := range sc.RSS.Feeds {
				feeds[i] = source.RSSFeed{Name: f.Name, URL: f.URL}
			}
			return source.NewRSS(feeds, timeout)
		}
	default:
		logging.Log.WithField("platform", p).Warn("unknown platform in sources.order")
	}
	return nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func buildScheduler(cfg *config.Config, db store.Store, sources []source.Source) *scheduler.Scheduler {
	return scheduler.New(db, sources, scheduler.Options{
		Filter:     source.NewFilter(cfg.Filter.ExcludeKeywords),
		Alerts:     buildAlertManager(cfg),
		Spec:       cfg.Schedule.Spec(),
		RunOnStart: cfg.Schedule.RunOnStart,
	})
}

func runInitDB() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("database ready: %s\n", cfg.Database.Path)
	return nil
}

func runCollect(platforms []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sources := buildSources(cfg)
	if len(platforms) > 0 {
		wanted := make(map[string]bool)
		for _, p := range platforms {
			wanted[strings.ToLower(strings.TrimSpace(p))] = true
		}
		var picked []source.Source
		for _, s := range sources {
			if wanted[string(s.Name())] {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			return fmt.Errorf("no enabled platforms match: %s", strings.Join(platforms, ", "))
		}
		sources = picked
	}

	report := buildScheduler(cfg, db, sources).RunOnce(context.Background())
	if err := printReport(os.Stdout, report); err != nil {
		return err
	}
	if n := report.Failures(); n > 0 && n == len(report.Results) {
		return fmt.Errorf("all %d platforms failed", n)
	}
	return nil
}

func printReport(out io.Writer, report scheduler.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tFETCHED\tSTORED\tREJECTED\tERROR")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", r.Platform, r.Fetched, r.Stored, r.Rejected, r.Error)
	}
	fmt.Fprintf(w, "total\t\t%d\t\t\n", report.Total)
	return w.Flush()
}

func runDaemon(port int, interval string, noServe bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if interval != "" {
		cfg.Schedule.Interval = interval
		cfg.Schedule.Cron = ""
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := buildScheduler(cfg, db, buildSources(cfg))
	if noServe {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	return runBoth(ctx, sched, server.New(db, sched, port, cfg.Server.PageSize).ListenAndServe)
}

type runner interface {
	Run(ctx context.Context) error
}

// runBoth serves until serve returns or the scheduler fails, then waits for
// the scheduler to finish its in-flight cycle so the store outlives it.
func runBoth(ctx context.Context, sched runner, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Log.WithError(err).Error("scheduler stopped")
			cancel()
		}
	}()

	err := serve(ctx)
	cancel()
	<-schedDone
	return err
}

type historyOpts struct {
	keyword    string
	platforms  []string
	from, to   string
	order      string
	page       int
	pageSize   int
	jsonOutput bool
}

func runHistory(opts historyOpts) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sess := &view.Session{Page: opts.page}
	page := view.Render(context.Background(), db, view.Params{
		Filter: store.Filter{
			Keyword:   opts.keyword,
			Platforms: opts.platforms,
			DateFrom:  opts.from,
			DateTo:    opts.to,
		},
		Order:    store.ParseOrder(opts.order),
		PageSize: opts.pageSize,
	}, sess)
	if page.Err != nil {
		return fmt.Errorf("query history: %w", page.Err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(page)
	}
	return printPage(os.Stdout, page)
}

func orderUsage() string {
	names := make([]string, len(view.OrderOptions))
	for i, o := range view.OrderOptions {
		names[i] = fmt.Sprintf("%q", o.Order.String())
	}
	return "sort order, one of " + strings.Join(names, ", ")
}

func printPage(out io.Writer, page view.Page) error {
	if page.Total == 0 {
		fmt.Fprintln(out, "no history found (try collecting data first: hotboard collect)")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tRANK\tHEAT\tTITLE\tSCRAPED AT\tURL")
	for _, c := range page.Cards() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Platform, c.Rank, c.Heat, c.Title, c.ScrapedAt, c.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\npage %d/%d · %d per page · %d total\n", page.Page, page.TotalPages, page.PageSize, page.Total)
	return nil
}

func runPlatforms(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("platform stats: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tLABEL\tITEMS\tLAST SCRAPED")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Platform, view.PlatformLabel(s.Platform), s.Items, s.LastScrapedAt)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := buildScheduler(cfg, db, buildSources(cfg))
	return server.New(db, sched, port, cfg.Server.PageSize).ListenAndServe(ctx)
}
