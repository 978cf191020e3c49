package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elonfeng/hotboard/internal/logging"
	"github.com/elonfeng/hotboard/internal/store"
	"github.com/elonfeng/hotboard/pkg/alert"
	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/elonfeng/hotboard/pkg/source"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSpec matches a twelve hour collection interval.
const DefaultSpec = "@every 12h"

// Report summarises one collection cycle.
type Report struct {
	Started  time.Time              `json:"started"`
	Finished time.Time              `json:"finished"`
	Date     string                 `json:"date"`
	Results  []alert.PlatformResult `json:"results"`
	Total    int64                  `json:"total"`
}

// Failures counts platforms that errored.
func (r Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// Options configures a Scheduler. Zero values are usable.
type Options struct {
	Filter     *source.Filter
	Alerts     *alert.Manager
	Spec       string
	RunOnStart bool
}

// Scheduler runs collection cycles over the configured sources, one at a time.
type Scheduler struct {
	store      store.Store
	sources    []source.Source
	filter     *source.Filter
	alertMgr   *alert.Manager
	spec       string
	runOnStart bool

	mu  sync.Mutex
	now func() time.Time
}

// New creates a new scheduler. Sources are collected in the given order.
func New(s store.Store, sources []source.Source, opts Options) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	return &Scheduler{
		store:      s,
		sources:    sources,
		filter:     opts.Filter,
		alertMgr:   opts.Alerts,
		spec:       opts.Spec,
		runOnStart: opts.RunOnStart,
		now:        time.Now,
	}
}

// Run schedules cycles on the cron spec and blocks until ctx is cancelled.
// A cycle still running when the next tick fires causes that tick to be
// skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{logging.Log.WithField("component", "cron")}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	if s.runOnStart {
		logging.Log.Info("initial collection")
		s.RunOnce(ctx)
	}

	c.Start()
	logging.Log.WithField("spec", s.spec).Info("scheduler running")

	<-ctx.Done()
	<-c.Stop().Done()
	logging.Log.Info("scheduler stopped")
	return ctx.Err()
}

// RunOnce collects every source once. A failing platform is recorded in the
// report and the cycle moves on.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{Started: s.now()}
	report.Date = report.Started.Format(normalize.DateLayout)

	for _, src := range s.sources {
		res := s.collect(ctx, src)
		report.Total += res.Stored
		report.Results = append(report.Results, res)
	}
	report.Finished = s.now()

	logging.Log.WithFields(logrus.Fields{
		"total":    report.Total,
		"failures": report.Failures(),
		"took":     report.Finished.Sub(report.Started).Round(time.Millisecond),
	}).Info("collection cycle done")

	s.notify(ctx, report)
	return report
}

func (s *Scheduler) collect(ctx context.Context, src source.Source) alert.PlatformResult {
	platform := src.Name()
	log := logging.Platform(string(platform))
	res := alert.PlatformResult{Platform: string(platform)}

	items, err := src.Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrForbidden) {
			log = log.WithField("hint", "cookie missing or expired")
		}
		log.WithError(err).Warn("fetch failed")
		res.Error = err.Error()
		return res
	}

	items = s.filter.Apply(items)
	res.Fetched = len(items)
	if len(items) == 0 {
		log.Warn("no items, possibly blocked or needs cookie")
		return res
	}

	for _, it := range items {
		if !normalize.Accepts(it) {
			res.Rejected++
		}
	}

	stored, err := s.store.UpsertItems(ctx, string(platform), items, source.PolicyFor(platform))
	if err != nil {
		log.WithError(err).Error("store failed")
		res.Error = err.Error()
		return res
	}
	res.Stored = stored
	log.WithFields(logrus.Fields{"count": stored, "rejected": res.Rejected}).Info("collected")
	return res
}

func (s *Scheduler) notify(ctx context.Context, report Report) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	n := &alert.Notification{
		Title:     "Hot board " + report.Date,
		Date:      report.Date,
		Total:     report.Total,
		Platforms: report.Results,
		Top:       s.topItems(ctx, report),
	}
	if err := s.alertMgr.Broadcast(ctx, n); err != nil {
		logging.Log.WithError(err).Warn("digest delivery failed")
	}
}

// topItems picks the hottest row of the day per platform that stored data.
func (s *Scheduler) topItems(ctx context.Context, report Report) []normalize.Record {
	var top []normalize.Record
	for _, res := range report.Results {
		if res.Stored == 0 {
			continue
		}
		rows, err := s.store.Query(ctx, store.QueryOpts{
			Filter: store.Filter{
				Platforms: []string{res.Platform},
				DateFrom:  report.Date,
				DateTo:    report.Date,
			},
			Order: store.OrderHeatValueDesc,
			Limit: 1,
		})
		if err != nil {
			logging.Platform(res.Platform).WithError(err).Warn("top item lookup failed")
			continue
		}
		top = append(top, rows...)
	}
	return top
}

// cronLogger routes cron's own messages through logrus.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
