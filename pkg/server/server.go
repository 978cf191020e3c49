package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elonfeng/hotboard/internal/logging"
	"github.com/elonfeng/hotboard/internal/scheduler"
	"github.com/elonfeng/hotboard/internal/store"
	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/elonfeng/hotboard/pkg/view"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Reader is the part of the store the API reads from.
type Reader interface {
	view.Querier
	ListPlatforms(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) ([]store.PlatformStat, error)
}

// Collector runs one collection cycle on demand.
type Collector interface {
	RunOnce(ctx context.Context) scheduler.Report
}

// Server provides the HTTP API.
type Server struct {
	store     Reader
	collector Collector
	port      int
	pageSize  int
}

// New creates a new HTTP server. collector may be nil, which disables the
// collect endpoint.
func New(s Reader, collector Collector, port, pageSize int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:     s,
		collector: collector,
		port:      port,
		pageSize:  view.PageSize(pageSize),
	}
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api/v1")
	{
		api.GET("/platforms", s.handlePlatforms)
		api.GET("/filters", s.handleFilters)
		api.GET("/history", s.handleHistory)
		api.POST("/collect", s.handleCollect)
	}
	return engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.Log.WithField("addr", srv.Addr).Info("hotboard server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type platformInfo struct {
	Platform      string `json:"platform"`
	Label         string `json:"label"`
	Items         int64  `json:"items"`
	LastScrapedAt string `json:"last_scraped_at"`
}

func (s *Server) handlePlatforms(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		logging.Log.WithError(err).Error("platform stats failed")
		c.JSON(http.StatusOK, gin.H{"data": []platformInfo{}, "count": 0, "error": err.Error()})
		return
	}

	infos := make([]platformInfo, 0, len(stats))
	for _, st := range stats {
		infos = append(infos, platformInfo{
			Platform:      st.Platform,
			Label:         view.PlatformLabel(st.Platform),
			Items:         st.Items,
			LastScrapedAt: st.LastScrapedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": infos, "count": len(infos)})
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type filterOptions struct {
	Platforms []option `json:"platforms"`
	Orders    []option `json:"orders"`
	PageSizes []int    `json:"page_sizes"`
	Error     string   `json:"error,omitempty"`
}

// handleFilters lists what a history client can filter and sort by. Only
// platforms with stored rows are offered.
func (s *Server) handleFilters(c *gin.Context) {
	resp := filterOptions{Platforms: []option{}, PageSizes: view.PageSizes}
	for _, o := range view.OrderOptions {
		resp.Orders = append(resp.Orders, option{Value: o.Order.String(), Label: o.Label})
	}

	platforms, err := s.store.ListPlatforms(c.Request.Context())
	if err != nil {
		logging.Log.WithError(err).Error("list platforms failed")
		resp.Error = err.Error()
	}
	for _, p := range platforms {
		resp.Platforms = append(resp.Platforms, option{Value: p, Label: view.PlatformLabel(p)})
	}
	c.JSON(http.StatusOK, resp)
}

type historyResponse struct {
	view.Page
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// handleHistory serves one page of history. Storage failures still answer
// 200 with an empty page and the error text.
func (s *Server) handleHistory(c *gin.Context) {
	from, err := dateParam(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := dateParam(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := view.Params{
		Filter: store.Filter{
			Keyword:   strings.TrimSpace(c.Query("keyword")),
			Platforms: platformParams(c.QueryArray("platform")),
			DateFrom:  from,
			DateTo:    to,
		},
		Order:    store.ParseOrder(c.Query("order")),
		PageSize: intParam(c, "page_size", s.pageSize),
	}
	sess := &view.Session{Page: intParam(c, "page", 1)}

	page := view.Render(c.Request.Context(), s.store, params, sess)
	if page.Err != nil {
		logging.Log.WithError(page.Err).Error("history query failed")
	}
	c.JSON(http.StatusOK, historyResponse{Page: page, HasPrev: page.HasPrev(), HasNext: page.HasNext()})
}

func (s *Server) handleCollect(c *gin.Context) {
	if s.collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collection disabled"})
		return
	}
	c.JSON(http.StatusOK, s.collector.RunOnce(c.Request.Context()))
}

// platformParams accepts both ?platform=a&platform=b and ?platform=a,b.
func platformParams(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func dateParam(c *gin.Context, key string) (string, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(normalize.DateLayout, v); err != nil {
		return "", fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", key, v)
	}
	return v, nil
}

func intParam(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	}
}
