package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

// maxTopItems caps the number of headline links per message.
const maxTopItems = 10

// PlatformResult is the outcome of one platform within a collection cycle.
type PlatformResult struct {
	Platform string `json:"platform"`
	Fetched  int    `json:"fetched"`
	Stored   int64  `json:"stored"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// Notification is the cycle digest sent to alert destinations.
type Notification struct {
	Title     string             `json:"title"`
	Date      string             `json:"date"`
	Total     int64              `json:"total"`
	Platforms []PlatformResult   `json:"platforms"`
	Top       []normalize.Record `json:"top"`
}

// Failed returns the platforms that errored during the cycle.
func (n *Notification) Failed() []PlatformResult {
	var out []PlatformResult
	for _, p := range n.Platforms {
		if p.Error != "" {
			out = append(out, p)
		}
	}
	return out
}

// Summary renders the counts as one line per platform.
func (n *Notification) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d items stored on %s\n", n.Total, n.Date)
	for _, p := range n.Platforms {
		if p.Error != "" {
			fmt.Fprintf(&b, "%s: failed (%s)\n", p.Platform, p.Error)
			continue
		}
		fmt.Fprintf(&b, "%s: %d stored, %d rejected\n", p.Platform, p.Stored, p.Rejected)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (n *Notification) topItems() []normalize.Record {
	if len(n.Top) > maxTopItems {
		return n.Top[:maxTopItems]
	}
	return n.Top
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON posts body and fails on any non-2xx status.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// marshal encodes payload without HTML escaping. Values with their own
// MarshalJSON, such as slack blocks, still escape < and > as \u003c and
// \u003e; Slack decodes those back into link markup.
func marshal(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func heatLabel(r normalize.Record) string {
	if r.HeatText != nil {
		return *r.HeatText
	}
	if r.HeatValue != nil {
		return fmt.Sprintf("%d", *r.HeatValue)
	}
	return "-"
}
