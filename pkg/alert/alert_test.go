package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digest() *Notification {
	return &Notification{
		Title: "Hot board 2025-01-01",
		Date:  "2025-01-01",
		Total: 3,
		Platforms: []PlatformResult{
			{Platform: "baidu", Fetched: 3, Stored: 3},
			{Platform: "weibo", Error: "cookie expired"},
		},
		Top: []normalize.Record{{
			Platform:  "baidu",
			Title:     "A",
			URL:       "https://a.example",
			HeatText:  normalize.String("7904613"),
			HeatValue: normalize.Int64(7904613),
		}},
	}
}

type capture struct {
	headers http.Header
	body    []byte
}

func recorder(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.headers = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestSummaryAndFailed(t *testing.T) {
	n := digest()
	assert.Equal(t, "3 items stored on 2025-01-01\nbaidu: 3 stored, 0 rejected\nweibo: failed (cookie expired)", n.Summary())
	failed := n.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "weibo", failed[0].Platform)
}

func TestSlackSend(t *testing.T) {
	srv, got := recorder(t, http.StatusOK)
	require.NoError(t, NewSlack(srv.URL).Send(context.Background(), digest()))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))

	var msg struct {
		Blocks []struct {
			Type     string `json:"type"`
			Elements []struct {
				Text string `json:"text"`
			} `json:"elements"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(got.body, &msg))
	require.Len(t, msg.Blocks, 4)
	assert.Equal(t, "header", msg.Blocks[0].Type)
	assert.Equal(t, "context", msg.Blocks[3].Type)
	require.Len(t, msg.Blocks[3].Elements, 1)
	assert.Equal(t, "<https://a.example|A> [baidu] 7904613", msg.Blocks[3].Elements[0].Text)
}

func TestDiscordSendFailureColor(t *testing.T) {
	srv, got := recorder(t, http.StatusNoContent)
	require.NoError(t, NewDiscord(srv.URL).Send(context.Background(), digest()))

	var payload struct {
		Embeds []struct {
			Color       int    `json:"color"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, 0xCC0000, payload.Embeds[0].Color)
	assert.True(t, strings.Contains(payload.Embeds[0].Description, "[A](https://a.example)"))
}

func TestWebhookSignsBody(t *testing.T) {
	srv, got := recorder(t, http.StatusOK)
	require.NoError(t, NewWebhook(srv.URL, "s3cret").Send(context.Background(), digest()))

	assert.Equal(t, "sha256="+Sign("s3cret", got.body), got.headers.Get("X-Signature-256"))

	var n Notification
	require.NoError(t, json.Unmarshal(got.body, &n))
	assert.Equal(t, int64(3), n.Total)
	require.Len(t, n.Top, 1)
	assert.Equal(t, "https://a.example", n.Top[0].URL)
}

type failing struct{ name string }

func (f failing) Name() string { return f.name }
func (f failing) Send(context.Context, *Notification) error {
	return errors.New("boom")
}

func TestBroadcastJoinsErrors(t *testing.T) {
	srv, _ := recorder(t, http.StatusOK)
	m := NewManager([]Notifier{failing{"one"}, NewWebhook(srv.URL, ""), failing{"two"}})
	require.True(t, m.HasNotifiers())

	err := m.Broadcast(context.Background(), digest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one: boom")
	assert.Contains(t, err.Error(), "two: boom")

	var nilManager *Manager
	assert.False(t, nilManager.HasNotifiers())
	assert.NoError(t, nilManager.Broadcast(context.Background(), digest()))
}

func TestNon2xxIsError(t *testing.T) {
	srv, _ := recorder(t, http.StatusInternalServerError)
	err := NewSlack(srv.URL).Send(context.Background(), digest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
