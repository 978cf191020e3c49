package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var links []string
	for _, item := range n.topItems() {
		links = append(links, fmt.Sprintf("• [%s](%s) [%s] %s", item.Title, item.URL, item.Platform, heatLabel(item)))
	}

	color := 0xFF6600
	if len(n.Failed()) > 0 {
		color = 0xCC0000
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🔥 %s", n.Title),
		"description": fmt.Sprintf("```%s```\n%s", n.Summary(), strings.Join(links, "\n")),
		"color":       color,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	body, err := marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return err
	}
	if err := postJSON(ctx, d.client, d.webhookURL, body, nil); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
