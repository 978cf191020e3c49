package alert

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{client: newClient(), webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	header := slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("🔥 %s", n.Title), true, false)
	summary := slack.NewTextBlockObject(slack.MarkdownType, "```"+n.Summary()+"```", false, false)

	blocks := []slack.Block{
		slack.NewHeaderBlock(header),
		slack.NewSectionBlock(summary, nil, nil),
	}

	if top := n.topItems(); len(top) > 0 {
		var elements []slack.MixedElement
		for _, item := range top {
			text := fmt.Sprintf("<%s|%s> [%s] %s", item.URL, item.Title, item.Platform, heatLabel(item))
			elements = append(elements, slack.NewTextBlockObject(slack.MarkdownType, text, false, false))
		}
		blocks = append(blocks, slack.NewDividerBlock(), slack.NewContextBlock("", elements...))
	}

	body, err := marshal(slack.NewBlockMessage(blocks...))
	if err != nil {
		return err
	}
	if err := postJSON(ctx, s.client, s.webhookURL, body, nil); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
