// Package slack posts call alerts to a Slack Incoming Webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	slackapi "github.com/slack-go/slack"

	"call-relay/internal/dispatch"
)

// Sender implements dispatch.AlertSink over an Incoming Webhook.
type Sender struct {
	webhookURL string
	httpClient *http.Client
}

func NewSender(webhookURL string, timeout time.Duration) (*Sender, error) {
	if !isValidURL(webhookURL) {
		return nil, fmt.Errorf("invalid Slack webhook URL %q: must start with http:// or https://", maskURL(webhookURL))
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{webhookURL: webhookURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (s *Sender) Name() string { return "slack" }

func (s *Sender) Notify(ctx context.Context, a dispatch.Alert) error {
	msg := BuildMessage(a)
	if err := slackapi.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.httpClient, msg); err != nil {
		var statusErr slackapi.StatusCodeError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("slack webhook returned status %d", statusErr.Code)
		}
		return fmt.Errorf("send slack notification to %s: %w", maskURL(s.webhookURL), err)
	}
	log.Debug().Str("caller_id", a.CallerID).Msg("sent slack notification")
	return nil
}

// BuildMessage renders the alert as a section block with a button that
// opens the call log.
func BuildMessage(a dispatch.Alert) *slackapi.WebhookMessage {
	campaign := a.CampaignName
	if campaign == "" {
		campaign = "Unknown"
	}
	text := fmt.Sprintf(":telephone_receiver: *New %s Call Logged*\n\n• *Caller ID:* `%s`\n• *Time:* `%s`\n• *Campaign:* `%s`",
		a.Label, a.CallerID, a.Time, campaign)

	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil),
	}
	if a.Link != "" {
		btn := slackapi.NewButtonBlockElement("open_call_log", "", slackapi.NewTextBlockObject(slackapi.PlainTextType, ":bar_chart: View Call Log", true, false))
		btn.URL = a.Link
		btn.Style = slackapi.StylePrimary
		blocks = append(blocks, slackapi.NewActionBlock("", btn))
	}

	return &slackapi.WebhookMessage{
		Text:   fmt.Sprintf("New %s call logged from %s", a.Label, a.CallerID),
		Blocks: &slackapi.Blocks{BlockSet: blocks},
	}
}

func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// maskURL hides the secret path of a webhook URL in logs and errors.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}
