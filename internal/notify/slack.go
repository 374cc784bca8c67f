package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

// bulletSeparator joins report messages into one Slack mrkdwn block.
const bulletSeparator = "\n• "

// WebhookPoster delivers a report to a chat webhook and returns the HTTP
// status text.
type WebhookPoster interface {
	Post(ctx context.Context, r *models.Report) (string, error)
}

// SlackNotifier posts reports to a Slack incoming webhook.
type SlackNotifier struct {
	client *http.Client
	url    string
}

// NewSlackNotifier returns a notifier for url. A nil client uses
// http.DefaultClient; an empty url disables the notifier.
func NewSlackNotifier(client *http.Client, url string) *SlackNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &SlackNotifier{client: client, url: url}
}

// SlackText is a block-kit text object.
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackBlock is a block-kit layout block.
type SlackBlock struct {
	Type string    `json:"type"`
	Text SlackText `json:"text"`
}

// SlackPayload is the incoming-webhook request body.
type SlackPayload struct {
	Blocks []SlackBlock `json:"blocks"`
}

// Post sends the report as a single section block. The response status text
// is logged and returned; a non-2xx status is returned as an error alongside
// the status so the caller can record it.
func (s *SlackNotifier) Post(ctx context.Context, r *models.Report) (string, error) {
	if s.url == "" {
		return "", ErrSkipped
	}

	body, err := json.Marshal(NewSlackPayload(r.Messages()))
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().Msgf("sending under-utilised %s instances list through slack", r.Kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	logger.Info().Int("status_code", resp.StatusCode).Msgf("response from slack webhook: %s", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Status, fmt.Errorf("slack webhook returned %s", resp.Status)
	}
	return resp.Status, nil
}

// NewSlackPayload builds the block-kit body for messages.
func NewSlackPayload(messages []string) SlackPayload {
	return SlackPayload{Blocks: []SlackBlock{{
		Type: "section",
		Text: SlackText{Type: "mrkdwn", Text: strings.Join(messages, bulletSeparator)},
	}}}
}
