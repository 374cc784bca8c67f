package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

const (
	ChannelSNS   = "sns"
	ChannelSlack = "slack"
)

// Delivery is the combined outcome of both channels.
type Delivery struct {
	// Published is nil when SNS was skipped or failed.
	Published *models.PublishResult

	// WebhookStatus is the HTTP status text, empty when no response arrived.
	WebhookStatus string

	// Errors holds one *models.NotificationError per failed channel.
	// Skipped channels are not errors.
	Errors []error
}

// Dispatcher fans a report out to SNS and Slack.
type Dispatcher struct {
	publisher Publisher
	webhook   WebhookPoster
}

// NewDispatcher returns a Dispatcher. Either channel may be nil.
func NewDispatcher(publisher Publisher, webhook WebhookPoster) *Dispatcher {
	return &Dispatcher{publisher: publisher, webhook: webhook}
}

// Send delivers r on both channels concurrently. Neither channel's failure
// prevents or cancels the other; Send itself never fails.
func (d *Dispatcher) Send(ctx context.Context, r *models.Report) Delivery {
	var (
		delivery Delivery
		snsErr   error
		slackErr error
	)

	// Plain errgroup.Group: no shared cancellation between channels.
	var g errgroup.Group

	if d.publisher != nil {
		g.Go(func() error {
			delivery.Published, snsErr = d.publisher.Publish(ctx, r)
			return nil
		})
	}
	if d.webhook != nil {
		g.Go(func() error {
			delivery.WebhookStatus, slackErr = d.webhook.Post(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	logger := zerolog.Ctx(ctx)
	for _, ch := range []struct {
		name string
		err  error
	}{{ChannelSNS, snsErr}, {ChannelSlack, slackErr}} {
		switch {
		case ch.err == nil:
		case errors.Is(ch.err, ErrSkipped):
			logger.Debug().Str("channel", ch.name).Msg("notification channel not configured; skipped")
		default:
			logger.Error().Err(ch.err).Str("channel", ch.name).Msg("notification delivery failed")
			delivery.Errors = append(delivery.Errors, &models.NotificationError{Channel: ch.name, Err: ch.err})
		}
	}
	return delivery
}
