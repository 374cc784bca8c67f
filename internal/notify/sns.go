// Package notify delivers reports to SNS and to a Slack incoming webhook.
// Both channels are best-effort and independent of each other.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// ErrSkipped is returned by a channel that has no target configured.
var ErrSkipped = errors.New("channel not configured")

// Publisher delivers a report to a pub/sub topic.
type Publisher interface {
	Publish(ctx context.Context, r *models.Report) (*models.PublishResult, error)
}

// SNSPublisher publishes the report messages as a JSON-structured SNS message.
type SNSPublisher struct {
	client   common.SNSClient
	topicARN string
}

// NewSNSPublisher returns a publisher for topicARN. An empty ARN disables it.
func NewSNSPublisher(client common.SNSClient, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// Publish sends {"default": "<json list of messages>"} with
// MessageStructure=json so every subscribed protocol gets the same body.
func (p *SNSPublisher) Publish(ctx context.Context, r *models.Report) (*models.PublishResult, error) {
	if p.topicARN == "" {
		return nil, ErrSkipped
	}

	message, err := snsMessage(r.Messages())
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("topic", p.topicARN).Msgf("sending under-utilised %s instances list through SNS", r.Kind)

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(p.topicARN),
		Message:          aws.String(message),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return nil, fmt.Errorf("SNS Publish %s: %w", p.topicARN, err)
	}
	return &models.PublishResult{MessageID: aws.ToString(out.MessageId)}, nil
}

// snsMessage double-encodes messages the way SNS expects for
// MessageStructure=json: the "default" key holds a JSON string.
func snsMessage(messages []string) (string, error) {
	inner, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("marshal SNS messages: %w", err)
	}
	outer, err := json.Marshal(map[string]string{"default": string(inner)})
	if err != nil {
		return "", fmt.Errorf("marshal SNS envelope: %w", err)
	}
	return string(outer), nil
}
