// Package pipeline runs one under-utilisation check end to end:
// inventory → per-instance metric → evaluate → format → notify.
//
// Runner never calls the AWS SDK directly; it delegates to the interfaces
// below so every stage can be replaced in tests.
package pipeline

import (
	"context"

	"github.com/pankaj-dahiya-devops/underutil/internal/evaluate"
	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/notify"
)

// Lister returns the inventory for the configured kind.
type Lister interface {
	List(ctx context.Context, exempt map[string]struct{}) ([]models.InstanceDescriptor, error)
}

// MetricFetcher returns the p99 CPU utilisation of one instance.
type MetricFetcher interface {
	P99Utilization(ctx context.Context, spec models.KindSpec, instanceID string, windowDays int) (float64, error)
}

// Notifier delivers a report on every configured channel.
type Notifier interface {
	Send(ctx context.Context, r *models.Report) notify.Delivery
}

// Deps are the collaborators of a Runner. Cores may be nil for kinds or runs
// that never derive a dynamic threshold. Notifier may be nil for dry runs.
type Deps struct {
	Lister   Lister
	Metrics  MetricFetcher
	Cores    evaluate.CoreCounter
	Notifier Notifier
}
