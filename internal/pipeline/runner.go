package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/underutil/internal/config"
	"github.com/pankaj-dahiya-devops/underutil/internal/evaluate"
	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/report"
)

// Runner executes runs sequentially. It holds no state between runs.
type Runner struct {
	deps Deps
	now  func() time.Time
}

// NewRunner returns a Runner wired to deps.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps, now: time.Now}
}

// RunOptions tunes a single run.
type RunOptions struct {
	// DryRun builds the report but sends nothing.
	DryRun bool
}

// Run executes the pipeline for cfg.
//
// Flow:
//  1. List inventory (exempt classes removed). A listing failure is fatal.
//  2. For each instance, fetch p99 CPU and evaluate it. Metric and
//     threshold failures skip that instance and are recorded in the result.
//  3. Format the report; nothing is sent when there are no findings.
//  4. Deliver on both channels unless DryRun. Channel failures are recorded,
//     never returned.
func (r *Runner) Run(ctx context.Context, cfg *config.RunConfig, opts RunOptions) (*models.RunResult, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("kind", string(cfg.Kind)).
		Str("region", cfg.Region).
		Logger()
	ctx = logger.WithContext(ctx)

	result := &models.RunResult{
		Kind:       cfg.Kind,
		Region:     cfg.Region,
		WindowDays: cfg.WindowDays,
		StartedAt:  r.now().UTC(),
	}

	instances, err := r.deps.Lister.List(ctx, cfg.ExemptInstanceClasses)
	if err != nil {
		return nil, fmt.Errorf("list %s instances in %s: %w", cfg.Kind, cfg.Region, err)
	}
	result.Listed = len(instances)
	logger.Info().Int("count", len(instances)).Strs("exempt", cfg.ExemptList()).
		Msgf("%d %s instances returned for current region", len(instances), cfg.Spec.DisplayName)

	ev := evaluate.New(cfg.Spec, cfg.Threshold, cfg.Dynamic, r.deps.Cores)
	for _, inst := range instances {
		p99, err := r.deps.Metrics.P99Utilization(ctx, cfg.Spec, inst.ID, cfg.WindowDays)
		if err != nil {
			r.skip(ctx, result, inst, err)
			continue
		}

		sample, hit, err := ev.Evaluate(ctx, inst, p99)
		if err != nil {
			r.skip(ctx, result, inst, err)
			continue
		}
		result.Evaluated++
		if hit {
			result.Findings = append(result.Findings, sample)
		}
	}

	threshold := cfg.Threshold
	if frozen, ok := ev.Frozen(); ok {
		threshold = frozen
		result.FrozenThreshold = &frozen
	}

	logger.Info().Int("evaluated", result.Evaluated).Int("skipped", len(result.Skipped)).Int("findings", len(result.Findings)).
		Msgf("%d %s instances are currently under-utilised", len(result.Findings), cfg.Spec.DisplayName)

	result.Report = report.Format(report.Options{
		Spec:       cfg.Spec,
		Region:     cfg.Region,
		WindowDays: cfg.WindowDays,
		Threshold:  threshold,
		Dynamic:    cfg.Dynamic,
	}, result.Findings)

	switch {
	case result.Report == nil:
		logger.Info().Msgf("there are no under-utilised %s instances for now", cfg.Spec.DisplayName)
	case opts.DryRun:
		logger.Info().Msg("dry run: notifications not sent")
	case r.deps.Notifier != nil:
		delivery := r.deps.Notifier.Send(ctx, result.Report)
		result.Published = delivery.Published
		result.WebhookStatus = delivery.WebhookStatus
		for _, e := range delivery.Errors {
			result.NotificationErrors = append(result.NotificationErrors, e.Error())
		}
	}

	result.CompletedAt = r.now().UTC()
	return result, nil
}

// skip records an instance that could not be evaluated and logs why.
func (r *Runner) skip(ctx context.Context, result *models.RunResult, inst models.InstanceDescriptor, err error) {
	event := zerolog.Ctx(ctx).Warn().Err(err).Str("instance", inst.ID).Str("class", inst.InstanceClass)
	var noData *models.NoDataError
	if errors.As(err, &noData) {
		event.Msg("no CPU datapoint for window; instance skipped")
	} else {
		event.Msg("instance could not be evaluated; skipped")
	}
	result.Skipped = append(result.Skipped, models.SkippedInstance{InstanceID: inst.ID, Reason: err.Error()})
}
