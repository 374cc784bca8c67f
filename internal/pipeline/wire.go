package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/underutil/internal/config"
	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/notify"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/instancetypes"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/inventory"
	cwmetrics "github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/metrics"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/secrets"
)

// ExecuteOptions configures Execute.
type ExecuteOptions struct {
	// Profile is the shared-config profile; empty uses the default chain.
	Profile string

	DryRun bool

	// HTTPClient posts the webhook. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Execute loads AWS clients for cfg.Region, resolves the webhook secret,
// wires every stage and runs the pipeline once.
//
// Secret lookup happens before any AWS inventory call; a
// *models.SecretLookupError aborts the run with nothing sent. Dry runs skip
// the lookup because they never notify.
func Execute(
	ctx context.Context,
	provider common.AWSClientProvider,
	cfg *config.RunConfig,
	opts ExecuteOptions,
) (*models.RunResult, error) {
	session, err := provider.Load(ctx, opts.Profile, cfg.Region)
	if err != nil {
		return nil, err
	}

	deps, err := BuildDeps(ctx, session.Clients, cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewRunner(deps).Run(ctx, cfg, RunOptions{DryRun: opts.DryRun})
}

// BuildDeps constructs the production collaborators from clients.
func BuildDeps(
	ctx context.Context,
	clients *common.ClientSet,
	cfg *config.RunConfig,
	opts ExecuteOptions,
) (Deps, error) {
	lister, err := inventory.NewLister(cfg.Kind, clients)
	if err != nil {
		return Deps{}, fmt.Errorf("build inventory lister: %w", err)
	}

	deps := Deps{
		Lister:  lister,
		Metrics: cwmetrics.NewFetcher(clients.CloudWatch),
	}
	if cfg.Dynamic {
		deps.Cores = instancetypes.NewCoreCounter(clients.EC2)
	}

	if opts.DryRun {
		return deps, nil
	}

	webhook, err := secrets.Resolve(ctx, clients.SSM, cfg.SecretParameterPath)
	if err != nil {
		return Deps{}, err
	}
	if webhook == "" {
		zerolog.Ctx(ctx).Warn().Str("parameter", cfg.SecretParameterPath).Msg("webhook parameter is empty; slack disabled")
	}

	deps.Notifier = notify.NewDispatcher(
		notify.NewSNSPublisher(clients.SNS, cfg.NotificationTopic),
		notify.NewSlackNotifier(opts.HTTPClient, webhook),
	)
	return deps, nil
}
