// Command lambda is the scheduled AWS Lambda entry point. Each invocation is
// one complete run configured from the function's environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pankaj-dahiya-devops/underutil/internal/config"
	"github.com/pankaj-dahiya-devops/underutil/internal/logging"
	"github.com/pankaj-dahiya-devops/underutil/internal/pipeline"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// Event is the scheduled-rule payload.
type Event struct {
	ExemptInstancesClasses []string `json:"exempt_instances_classes"`
}

// Response is returned to the Lambda runtime. Body holds the JSON-encoded SNS
// publish result, or "null" when nothing was published.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handler runs the pipeline once per event.
type Handler struct {
	provider common.AWSClientProvider
	logOut   io.Writer
}

// NewHandler returns a Handler that loads AWS clients through provider and
// logs JSON lines to stdout.
func NewHandler(provider common.AWSClientProvider) *Handler {
	return &Handler{provider: provider, logOut: os.Stdout}
}

// Handle loads the run config, executes the pipeline and reports the publish
// result. Config and secret failures are returned as invocation errors.
func (h *Handler) Handle(ctx context.Context, event Event) (Response, error) {
	cfg, err := config.Load(config.Options{ExemptClasses: event.ExemptInstancesClasses})
	if err != nil {
		logger := logging.New(h.logOut, "", false)
		logger.Error().Err(err).Msg("load run config")
		return Response{}, err
	}

	logger := logging.New(h.logOut, cfg.LogLevel, false).With().
		Str("kind", string(cfg.Kind)).
		Logger()
	ctx = logger.WithContext(ctx)

	result, err := pipeline.Execute(ctx, h.provider, cfg, pipeline.ExecuteOptions{})
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return Response{}, err
	}

	body, err := json.Marshal(result.Published)
	if err != nil {
		return Response{}, fmt.Errorf("marshal publish result: %w", err)
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

func main() {
	lambda.Start(NewHandler(common.NewDefaultAWSClientProvider()).Handle)
}
