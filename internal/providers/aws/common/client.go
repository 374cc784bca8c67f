package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// SessionConfig is a resolved AWS configuration together with its initialised
// service clients. It is the unit passed from the loader into the pipeline.
type SessionConfig struct {
	// ProfileName is the shared-config profile used, or "default".
	ProfileName string

	// Region is the region every client is scoped to.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients scoped to Region.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configuration and builds region-scoped clients.
// It is the sole entry point for credential and region handling.
//
// Implementations must use the AWS SDK v2 only.
type AWSClientProvider interface {
	// Load returns a SessionConfig for the given profile and region. An empty
	// profile selects the default credential chain (which inside Lambda is the
	// execution role). An empty region falls back to the SDK's resolution.
	Load(ctx context.Context, profile, region string) (*SessionConfig, error)

	// CallerAccount returns the AWS account ID behind the loaded credentials.
	CallerAccount(ctx context.Context, cfg *SessionConfig) (string, error)
}
