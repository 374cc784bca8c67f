// Package secrets resolves the Slack webhook URL from SSM Parameter Store.
package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

var errEmptyPath = errors.New("parameter name is empty")

// Resolve fetches and decrypts the parameter at path. Any failure, including a
// parameter with no value, is reported as *models.SecretLookupError.
func Resolve(ctx context.Context, client common.SSMClient, path string) (string, error) {
	if path == "" {
		return "", &models.SecretLookupError{Path: path, Err: errEmptyPath}
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", &models.SecretLookupError{Path: path, Err: err}
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", &models.SecretLookupError{Path: path}
	}
	return aws.ToString(out.Parameter.Value), nil
}
