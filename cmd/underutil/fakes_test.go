package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// ── AWS fakes ─────────────────────────────────────────────────────────────────

type fakeRDS struct{ instances []rdstypes.DBInstance }

func (f *fakeRDS) DescribeDBInstances(context.Context, *rds.DescribeDBInstancesInput, ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return &rds.DescribeDBInstancesOutput{DBInstances: f.instances}, nil
}

type fakeCloudWatch struct{ p99 map[string]float64 }

func (f *fakeCloudWatch) GetMetricStatistics(_ context.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	v, ok := f.p99[aws.ToString(in.Dimensions[0].Value)]
	if !ok {
		return &cloudwatch.GetMetricStatisticsOutput{}, nil
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []cwtypes.Datapoint{{ExtendedStatistics: map[string]float64{"p99": v}}},
	}, nil
}

type fakeSSM struct {
	value string
	err   error
}

func (f *fakeSSM) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(f.value)}}, nil
}

// mockAWSProvider returns a fixed session built from clients.
type mockAWSProvider struct {
	clients     *common.ClientSet
	loadErr     error
	accountErr  error
	lastProfile string
	lastRegion  string
}

func (m *mockAWSProvider) Load(_ context.Context, profile, region string) (*common.SessionConfig, error) {
	m.lastProfile = profile
	m.lastRegion = region
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return &common.SessionConfig{ProfileName: profile, Region: region, Clients: m.clients}, nil
}

func (m *mockAWSProvider) CallerAccount(context.Context, *common.SessionConfig) (string, error) {
	if m.accountErr != nil {
		return "", m.accountErr
	}
	return "123456789012", nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{clients: &common.ClientSet{
		RDS: &fakeRDS{instances: []rdstypes.DBInstance{
			{DBInstanceIdentifier: aws.String("orders-db"), DBInstanceClass: aws.String("db.m5.large")},
			{DBInstanceIdentifier: aws.String("busy-db"), DBInstanceClass: aws.String("db.m5.large")},
		}},
		CloudWatch: &fakeCloudWatch{p99: map[string]float64{"orders-db": 3.5, "busy-db": 70}},
		SSM:        &fakeSSM{value: "https://hooks.slack.invalid/T000"},
	}}
}

var errBoom = errors.New("boom")

// setRunEnv sets a complete, valid RDS environment.
func setRunEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RESOURCE_KIND", "rds")
	t.Setenv("DAYS_INTERVAL", "7")
	t.Setenv("DB_UTIL_THRESHOLD", "20")
	t.Setenv("SLACK_WEBHOOK_SSM", "/ops/slack-webhook")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("SNS_ARN", "")
	t.Setenv("EXEMPT_INSTANCE_CLASSES", "")
	t.Setenv("LOG_LEVEL", "error")
}

// useProvider swaps the package-level provider constructor for the test.
func useProvider(t *testing.T, p common.AWSClientProvider) {
	t.Helper()
	orig := newAWSProvider
	newAWSProvider = func() common.AWSClientProvider { return p }
	t.Cleanup(func() { newAWSProvider = orig })
}
