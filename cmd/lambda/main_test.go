package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	ectypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeElastiCache struct{ clusters []ectypes.CacheCluster }

func (f *fakeElastiCache) DescribeCacheClusters(context.Context, *elasticache.DescribeCacheClustersInput, ...func(*elasticache.Options)) (*elasticache.DescribeCacheClustersOutput, error) {
	return &elasticache.DescribeCacheClustersOutput{CacheClusters: f.clusters}, nil
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

type fakeEC2 struct{ cores map[string]int32 }

func (f *fakeEC2) DescribeInstanceTypes(_ context.Context, in *ec2.DescribeInstanceTypesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error) {
	it := in.InstanceTypes[0]
	c, ok := f.cores[string(it)]
	if !ok {
		return nil, errors.New("InvalidInstanceType")
	}
	return &ec2.DescribeInstanceTypesOutput{InstanceTypes: []ec2types.InstanceTypeInfo{{
		InstanceType: it,
		VCpuInfo:     &ec2types.VCpuInfo{DefaultCores: aws.Int32(c)},
	}}}, nil
}

type fakeSSM struct{ value string }

func (f *fakeSSM) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(f.value)}}, nil
}

type fakeSNS struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSNS) Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &sns.PublishOutput{MessageId: aws.String("0a1b2c")}, nil
}

type fakeProvider struct{ clients *common.ClientSet }

func (p fakeProvider) Load(_ context.Context, profile, region string) (*common.SessionConfig, error) {
	return &common.SessionConfig{ProfileName: profile, Region: region, Clients: p.clients}, nil
}

func (p fakeProvider) CallerAccount(context.Context, *common.SessionConfig) (string, error) {
	return "123456789012", nil
}

func cluster(id, nodeType string) ectypes.CacheCluster {
	return ectypes.CacheCluster{CacheClusterId: aws.String(id), CacheNodeType: aws.String(nodeType)}
}

func setElastiCacheEnv(t *testing.T, threshold string) {
	t.Helper()
	t.Setenv("RESOURCE_KIND", "elasticache")
	t.Setenv("DAYS_INTERVAL", "14")
	t.Setenv("EC_CPU_UTIL_THRESHOLD", threshold)
	t.Setenv("SLACK_WEBHOOK_SSM", "/ops/slack")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SNS_ARN", "arn:aws:sns:eu-west-1:123456789012:ops")
	t.Setenv("EXEMPT_INSTANCE_CLASSES", "")
	t.Setenv("LOG_LEVEL", "error")
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestHandle_PublishesAndReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	setElastiCacheEnv(t, "0")
	snsClient := &fakeSNS{}
	h := NewHandler(fakeProvider{clients: &common.ClientSet{
		ElastiCache: &fakeElastiCache{clusters: []ectypes.CacheCluster{
			cluster("sessions-001", "cache.m5.large"),
			cluster("legacy-001", "cache.t2.micro"),
		}},
		CloudWatch: &fakeCloudWatch{p99: map[string]float64{"sessions-001": 12, "legacy-001": 1}},
		EC2:        &fakeEC2{cores: map[string]int32{"m5.large": 2}},
		SSM:        &fakeSSM{value: srv.URL},
		SNS:        snsClient,
	}})

	resp, err := h.Handle(context.Background(), Event{ExemptInstancesClasses: []string{"cache.t2.micro"}})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"MessageId":"0a1b2c"}`, resp.Body)
	assert.Equal(t, 1, snsClient.calls)
}

func TestHandle_NoFindingsReturnsNullBody(t *testing.T) {
	setElastiCacheEnv(t, "10")
	snsClient := &fakeSNS{}
	h := NewHandler(fakeProvider{clients: &common.ClientSet{
		ElastiCache: &fakeElastiCache{clusters: []ectypes.CacheCluster{cluster("busy-001", "cache.m5.large")}},
		CloudWatch:  &fakeCloudWatch{p99: map[string]float64{"busy-001": 75}},
		SSM:         &fakeSSM{value: "https://hooks.slack.invalid/T000"},
		SNS:         snsClient,
	}})

	resp, err := h.Handle(context.Background(), Event{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "null", resp.Body)
	assert.Zero(t, snsClient.calls)
}

func TestHandle_ConfigErrorIsInvocationError(t *testing.T) {
	setElastiCacheEnv(t, "")
	var logs bytes.Buffer
	h := NewHandler(fakeProvider{clients: &common.ClientSet{}})
	h.logOut = &logs

	_, err := h.Handle(context.Background(), Event{})
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "threshold", cfgErr.Field)

	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), `"message":"load run config"`)
	assert.Contains(t, logs.String(), "config threshold")
}
