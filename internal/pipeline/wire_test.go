package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// ── fake AWS clients ─────────────────────────────────────────────────────────

type fakeRDS struct {
	instances []rdstypes.DBInstance
	calls     int
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, _ *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	f.calls++
	return &rds.DescribeDBInstancesOutput{DBInstances: f.instances}, nil
}

type fakeCloudWatch struct {
	p99 map[string]float64
}

func (f *fakeCloudWatch) GetMetricStatistics(_ context.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	id := aws.ToString(in.Dimensions[0].Value)
	v, ok := f.p99[id]
	if !ok {
		return &cloudwatch.GetMetricStatisticsOutput{}, nil
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []cwtypes.Datapoint{{ExtendedStatistics: map[string]float64{"p99": v}}},
	}, nil
}

type fakeSSM struct {
	value *string
	err   error
}

func (f *fakeSSM) GetParameter(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: f.value}}, nil
}

type fakeSNS struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, aws.ToString(in.Message))
	return &sns.PublishOutput{MessageId: aws.String("msg-42")}, nil
}

// fakeProvider hands out a fixed ClientSet regardless of profile or region.
type fakeProvider struct {
	clients *common.ClientSet
	region  string
}

func (p *fakeProvider) Load(_ context.Context, profile, region string) (*common.SessionConfig, error) {
	p.region = region
	return &common.SessionConfig{ProfileName: profile, Region: region, Clients: p.clients}, nil
}

func (p *fakeProvider) CallerAccount(context.Context, *common.SessionConfig) (string, error) {
	return "123456789012", nil
}

func rdsInstance(id, class string) rdstypes.DBInstance {
	return rdstypes.DBInstance{DBInstanceIdentifier: aws.String(id), DBInstanceClass: aws.String(class)}
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestExecute_EndToEndRDS(t *testing.T) {
	var slackBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	snsClient := &fakeSNS{}
	provider := &fakeProvider{clients: &common.ClientSet{
		RDS:        &fakeRDS{instances: []rdstypes.DBInstance{rdsInstance("orders", "db.m5.large"), rdsInstance("busy", "db.m5.large")}},
		CloudWatch: &fakeCloudWatch{p99: map[string]float64{"orders": 4.2, "busy": 88}},
		SSM:        &fakeSSM{value: aws.String(srv.URL)},
		SNS:        snsClient,
	}}

	cfg := runConfig(t, models.KindRDS, 20, false)
	cfg.NotificationTopic = "arn:aws:sns:us-east-1:123456789012:ops"

	res, err := Execute(context.Background(), provider, cfg, ExecuteOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", provider.region)
	assert.Equal(t, []string{"orders"}, findingIDs(res))
	require.NotNil(t, res.Published)
	assert.Equal(t, "msg-42", res.Published.MessageID)
	assert.Equal(t, "200 OK", res.WebhookStatus)
	assert.Empty(t, res.NotificationErrors)

	require.Len(t, snsClient.messages, 1)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(snsClient.messages[0]), &envelope))
	var messages []string
	require.NoError(t, json.Unmarshal([]byte(envelope["default"]), &messages))
	assert.Equal(t, res.Report.Messages(), messages)

	assert.Contains(t, string(slackBody), "orders : 4.20%")
}

func TestExecute_SecretFailureAbortsBeforeInventory(t *testing.T) {
	rdsClient := &fakeRDS{instances: []rdstypes.DBInstance{rdsInstance("orders", "db.m5.large")}}
	snsClient := &fakeSNS{}
	provider := &fakeProvider{clients: &common.ClientSet{
		RDS:        rdsClient,
		CloudWatch: &fakeCloudWatch{p99: map[string]float64{"orders": 1}},
		SSM:        &fakeSSM{err: errors.New("ParameterNotFound")},
		SNS:        snsClient,
	}}

	cfg := runConfig(t, models.KindRDS, 20, false)
	cfg.NotificationTopic = "arn:aws:sns:us-east-1:123456789012:ops"

	_, err := Execute(context.Background(), provider, cfg, ExecuteOptions{})
	var secretErr *models.SecretLookupError
	require.ErrorAs(t, err, &secretErr)
	assert.Equal(t, "/ops/slack", secretErr.Path)
	assert.Zero(t, rdsClient.calls)
	assert.Empty(t, snsClient.messages)
}

func TestExecute_DryRunSkipsSecretLookup(t *testing.T) {
	provider := &fakeProvider{clients: &common.ClientSet{
		RDS:        &fakeRDS{instances: []rdstypes.DBInstance{rdsInstance("orders", "db.m5.large")}},
		CloudWatch: &fakeCloudWatch{p99: map[string]float64{"orders": 1}},
		SSM:        &fakeSSM{err: errors.New("should not be called")},
	}}

	res, err := Execute(context.Background(), provider, runConfig(t, models.KindRDS, 20, false), ExecuteOptions{DryRun: true})
	require.NoError(t, err)
	assert.NotNil(t, res.Report)
	assert.Nil(t, res.Published)
}
