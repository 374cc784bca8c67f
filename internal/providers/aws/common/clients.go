package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. The real
// SDK clients satisfy them; tests substitute small structs returning canned
// data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the loader and doctor.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// ElastiCacheClient satisfies elasticache.DescribeCacheClustersAPIClient so
// the SDK v2 paginator can drive it.
type ElastiCacheClient interface {
	DescribeCacheClusters(
		ctx context.Context,
		params *elasticache.DescribeCacheClustersInput,
		optFns ...func(*elasticache.Options),
	) (*elasticache.DescribeCacheClustersOutput, error)
}

// RDSClient satisfies rds.DescribeDBInstancesAPIClient for the paginator.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)
}

// EC2Client is used for instance-type metadata (core counts).
type EC2Client interface {
	DescribeInstanceTypes(
		ctx context.Context,
		params *ec2.DescribeInstanceTypesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstanceTypesOutput, error)
}

// CloudWatchClient covers the metric statistics query.
type CloudWatchClient interface {
	GetMetricStatistics(
		ctx context.Context,
		params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// SNSClient covers topic publishing.
type SNSClient interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

// SSMClient covers the parameter-store read of the webhook secret.
type SSMClient interface {
	GetParameter(
		ctx context.Context,
		params *ssm.GetParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParameterOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds initialised AWS service clients for one region. All fields
// are interfaces so tests can replace them without touching the SDK.
type ClientSet struct {
	STS         STSClient
	ElastiCache ElastiCacheClient
	RDS         RDSClient
	EC2         EC2Client
	CloudWatch  CloudWatchClient
	SNS         SNSClient
	SSM         SSMClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject fake clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS:         sts.NewFromConfig(cfg),
		ElastiCache: elasticache.NewFromConfig(cfg),
		RDS:         rds.NewFromConfig(cfg),
		EC2:         ec2.NewFromConfig(cfg),
		CloudWatch:  cloudwatch.NewFromConfig(cfg),
		SNS:         sns.NewFromConfig(cfg),
		SSM:         ssm.NewFromConfig(cfg),
	}
}
