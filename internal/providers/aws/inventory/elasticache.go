package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	ectypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// ElastiCacheLister lists cache clusters that are not members of a
// replication group.
type ElastiCacheLister struct {
	client common.ElastiCacheClient
}

// NewElastiCacheLister returns a lister backed by client.
func NewElastiCacheLister(client common.ElastiCacheClient) *ElastiCacheLister {
	return &ElastiCacheLister{client: client}
}

// List pages through DescribeCacheClusters and returns every cluster whose
// node type is not exempt.
func (l *ElastiCacheLister) List(ctx context.Context, exempt map[string]struct{}) ([]models.InstanceDescriptor, error) {
	paginator := elasticache.NewDescribeCacheClustersPaginator(l.client, &elasticache.DescribeCacheClustersInput{
		ShowCacheNodeInfo:                       aws.Bool(false),
		ShowCacheClustersNotInReplicationGroups: aws.Bool(false),
	})

	var instances []models.InstanceDescriptor
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeCacheClusters page: %w", err)
		}
		for _, cc := range page.CacheClusters {
			desc := toCacheDescriptor(cc)
			if isExempt(exempt, desc.InstanceClass) {
				continue
			}
			instances = append(instances, desc)
		}
	}
	return instances, nil
}

func toCacheDescriptor(cc ectypes.CacheCluster) models.InstanceDescriptor {
	return models.InstanceDescriptor{
		ID:            aws.ToString(cc.CacheClusterId),
		InstanceClass: aws.ToString(cc.CacheNodeType),
		Engine:        aws.ToString(cc.Engine),
		Status:        aws.ToString(cc.CacheClusterStatus),
	}
}
