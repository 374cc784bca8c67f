package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// RDSLister lists RDS database instances.
type RDSLister struct {
	client common.RDSClient
}

// NewRDSLister returns a lister backed by client.
func NewRDSLister(client common.RDSClient) *RDSLister {
	return &RDSLister{client: client}
}

// List pages through DescribeDBInstances and returns every instance whose
// class is not exempt.
func (l *RDSLister) List(ctx context.Context, exempt map[string]struct{}) ([]models.InstanceDescriptor, error) {
	paginator := rdssvc.NewDescribeDBInstancesPaginator(l.client, &rdssvc.DescribeDBInstancesInput{})

	var instances []models.InstanceDescriptor
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances page: %w", err)
		}
		for _, db := range page.DBInstances {
			desc := toDBDescriptor(db)
			if isExempt(exempt, desc.InstanceClass) {
				continue
			}
			instances = append(instances, desc)
		}
	}
	return instances, nil
}

func toDBDescriptor(db rdstypes.DBInstance) models.InstanceDescriptor {
	return models.InstanceDescriptor{
		ID:            aws.ToString(db.DBInstanceIdentifier),
		InstanceClass: aws.ToString(db.DBInstanceClass),
		Engine:        aws.ToString(db.Engine),
		Status:        aws.ToString(db.DBInstanceStatus),
	}
}
