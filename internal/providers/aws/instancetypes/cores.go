// Package instancetypes looks up EC2 instance-type metadata.
package instancetypes

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// CoreCounter resolves the default physical core count of an EC2 type.
type CoreCounter struct {
	client common.EC2Client
}

// NewCoreCounter returns a CoreCounter backed by client.
func NewCoreCounter(client common.EC2Client) *CoreCounter {
	return &CoreCounter{client: client}
}

// DefaultCores returns VCpuInfo.DefaultCores for instanceType, falling back to
// DefaultVCpus for types that do not report cores.
func (c *CoreCounter) DefaultCores(ctx context.Context, instanceType string) (int32, error) {
	out, err := c.client.DescribeInstanceTypes(ctx, &ec2svc.DescribeInstanceTypesInput{
		InstanceTypes: []ec2types.InstanceType{ec2types.InstanceType(instanceType)},
	})
	if err != nil {
		return 0, fmt.Errorf("DescribeInstanceTypes %s: %w", instanceType, err)
	}
	if len(out.InstanceTypes) == 0 || out.InstanceTypes[0].VCpuInfo == nil {
		return 0, fmt.Errorf("no CPU info for instance type %s", instanceType)
	}

	info := out.InstanceTypes[0].VCpuInfo
	cores := aws.ToInt32(info.DefaultCores)
	if cores <= 0 {
		cores = aws.ToInt32(info.DefaultVCpus)
	}
	if cores <= 0 {
		return 0, fmt.Errorf("instance type %s reports no cores", instanceType)
	}
	return cores, nil
}
