// Package inventory lists the managed instances a run inspects. Every lister
// pages through its describe API until the SDK paginator reports no further
// pages and drops instances whose class is exempt.
package inventory

import (
	"context"
	"fmt"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

// Lister returns the inventory for one resource kind in the client's region.
type Lister interface {
	List(ctx context.Context, exempt map[string]struct{}) ([]models.InstanceDescriptor, error)
}

// NewLister returns the Lister for kind backed by clients.
func NewLister(kind models.ResourceKind, clients *common.ClientSet) (Lister, error) {
	switch kind {
	case models.KindElastiCache:
		return NewElastiCacheLister(clients.ElastiCache), nil
	case models.KindRDS:
		return NewRDSLister(clients.RDS), nil
	default:
		return nil, fmt.Errorf("no inventory lister for kind %q", kind)
	}
}

// isExempt reports whether class is listed in exempt. A nil set exempts nothing.
func isExempt(exempt map[string]struct{}, class string) bool {
	_, ok := exempt[class]
	return ok
}
