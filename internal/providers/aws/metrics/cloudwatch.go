// Package metrics queries CloudWatch for per-instance CPU utilisation.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
)

const (
	cpuMetricName = "CPUUtilization"
	p99Statistic  = "p99"
	secondsPerDay = 86400
)

// Fetcher reads the p99 CPUUtilization of one instance over a trailing
// window. The whole window is a single aggregation period, so CloudWatch
// returns at most one datapoint.
type Fetcher struct {
	client common.CloudWatchClient
	now    func() time.Time
}

// NewFetcher returns a Fetcher using the wall clock.
func NewFetcher(client common.CloudWatchClient) *Fetcher {
	return &Fetcher{client: client, now: time.Now}
}

// NewFetcherWithClock returns a Fetcher whose notion of "today" comes from now.
func NewFetcherWithClock(client common.CloudWatchClient, now func() time.Time) *Fetcher {
	return &Fetcher{client: client, now: now}
}

// P99Utilization returns the p99 CPU percentage of instanceID over the last
// windowDays whole days. It returns *models.NoDataError when CloudWatch has
// no datapoint for the window.
func (f *Fetcher) P99Utilization(
	ctx context.Context,
	spec models.KindSpec,
	instanceID string,
	windowDays int,
) (float64, error) {
	start, end := Window(f.now(), windowDays)

	out, err := f.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(spec.Namespace),
		MetricName: aws.String(cpuMetricName),
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String(spec.Dimension),
				Value: aws.String(instanceID),
			},
		},
		StartTime:          aws.Time(start),
		EndTime:            aws.Time(end),
		Period:             aws.Int32(int32(secondsPerDay * windowDays)),
		ExtendedStatistics: []string{p99Statistic},
		Unit:               cwtypes.StandardUnitPercent,
	})
	if err != nil {
		return 0, fmt.Errorf("GetMetricStatistics %s %s: %w", spec.Namespace, instanceID, err)
	}

	for _, dp := range out.Datapoints {
		if v, ok := dp.ExtendedStatistics[p99Statistic]; ok {
			return v, nil
		}
	}
	return 0, &models.NoDataError{InstanceID: instanceID, WindowDays: windowDays}
}

// Window returns [midnight UTC windowDays ago, midnight UTC today).
func Window(now time.Time, windowDays int) (start, end time.Time) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start = end.AddDate(0, 0, -windowDays)
	return start, end
}
