package models

import "fmt"

// ResourceKind identifies the family of managed instances a run inspects.
type ResourceKind string

const (
	KindElastiCache ResourceKind = "elasticache"
	KindRDS         ResourceKind = "rds"
)

// KindSpec holds everything that differs between the ElastiCache and RDS
// pipelines. The pipeline itself is kind-agnostic and reads these fields.
type KindSpec struct {
	Kind ResourceKind

	// DisplayName is used in report headers and log lines.
	DisplayName string

	// Namespace and Dimension address the CloudWatch CPUUtilization metric.
	Namespace string
	Dimension string

	// ThresholdEnv is the environment variable holding the static threshold.
	ThresholdEnv string

	// DynamicThreshold reports whether a threshold of 0 switches the run into
	// core-count derived thresholds.
	DynamicThreshold bool

	// ClassPrefix is stripped from the instance class to obtain the EC2
	// instance type used for core-count lookups ("cache.m5.large" → "m5.large").
	ClassPrefix string
}

var kindSpecs = map[ResourceKind]KindSpec{
	KindElastiCache: {
		Kind:             KindElastiCache,
		DisplayName:      "Elasticache",
		Namespace:        "AWS/ElastiCache",
		Dimension:        "CacheClusterId",
		ThresholdEnv:     "EC_CPU_UTIL_THRESHOLD",
		DynamicThreshold: true,
		ClassPrefix:      "cache.",
	},
	KindRDS: {
		Kind:             KindRDS,
		DisplayName:      "RDS",
		Namespace:        "AWS/RDS",
		Dimension:        "DBInstanceIdentifier",
		ThresholdEnv:     "DB_UTIL_THRESHOLD",
		DynamicThreshold: false,
		ClassPrefix:      "db.",
	},
}

// SpecFor returns the KindSpec for kind.
func SpecFor(kind ResourceKind) (KindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("unsupported resource kind %q", kind)
	}
	return spec, nil
}

// Kinds returns every supported kind in a stable order.
func Kinds() []ResourceKind {
	return []ResourceKind{KindElastiCache, KindRDS}
}

// InstanceDescriptor is a single inventory item returned by the lister.
type InstanceDescriptor struct {
	ID            string `json:"id"             yaml:"id"`
	InstanceClass string `json:"instance_class" yaml:"instance_class"`
	Engine        string `json:"engine"         yaml:"engine"`
	Status        string `json:"status"         yaml:"status"`
}

// UtilizationSample is the evaluated utilisation of one instance.
type UtilizationSample struct {
	InstanceID         string  `json:"instance_id"         yaml:"instance_id"`
	InstanceClass      string  `json:"instance_class"      yaml:"instance_class"`
	P99CPUPercent      float64 `json:"p99_cpu_percent"     yaml:"p99_cpu_percent"`
	EffectiveThreshold float64 `json:"effective_threshold" yaml:"effective_threshold"`
}

// Finding is a sample whose utilisation is at or below its threshold.
type Finding = UtilizationSample
