// Package config loads the immutable parameters of one run from the
// environment, an optional config file and explicit overrides.
package config

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

// Keys understood by Load. Environment variables are bound explicitly because
// their names do not follow a single prefix.
const (
	KeyKind          = "kind"
	KeySNSArn        = "sns_arn"
	KeyDaysInterval  = "days_interval"
	KeyThreshold     = "threshold"
	KeySlackWebhook  = "slack_webhook_ssm"
	KeyRegion        = "region"
	KeyExemptClasses = "exempt_instances_classes"
	KeyLogLevel      = "log_level"
)

// maxWindowDays is the CloudWatch retention for hourly-and-coarser data.
const maxWindowDays = 455

// RunConfig holds every parameter of a single run. It is built once at
// start-up and never mutated.
type RunConfig struct {
	Kind models.ResourceKind
	Spec models.KindSpec

	// NotificationTopic is the SNS topic ARN. Empty disables SNS.
	NotificationTopic string

	WindowDays int

	// Threshold is the static CPU threshold in percent. When Dynamic is true
	// the configured value was 0 and the threshold is derived per run.
	Threshold float64
	Dynamic   bool

	// SecretParameterPath is the SSM parameter holding the webhook URL.
	SecretParameterPath string

	Region string

	ExemptInstanceClasses map[string]struct{}

	LogLevel string
}

// ExemptList returns the exempt classes sorted, for logging and output.
func (c *RunConfig) ExemptList() []string {
	out := make([]string, 0, len(c.ExemptInstanceClasses))
	for class := range c.ExemptInstanceClasses {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// Options tunes Load.
type Options struct {
	// ConfigFile is an optional YAML, JSON or TOML file read before the
	// environment. Environment values win over file values.
	ConfigFile string

	// Overrides win over both file and environment (CLI flags).
	Overrides map[string]any

	// ExemptClasses are merged into the configured exempt set (the Lambda
	// event's exempt_instances_classes).
	ExemptClasses []string
}

// Load resolves a RunConfig. Every missing or unparseable required value is
// reported as *models.ConfigError.
func Load(opts Options) (*RunConfig, error) {
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &models.ConfigError{Field: "config_file", Reason: err.Error()}
		}
	}

	_ = v.BindEnv(KeyKind, "RESOURCE_KIND")
	_ = v.BindEnv(KeySNSArn, "SNS_ARN")
	_ = v.BindEnv(KeyDaysInterval, "DAYS_INTERVAL")
	_ = v.BindEnv(KeySlackWebhook, "SLACK_WEBHOOK_SSM")
	_ = v.BindEnv(KeyRegion, "AWS_REGION", "AWS_DEFAULT_REGION")
	_ = v.BindEnv(KeyExemptClasses, "EXEMPT_INSTANCE_CLASSES")
	_ = v.BindEnv(KeyLogLevel, "LOG_LEVEL")
	v.SetDefault(KeyLogLevel, "info")

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	kindName := strings.ToLower(strings.TrimSpace(v.GetString(KeyKind)))
	if kindName == "" {
		return nil, &models.ConfigError{Field: KeyKind, Reason: "not set (RESOURCE_KIND)"}
	}
	spec, err := models.SpecFor(models.ResourceKind(kindName))
	if err != nil {
		return nil, &models.ConfigError{Field: KeyKind, Reason: err.Error()}
	}

	// The threshold variable name depends on the kind.
	_ = v.BindEnv(KeyThreshold, spec.ThresholdEnv)

	cfg := &RunConfig{
		Kind:              spec.Kind,
		Spec:              spec,
		NotificationTopic: strings.TrimSpace(v.GetString(KeySNSArn)),
		LogLevel:          v.GetString(KeyLogLevel),
	}

	if cfg.WindowDays, err = parseWindowDays(v.GetString(KeyDaysInterval)); err != nil {
		return nil, err
	}
	if cfg.Threshold, err = parseThreshold(v.GetString(KeyThreshold), spec.ThresholdEnv); err != nil {
		return nil, err
	}
	cfg.Dynamic = cfg.Threshold == 0 && spec.DynamicThreshold

	cfg.SecretParameterPath = strings.TrimSpace(v.GetString(KeySlackWebhook))
	if cfg.SecretParameterPath == "" {
		return nil, &models.ConfigError{Field: KeySlackWebhook, Reason: "not set (SLACK_WEBHOOK_SSM)"}
	}

	cfg.Region = strings.TrimSpace(v.GetString(KeyRegion))
	if cfg.Region == "" {
		return nil, &models.ConfigError{Field: KeyRegion, Reason: "not set (AWS_REGION)"}
	}

	cfg.ExemptInstanceClasses = exemptSet(v.GetStringSlice(KeyExemptClasses), opts.ExemptClasses)
	return cfg, nil
}

func parseWindowDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &models.ConfigError{Field: KeyDaysInterval, Reason: "not set (DAYS_INTERVAL)"}
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ConfigError{Field: KeyDaysInterval, Reason: "not an integer: " + strconv.Quote(raw)}
	}
	if days < 1 || days > maxWindowDays {
		return 0, &models.ConfigError{Field: KeyDaysInterval, Reason: "must be between 1 and " + strconv.Itoa(maxWindowDays)}
	}
	return days, nil
}

func parseThreshold(raw, envName string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &models.ConfigError{Field: KeyThreshold, Reason: "not set (" + envName + ")"}
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.ConfigError{Field: KeyThreshold, Reason: "not a number: " + strconv.Quote(raw)}
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return 0, &models.ConfigError{Field: KeyThreshold, Reason: "must be between 0 and 100"}
	}
	return threshold, nil
}

// exemptSet merges configured and event-supplied classes. Values may be
// comma- or whitespace-separated.
func exemptSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, item := range list {
			for _, class := range strings.Split(item, ",") {
				if class = strings.TrimSpace(class); class != "" {
					set[class] = struct{}{}
				}
			}
		}
	}
	return set
}
