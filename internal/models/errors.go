package models

import "fmt"

// ConfigError reports a missing or unparseable run parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// SecretLookupError reports that the webhook secret could not be resolved.
type SecretLookupError struct {
	Path string
	Err  error
}

func (e *SecretLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolve secret %q: no value", e.Path)
	}
	return fmt.Sprintf("resolve secret %q: %v", e.Path, e.Err)
}

func (e *SecretLookupError) Unwrap() error { return e.Err }

// NoDataError reports that CloudWatch returned no datapoint for an instance
// over the requested window.
type NoDataError struct {
	InstanceID string
	WindowDays int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no CPUUtilization p99 datapoint for %s over the last %d days", e.InstanceID, e.WindowDays)
}

// NotificationError reports a failed delivery on one channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
