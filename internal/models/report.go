package models

import "time"

// Report is the formatted notification body. It is only built when at least
// one finding exists.
type Report struct {
	Kind       ResourceKind `json:"kind"        yaml:"kind"`
	Region     string       `json:"region"      yaml:"region"`
	WindowDays int          `json:"window_days" yaml:"window_days"`
	Threshold  float64      `json:"threshold"   yaml:"threshold"`
	Dynamic    bool         `json:"dynamic"     yaml:"dynamic"`
	Header     string       `json:"header"      yaml:"header"`
	Lines      []string     `json:"lines"       yaml:"lines"`
}

// Messages returns the header followed by every finding line. This is the
// list delivered to both notification channels.
func (r *Report) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Lines)+1)
	out = append(out, r.Header)
	return append(out, r.Lines...)
}

// PublishResult is the outcome of a successful SNS publish.
type PublishResult struct {
	MessageID string `json:"MessageId" yaml:"message_id"`
}

// SkippedInstance records an instance that could not be evaluated.
type SkippedInstance struct {
	InstanceID string `json:"instance_id" yaml:"instance_id"`
	Reason     string `json:"reason"      yaml:"reason"`
}

// RunResult is the complete outcome of one pipeline run.
type RunResult struct {
	Kind        ResourceKind `json:"kind"         yaml:"kind"`
	Region      string       `json:"region"       yaml:"region"`
	WindowDays  int          `json:"window_days"  yaml:"window_days"`
	StartedAt   time.Time    `json:"started_at"   yaml:"started_at"`
	CompletedAt time.Time    `json:"completed_at" yaml:"completed_at"`

	// Listed counts inventory items after exempt classes were removed.
	Listed int `json:"listed" yaml:"listed"`

	// Evaluated counts instances that produced a utilisation sample.
	Evaluated int `json:"evaluated" yaml:"evaluated"`

	Findings []Finding         `json:"findings"          yaml:"findings"`
	Skipped  []SkippedInstance `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// FrozenThreshold is the derived threshold when dynamic mode ran.
	FrozenThreshold *float64 `json:"frozen_threshold,omitempty" yaml:"frozen_threshold,omitempty"`

	Report *Report `json:"report,omitempty" yaml:"report,omitempty"`

	// Published is nil when SNS was skipped or failed.
	Published     *PublishResult `json:"published,omitempty"      yaml:"published,omitempty"`
	WebhookStatus string         `json:"webhook_status,omitempty" yaml:"webhook_status,omitempty"`

	// NotificationErrors lists per-channel delivery failures as strings.
	NotificationErrors []string `json:"notification_errors,omitempty" yaml:"notification_errors,omitempty"`
}
