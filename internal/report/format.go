// Package report turns evaluated findings into the operator-facing message.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

// Options describes the run a report is built for.
type Options struct {
	Spec       models.KindSpec
	Region     string
	WindowDays int

	// Threshold is the configured static threshold, or the frozen derived
	// threshold in dynamic mode.
	Threshold float64
	Dynamic   bool
}

// Format returns the report for findings, or nil when there are none.
func Format(opts Options, findings []models.Finding) *models.Report {
	if len(findings) == 0 {
		return nil
	}

	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, FindingLine(f, opts.Dynamic))
	}

	return &models.Report{
		Kind:       opts.Spec.Kind,
		Region:     opts.Region,
		WindowDays: opts.WindowDays,
		Threshold:  opts.Threshold,
		Dynamic:    opts.Dynamic,
		Header:     Header(opts),
		Lines:      lines,
	}
}

// Header returns the first message line. Static runs name the threshold in
// the header; dynamic runs annotate each finding line instead.
func Header(opts Options) string {
	header := fmt.Sprintf(
		"The list of under-utilised %s instances in `%s` region for the past `%d` days",
		opts.Spec.DisplayName, opts.Region, opts.WindowDays,
	)
	if opts.Dynamic {
		return header
	}
	return header + fmt.Sprintf(" (_instances below `%s%%` CPUUtilization_)", StaticThreshold(opts.Threshold))
}

// FindingLine renders one finding as "id : 12.34%" with a threshold
// annotation appended in dynamic mode.
func FindingLine(f models.Finding, dynamic bool) string {
	if dynamic {
		return fmt.Sprintf("%s : %.2f%%, threshold: %s%%", f.InstanceID, f.P99CPUPercent, DerivedThreshold(f.EffectiveThreshold))
	}
	return fmt.Sprintf("%s : %.2f%%", f.InstanceID, f.P99CPUPercent)
}

// StaticThreshold renders a configured threshold as the operator wrote it:
// 20 → "20", 7.5 → "7.5".
func StaticThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DerivedThreshold renders a computed threshold with at least one decimal
// place: 30 → "30.0", 22.5 → "22.5".
func DerivedThreshold(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
