// Package output renders a run result for terminal and machine consumers.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/underutil/internal/models"
)

// ANSI color codes for utilisation output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiYellow  = "\033[0;33m"
)

// Format names accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// TableOptions controls how RenderTable lays out a run.
type TableOptions struct {
	// Colored wraps the P99 cell with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeSkipped appends the instances that could not be evaluated.
	IncludeSkipped bool
}

// Render writes result in format. Unknown formats are an error.
func Render(w io.Writer, result *models.RunResult, format string, opts TableOptions) error {
	switch format {
	case "", FormatTable:
		RenderTable(w, result, opts)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// ColorUtilisation renders a p99 percentage. When colored, values at or below
// half the threshold are bold red and the rest yellow.
func ColorUtilisation(p99, threshold float64, colored bool) string {
	s := fmt.Sprintf("%.2f%%", p99)
	if !colored {
		return s
	}
	if p99 <= threshold/2 {
		return ansiBoldRed + s + ansiReset
	}
	return ansiYellow + s + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// utilisationCell returns the p99 cell padded to width characters.
// ANSI codes wrap only the text; trailing padding spaces are plain so later
// columns stay aligned.
func utilisationCell(p99, threshold float64, width int, colored bool) string {
	text := fmt.Sprintf("%.2f%%", p99)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return ColorUtilisation(p99, threshold, true) + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// RenderTable writes a summary line followed by a findings table to w.
//
// Column order:
//
//	INSTANCE ID  CLASS  P99 CPU  THRESHOLD
func RenderTable(w io.Writer, result *models.RunResult, opts TableOptions) {
	fmt.Fprintf(w,
		"Kind: %-12s  Region: %-15s  Window: %dd  Listed: %d  Evaluated: %d  Findings: %d\n",
		result.Kind, result.Region, result.WindowDays, result.Listed, result.Evaluated, len(result.Findings),
	)
	if result.FrozenThreshold != nil {
		fmt.Fprintf(w, "Derived threshold: %.2f%%\n", *result.FrozenThreshold)
	}

	fmt.Fprintln(w)
	if len(result.Findings) == 0 {
		fmt.Fprintln(w, "No under-utilised instances.")
	} else {
		const (
			wID    = 40
			wClass = 20
			wP99   = 10
		)
		header := fmt.Sprintf("%-*s  %-*s  %-*s  %s", wID, "INSTANCE ID", wClass, "CLASS", wP99, "P99 CPU", "THRESHOLD")
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, strings.Repeat("-", len(header)))

		for _, f := range result.Findings {
			fmt.Fprintf(w, "%-*s  %-*s  %s  %.2f%%\n",
				wID, truncateField(f.InstanceID, wID),
				wClass, truncateField(f.InstanceClass, wClass),
				utilisationCell(f.P99CPUPercent, f.EffectiveThreshold, wP99, opts.Colored),
				f.EffectiveThreshold,
			)
		}
	}

	if opts.IncludeSkipped && len(result.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped (%d):\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.InstanceID, ShortenMessage(s.Reason, 80))
		}
	}

	if result.Report != nil {
		switch {
		case result.Published != nil:
			fmt.Fprintf(w, "\nSNS message: %s\n", result.Published.MessageID)
		case result.WebhookStatus == "" && len(result.NotificationErrors) == 0:
			fmt.Fprintln(w, "\nNotifications not sent.")
		}
		if result.WebhookStatus != "" {
			fmt.Fprintf(w, "Webhook: %s\n", result.WebhookStatus)
		}
		for _, e := range result.NotificationErrors {
			fmt.Fprintf(w, "Notification error: %s\n", e)
		}
	}
}
