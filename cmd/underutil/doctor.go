package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/underutil/internal/config"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/secrets"
)

// DoctorResult is the structured output of underutil doctor. It can be
// serialised to JSON via --format=json or rendered as a table (default).
type DoctorResult struct {
	Config struct {
		Valid  bool   `json:"valid"`
		Kind   string `json:"kind,omitempty"`
		Region string `json:"region,omitempty"`
		Error  string `json:"error,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Webhook struct {
		Parameter  string `json:"parameter,omitempty"`
		Resolvable bool   `json:"resolvable"`
		Error      string `json:"error,omitempty"`
	} `json:"webhook"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Check configuration, AWS credentials and the webhook secret",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			configFile, _ := cmd.Flags().GetString("config")
			result, err := runDoctor(
				cmd.Context(),
				newAWSProvider(),
				config.Options{ConfigFile: configFile},
				cmd.OutOrStdout(),
				format,
				profile,
			)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().String("config", "", "Optional YAML/JSON config file")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures. Callers inspect
// result.OverallHealthy to decide the exit status.
func runDoctor(ctx context.Context, provider common.AWSClientProvider, opts config.Options, w io.Writer, format, profile string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, provider, opts, profile)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs config → credentials → secret checks in order.
// Later checks are skipped when an earlier one they depend on fails.
func collectDoctorResult(ctx context.Context, provider common.AWSClientProvider, opts config.Options, profile string) DoctorResult {
	var result DoctorResult
	if profile != "" {
		result.AWS.Profile = profile
	}

	cfg, err := config.Load(opts)
	if err != nil {
		result.Config.Error = err.Error()
		return result
	}
	result.Config.Valid = true
	result.Config.Kind = string(cfg.Kind)
	result.Config.Region = cfg.Region
	result.Webhook.Parameter = cfg.SecretParameterPath

	session, err := provider.Load(ctx, profile, cfg.Region)
	if err != nil {
		result.AWS.Error = err.Error()
		return result
	}
	account, err := provider.CallerAccount(ctx, session)
	if err != nil {
		result.AWS.Error = err.Error()
		return result
	}
	result.AWS.Credentials = true
	result.AWS.AccountID = account

	if _, err := secrets.Resolve(ctx, session.Clients.SSM, cfg.SecretParameterPath); err != nil {
		result.Webhook.Error = err.Error()
	} else {
		result.Webhook.Resolvable = true
	}

	result.OverallHealthy = result.Config.Valid && result.AWS.Credentials && result.Webhook.Resolvable
	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if !result.Config.Valid {
		doctorPrint(w, "Run parameters", "FAIL", result.Config.Error)
	} else {
		doctorPrint(w, "Run parameters", "OK", result.Config.Kind+" in "+result.Config.Region)
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	switch {
	case !result.Config.Valid:
		doctorPrint(w, "Credentials", "FAIL", "skipped")
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	case !result.AWS.Credentials:
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	default:
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
	}

	fmt.Fprintln(w, "\nSlack webhook:")
	switch {
	case !result.AWS.Credentials:
		doctorPrint(w, "SSM parameter", "FAIL", "skipped")
	case result.Webhook.Resolvable:
		doctorPrint(w, "SSM parameter", "OK", result.Webhook.Parameter)
	default:
		doctorPrint(w, "SSM parameter", "FAIL", result.Webhook.Error)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
