package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pankaj-dahiya-devops/underutil/internal/config"
	"github.com/pankaj-dahiya-devops/underutil/internal/logging"
	"github.com/pankaj-dahiya-devops/underutil/internal/output"
	"github.com/pankaj-dahiya-devops/underutil/internal/pipeline"
	"github.com/pankaj-dahiya-devops/underutil/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/underutil/internal/version"
)

// newAWSProvider is swapped in tests to inject fake clients.
var newAWSProvider = func() common.AWSClientProvider {
	return common.NewDefaultAWSClientProvider()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "underutil",
		Short: "Report under-utilised ElastiCache clusters and RDS instances",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// runFlags are the flags of the run command. Only flags the user set override
// the environment and config file.
type runFlags struct {
	kind        string
	days        int
	threshold   float64
	region      string
	snsArn      string
	webhookSSM  string
	exempt      []string
	configFile  string
	profile     string
	dryRun      bool
	format      string
	showSkipped bool
	logLevel    string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one under-utilisation check and send notifications",
		Long: `Lists every instance of the selected kind in the region, reads its p99
CPUUtilization over the window, and reports the ones at or below the
threshold to SNS and Slack. Flags override environment variables
(RESOURCE_KIND, DAYS_INTERVAL, EC_CPU_UTIL_THRESHOLD / DB_UTIL_THRESHOLD,
SNS_ARN, SLACK_WEBHOOK_SSM, AWS_REGION, EXEMPT_INSTANCE_CLASSES).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{
				ConfigFile:    f.configFile,
				Overrides:     runOverrides(cmd, f),
				ExemptClasses: f.exempt,
			})
			if err != nil {
				return err
			}

			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, true)
			ctx := logger.WithContext(cmd.Context())

			result, err := pipeline.Execute(ctx, newAWSProvider(), cfg, pipeline.ExecuteOptions{
				Profile: f.profile,
				DryRun:  f.dryRun,
			})
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			return output.Render(cmd.OutOrStdout(), result, f.format, output.TableOptions{
				Colored:        isTerminal(cmd),
				IncludeSkipped: f.showSkipped,
			})
		},
	}

	cmd.Flags().StringVar(&f.kind, "kind", "", "Resource kind: elasticache or rds (env RESOURCE_KIND)")
	cmd.Flags().IntVar(&f.days, "days", 0, "Lookback window in days (env DAYS_INTERVAL)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "CPU threshold in percent; 0 derives it from core count for elasticache")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (env AWS_REGION)")
	cmd.Flags().StringVar(&f.snsArn, "sns-arn", "", "SNS topic ARN; empty disables SNS (env SNS_ARN)")
	cmd.Flags().StringVar(&f.webhookSSM, "webhook-ssm", "", "SSM parameter holding the Slack webhook URL (env SLACK_WEBHOOK_SSM)")
	cmd.Flags().StringSliceVar(&f.exempt, "exempt", nil, "Instance classes to ignore (repeatable or comma-separated)")
	cmd.Flags().StringVar(&f.configFile, "config", "", "Optional YAML/JSON config file")
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Build the report but do not send notifications")
	cmd.Flags().StringVar(&f.format, "format", output.FormatTable, "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&f.showSkipped, "show-skipped", false, "List instances that could not be evaluated")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (env LOG_LEVEL)")

	return cmd
}

// runOverrides maps the flags the user set onto config keys.
func runOverrides(cmd *cobra.Command, f runFlags) map[string]any {
	overrides := make(map[string]any)
	set := func(flag, key string, value any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("kind", config.KeyKind, f.kind)
	set("days", config.KeyDaysInterval, f.days)
	set("threshold", config.KeyThreshold, f.threshold)
	set("region", config.KeyRegion, f.region)
	set("sns-arn", config.KeySNSArn, f.snsArn)
	set("webhook-ssm", config.KeySlackWebhook, f.webhookSSM)
	set("log-level", config.KeyLogLevel, f.logLevel)
	return overrides
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	file, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
