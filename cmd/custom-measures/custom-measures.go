package custommeasures

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	internalcmd "github.com/scan-io-git/sonar-sync/internal/cmd"
	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/errors"
	"github.com/scan-io-git/sonar-sync/internal/logger"
	"github.com/scan-io-git/sonar-sync/internal/sonar"
)

// RunOptions holds flags for the custom-measures command.
type RunOptions struct {
	Project     string `json:"project"`
	Metric      string `json:"metric,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// CustomMeasuresCmd represents the command to list or update custom measures of a project.
	CustomMeasuresCmd = &cobra.Command{
		Use:                   "custom-measures --project KEY [--metric KEY [--value VALUE] [--description TEXT]]",
		Short:                 "List or update project custom measures (servers up to 8.9)",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example: `  sonar-sync custom-measures --project my-app
  sonar-sync custom-measures --project my-app --metric team_size --value 8 --description "Q3 headcount"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !internalcmd.HasFlags(cmd.Flags()) {
				return cmd.Help()
			}

			if err := validate(&opts); err != nil {
				return errors.NewCommandError(opts, nil, err, errors.ExitArgsError)
			}

			lg := logger.NewLogger(AppConfig, "custom-measures")
			return run(&opts, AppConfig, lg, cmd.OutOrStdout())
		},
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func init() {
	CustomMeasuresCmd.Flags().StringVar(&opts.Project, "project", "", "Project key.")
	CustomMeasuresCmd.Flags().StringVar(&opts.Metric, "metric", "", "Custom metric key.")
	CustomMeasuresCmd.Flags().StringVar(&opts.Value, "value", "", "New value. Lists the measures when empty.")
	CustomMeasuresCmd.Flags().StringVar(&opts.Description, "description", "", "New description of the measure.")
	CustomMeasuresCmd.Flags().BoolP("help", "h", false, "Show help for custom-measures command.")
}

func validate(o *RunOptions) error {
	if o.Project == "" {
		return fmt.Errorf("--project is required")
	}
	if o.Value != "" && o.Metric == "" {
		return fmt.Errorf("--value requires --metric")
	}
	if o.Description != "" && o.Value == "" {
		return fmt.Errorf("--description requires --value")
	}
	return nil
}

func run(o *RunOptions, cfg *config.Config, lg hclog.Logger, stdout io.Writer) error {
	client, err := internalcmd.NewSonarClient(cfg, lg)
	if err != nil {
		return errors.NewCommandError(o, nil, err, errors.ExitArgsError)
	}

	if err := client.CustomMeasuresSupported(); err != nil {
		if stderrors.Is(err, sonar.ErrUnsupportedVersion) {
			lg.Error("custom measures are not available on this server", "error", err)
			return errors.NewCommandError(o, nil, err, errors.ExitUnsupportedOperation)
		}
		return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
	}

	if o.Value == "" {
		measures, err := client.SearchCustomMeasures(o.Project, o.Metric)
		if err != nil {
			return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
		}
		if measures == nil {
			measures = []sonar.CustomMeasure{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(measures)
	}

	if err := client.UpdateCustomMeasure(o.Project, o.Metric, o.Value, o.Description); err != nil {
		lg.Error("failed to update custom measure", "project", o.Project, "metric", o.Metric, "error", err)
		return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
	}
	lg.Info("custom measure updated", "project", o.Project, "metric", o.Metric, "value", o.Value)
	return nil
}
