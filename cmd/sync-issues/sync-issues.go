package syncissues

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/sonar-sync/internal/artifacts"
	internalcmd "github.com/scan-io-git/sonar-sync/internal/cmd"
	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/errors"
	"github.com/scan-io-git/sonar-sync/internal/issues"
	"github.com/scan-io-git/sonar-sync/internal/logger"
)

const commandName = "sync-issues"

// RunOptions holds flags for the sync-issues command.
type RunOptions struct {
	Source          internalcmd.SearchFilter `json:"source"`
	Target          internalcmd.SearchFilter `json:"target"`
	IgnoreComponent bool                     `json:"ignore_component"`
	OutputPath      string                   `json:"output_path,omitempty"`
	Upload          bool                     `json:"upload,omitempty"`
}

// Result is the document written at the end of a run.
type Result struct {
	RunID  string            `json:"runId"`
	Source map[string]string `json:"source"`
	Target map[string]string `json:"target"`
	*issues.SyncReport
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// SyncIssuesCmd represents the command to replay issue reviews from one scope onto another.
	SyncIssuesCmd = &cobra.Command{
		Use:                   "sync-issues --source-projects KEYS [--source-branch B] [--target-projects KEYS] [--target-branch B] [filters]",
		Short:                 "Replay the review history of issues onto their siblings in another branch or project",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example: `  sonar-sync sync-issues --source-projects my-app --source-branch main --target-branch release-2.0
  sonar-sync sync-issues --source-projects legacy-app --target-projects new-app --ignore-component`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !internalcmd.HasFlags(cmd.Flags()) {
				return cmd.Help()
			}
			if !cmd.Flags().Changed("ignore-component") {
				opts.IgnoreComponent = config.IgnoreComponent(AppConfig)
			}

			if err := validate(&opts); err != nil {
				return errors.NewCommandError(opts, nil, err, errors.ExitArgsError)
			}

			lg := logger.NewLogger(AppConfig, commandName)
			return run(&opts, AppConfig, lg, cmd.OutOrStdout())
		},
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func init() {
	opts.Source.BindFlags(SyncIssuesCmd.Flags(), "source-")
	opts.Target.BindFlags(SyncIssuesCmd.Flags(), "target-")
	SyncIssuesCmd.Flags().BoolVar(&opts.IgnoreComponent, "ignore-component", false, "Match issues even when their file paths differ (sync.ignore_component in config).")
	SyncIssuesCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Folder to save the sync report to. Standard output when empty.")
	SyncIssuesCmd.Flags().BoolVar(&opts.Upload, "upload", false, "Upload the saved report to the configured S3 bucket.")
	SyncIssuesCmd.Flags().BoolP("help", "h", false, "Show help for sync-issues command.")
}

func validate(o *RunOptions) error {
	if len(o.Source.Projects) == 0 {
		return fmt.Errorf("--source-projects is required")
	}
	if len(o.Target.Projects) == 0 {
		o.Target.Projects = o.Source.Projects
	}
	if err := o.Source.Validate(); err != nil {
		return fmt.Errorf("source filter: %w", err)
	}
	if err := o.Target.Validate(); err != nil {
		return fmt.Errorf("target filter: %w", err)
	}
	if reflect.DeepEqual(o.Source.Params(), o.Target.Params()) {
		return fmt.Errorf("source and target scopes are identical")
	}
	if o.Upload && o.OutputPath == "" {
		return fmt.Errorf("--upload requires --output")
	}
	return nil
}

func run(o *RunOptions, cfg *config.Config, lg hclog.Logger, stdout io.Writer) error {
	client, err := internalcmd.NewSonarClient(cfg, lg)
	if err != nil {
		return errors.NewCommandError(o, nil, err, errors.ExitArgsError)
	}
	svc := issues.NewService(client, lg, client.BaseURL, issues.WithLinkComment(config.AddLinkComment(cfg)))

	sourceParams, targetParams := o.Source.Params(), o.Target.Params()
	sources, err := svc.SearchAll(sourceParams)
	if err != nil {
		lg.Error("source search failed", "error", err)
		return errors.NewCommandError(o, nil, fmt.Errorf("source search failed: %w", err), errors.ExitCommandFailure)
	}
	targets, err := svc.SearchAll(targetParams)
	if err != nil {
		lg.Error("target search failed", "error", err)
		return errors.NewCommandError(o, nil, fmt.Errorf("target search failed: %w", err), errors.ExitCommandFailure)
	}
	lg.Info("starting sync", "sources", len(sources), "targets", len(targets), "ignoreComponent", o.IgnoreComponent)

	report := svc.Sync(sources, targets, issues.SyncOptions{IgnoreComponent: o.IgnoreComponent})
	result := &Result{
		RunID:      artifacts.NewRunID(),
		Source:     sourceParams,
		Target:     targetParams,
		SyncReport: report,
	}
	lg.Info("sync finished",
		"runId", result.RunID,
		"replicated", len(report.Replicated),
		"ambiguous", len(report.Ambiguous),
		"unmatched", len(report.Unmatched),
		"failures", len(report.Failures),
	)

	if err := writeResult(o, cfg, lg, stdout, result); err != nil {
		return errors.NewCommandError(o, result, err, errors.ExitCommandFailure)
	}
	if len(report.Failures) > 0 {
		return errors.NewCommandError(o, result, fmt.Errorf("%d issue(s) failed to sync", len(report.Failures)), errors.ExitCommandFailure)
	}
	return nil
}

func writeResult(o *RunOptions, cfg *config.Config, lg hclog.Logger, stdout io.Writer, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync report: %w", err)
	}
	data = append(data, '\n')

	if o.OutputPath == "" {
		_, err := stdout.Write(data)
		return err
	}

	path, err := artifacts.Save(lg, o.OutputPath, artifacts.Name(commandName, result.RunID, "json"), data)
	if err != nil {
		return err
	}
	if !o.Upload {
		return nil
	}
	uploader, err := artifacts.NewS3Uploader(cfg, lg)
	if err != nil {
		return err
	}
	if uploader == nil {
		return fmt.Errorf("--upload requires s3.bucket in the configuration")
	}
	_, err = uploader.Upload(path)
	return err
}
