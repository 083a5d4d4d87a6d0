package searchissues

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/sonar-sync/internal/artifacts"
	"github.com/scan-io-git/sonar-sync/internal/ci"
	internalcmd "github.com/scan-io-git/sonar-sync/internal/cmd"
	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/errors"
	"github.com/scan-io-git/sonar-sync/internal/git"
	"github.com/scan-io-git/sonar-sync/internal/issues"
	"github.com/scan-io-git/sonar-sync/internal/logger"
	"github.com/scan-io-git/sonar-sync/internal/sarif"
)

const commandName = "search-issues"

// Output formats.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// RunOptions holds flags for the search-issues command.
type RunOptions struct {
	Filter       internalcmd.SearchFilter `json:"filter"`
	Format       string                   `json:"format"`
	OutputPath   string                   `json:"output_path,omitempty"`
	SourceFolder string                   `json:"source_folder,omitempty"`
	Upload       bool                     `json:"upload,omitempty"`
	FromCI       bool                     `json:"from_ci,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// SearchIssuesCmd represents the command to export every issue matching a filter.
	SearchIssuesCmd = &cobra.Command{
		Use:                   "search-issues [--projects KEYS] [filters] [--format csv|json|sarif] [--output PATH [--upload]]",
		Short:                 "Export every issue matching a filter, beyond the 10000 results limit",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example: `  sonar-sync search-issues --projects my-app --types VULNERABILITY --format sarif --output ./out
  sonar-sync search-issues --created-after 2023-01-01 --severities BLOCKER,CRITICAL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !internalcmd.HasFlags(cmd.Flags()) {
				return cmd.Help()
			}

			lg := logger.NewLogger(AppConfig, commandName)
			if opts.FromCI {
				applyCIEnvironment(&opts, ci.LookupFunc(os.Getenv), lg)
			}

			if err := validate(&opts); err != nil {
				return errors.NewCommandError(opts, nil, err, errors.ExitArgsError)
			}

			return run(&opts, AppConfig, lg, cmd.OutOrStdout())
		},
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func init() {
	opts.Filter.BindFlags(SearchIssuesCmd.Flags(), "")
	SearchIssuesCmd.Flags().StringVarP(&opts.Format, "format", "f", FormatCSV, "Output format: csv, json or sarif.")
	SearchIssuesCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Folder to save the result to. Standard output when empty.")
	SearchIssuesCmd.Flags().StringVar(&opts.SourceFolder, "source-folder", "", "Local checkout of the analysed code, recorded as SARIF provenance.")
	SearchIssuesCmd.Flags().BoolVar(&opts.Upload, "upload", false, "Upload the saved result to the configured S3 bucket.")
	SearchIssuesCmd.Flags().BoolVar(&opts.FromCI, "from-ci", false, "Take the branch or pull request and the SARIF provenance from the CI job environment.")
	SearchIssuesCmd.Flags().BoolP("help", "h", false, "Show help for search-issues command.")
}

func validate(o *RunOptions) error {
	o.Format = strings.ToLower(o.Format)
	switch o.Format {
	case FormatCSV, FormatJSON, FormatSARIF:
	default:
		return fmt.Errorf("--format must be one of: csv, json, sarif")
	}
	if o.Upload && o.OutputPath == "" {
		return fmt.Errorf("--upload requires --output")
	}
	if o.SourceFolder != "" && o.Format != FormatSARIF {
		return fmt.Errorf("--source-folder is only used with the sarif format")
	}
	return o.Filter.Validate()
}

func run(o *RunOptions, cfg *config.Config, lg hclog.Logger, stdout io.Writer) error {
	client, err := internalcmd.NewSonarClient(cfg, lg)
	if err != nil {
		return errors.NewCommandError(o, nil, err, errors.ExitArgsError)
	}
	svc := issues.NewService(client, lg, client.BaseURL)

	found, err := svc.SearchAll(o.Filter.Params())
	if err != nil {
		lg.Error("issue search failed", "error", err)
		return errors.NewCommandError(o, nil, fmt.Errorf("search issues failed: %w", err), errors.ExitCommandFailure)
	}
	lg.Info("issue search finished", "issues", len(found))

	var tool sarif.ToolMetadata
	var meta *git.RepositoryMetadata
	if o.Format == FormatSARIF {
		tool.ServerURL = client.BaseURL
		if v, err := client.ServerVersion(); err != nil {
			lg.Warn("unable to read server version", "error", err)
		} else {
			tool.Version = v.String()
		}
		meta = provenance(o, ci.LookupFunc(os.Getenv), lg)
	}

	data, err := render(found, o.Format, tool, meta)
	if err != nil {
		return errors.NewCommandError(o, nil, fmt.Errorf("failed to render %s output: %w", o.Format, err), errors.ExitCommandFailure)
	}

	if o.OutputPath == "" {
		if _, err := stdout.Write(data); err != nil {
			return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
		}
		return nil
	}

	path, err := artifacts.Save(lg, o.OutputPath, artifacts.Name(commandName, artifacts.NewRunID(), o.Format), data)
	if err != nil {
		return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
	}
	if o.Upload {
		if err := upload(cfg, lg, path); err != nil {
			return errors.NewCommandError(o, path, err, errors.ExitCommandFailure)
		}
	}
	return nil
}

// applyCIEnvironment fills the branch or pull request filter from the CI job when neither is set.
func applyCIEnvironment(o *RunOptions, lookup ci.LookupFunc, lg hclog.Logger) {
	env, ok := ci.FromEnvironment(lookup)
	if !ok {
		lg.Warn("--from-ci is set but no CI environment was detected")
		return
	}
	if o.Filter.Branch != "" || o.Filter.PullRequest != "" {
		return
	}
	if pr := env.PullRequest(); pr != "" {
		o.Filter.PullRequest = pr
	} else {
		o.Filter.Branch = env.Branch()
	}
	lg.Info("using CI environment", "provider", env.Provider.String(), "branch", o.Filter.Branch, "pullRequest", o.Filter.PullRequest)
}

// provenance prefers the local checkout and falls back to the CI job.
func provenance(o *RunOptions, lookup ci.LookupFunc, lg hclog.Logger) *git.RepositoryMetadata {
	if o.SourceFolder != "" {
		meta, err := git.CollectRepositoryMetadata(o.SourceFolder)
		if err == nil {
			return meta
		}
		lg.Warn("unable to collect repository metadata", "folder", o.SourceFolder, "error", err)
	}
	if o.FromCI {
		if env, ok := ci.FromEnvironment(lookup); ok {
			return env.RepositoryMetadata()
		}
	}
	return nil
}

func upload(cfg *config.Config, lg hclog.Logger, path string) error {
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

// render serializes found issues in the requested format.
func render(found []*issues.Issue, format string, tool sarif.ToolMetadata, meta *git.RepositoryMetadata) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		buf.WriteString(issues.CSVHeader())
		buf.WriteByte('\n')
		for _, issue := range found {
			buf.WriteString(issue.CSV())
			buf.WriteByte('\n')
		}
	case FormatJSON:
		if found == nil {
			found = []*issues.Issue{}
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(found); err != nil {
			return nil, err
		}
	case FormatSARIF:
		report, err := sarif.NewReport(found, tool, meta)
		if err != nil {
			return nil, err
		}
		if err := report.Write(&buf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
