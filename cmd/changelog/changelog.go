package changelog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	internalcmd "github.com/scan-io-git/sonar-sync/internal/cmd"
	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/errors"
	"github.com/scan-io-git/sonar-sync/internal/issues"
	"github.com/scan-io-git/sonar-sync/internal/logger"
	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// RunOptions holds flags for the changelog command.
type RunOptions struct {
	Issue       string `json:"issue"`
	Branch      string `json:"branch,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	JSON        bool   `json:"json,omitempty"`
}

type timelineOutput struct {
	Issue    *issues.Issue      `json:"issue"`
	URL      string             `json:"url"`
	Timeline changelog.Timeline `json:"timeline"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// ChangelogCmd represents the command to print the normalized history of an issue.
	ChangelogCmd = &cobra.Command{
		Use:                   "changelog --issue KEY [--branch BRANCH | --pull-request ID] [--json]",
		Short:                 "Print the history and comments of an issue as normalized events",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               "  sonar-sync changelog --issue AYxK2f8Qp0Zq1c3nT9aB --branch main",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !internalcmd.HasFlags(cmd.Flags()) {
				return cmd.Help()
			}

			if err := validate(&opts); err != nil {
				return errors.NewCommandError(opts, nil, err, errors.ExitArgsError)
			}

			lg := logger.NewLogger(AppConfig, "changelog")
			return run(&opts, AppConfig, lg, cmd.OutOrStdout())
		},
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func init() {
	ChangelogCmd.Flags().StringVar(&opts.Issue, "issue", "", "Key of the issue.")
	ChangelogCmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch the issue belongs to.")
	ChangelogCmd.Flags().StringVar(&opts.PullRequest, "pull-request", "", "Pull request the issue belongs to.")
	ChangelogCmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the issue and its timeline as JSON.")
	ChangelogCmd.Flags().BoolP("help", "h", false, "Show help for changelog command.")
}

func validate(o *RunOptions) error {
	o.Issue = strings.TrimSpace(o.Issue)
	if o.Issue == "" {
		return fmt.Errorf("--issue is required")
	}
	if o.Branch != "" && o.PullRequest != "" {
		return fmt.Errorf("--branch and --pull-request are mutually exclusive")
	}
	return nil
}

func run(o *RunOptions, cfg *config.Config, lg hclog.Logger, stdout io.Writer) error {
	client, err := internalcmd.NewSonarClient(cfg, lg)
	if err != nil {
		return errors.NewCommandError(o, nil, err, errors.ExitArgsError)
	}
	svc := issues.NewService(client, lg, client.BaseURL)

	issue := &issues.Issue{Key: o.Issue, Branch: o.Branch, PullRequest: o.PullRequest}
	if err := svc.Read(issue); err != nil {
		lg.Error("failed to read issue", "issue", o.Issue, "error", err)
		return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
	}
	timeline, err := svc.Timeline(issue, true)
	if err != nil {
		lg.Error("failed to build timeline", "issue", o.Issue, "error", err)
		return errors.NewCommandError(o, nil, err, errors.ExitCommandFailure)
	}

	if o.JSON {
		if timeline == nil {
			timeline = changelog.Timeline{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(timelineOutput{Issue: issue, URL: issue.URL(client.BaseURL), Timeline: timeline})
	}
	printTimeline(stdout, issue, timeline)
	return nil
}

func printTimeline(w io.Writer, issue *issues.Issue, timeline changelog.Timeline) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n", issue.Key, issue.Rule, issue.Status, issue.Component)
	if timeline.Empty() {
		fmt.Fprintln(w, "No history")
		return
	}
	for _, ev := range timeline {
		author := ev.Author
		if author == "" {
			author = "-"
		}
		fmt.Fprintf(w, "%s  %-16s  %s\n", ev.Date.Format(changelog.DateLayout), author, ev.String())
	}
}
