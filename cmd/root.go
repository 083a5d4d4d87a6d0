package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	changelogcmd "github.com/scan-io-git/sonar-sync/cmd/changelog"
	custommeasures "github.com/scan-io-git/sonar-sync/cmd/custom-measures"
	searchissues "github.com/scan-io-git/sonar-sync/cmd/search-issues"
	syncissues "github.com/scan-io-git/sonar-sync/cmd/sync-issues"
	"github.com/scan-io-git/sonar-sync/cmd/version"
	"github.com/scan-io-git/sonar-sync/internal/config"
	cmderrors "github.com/scan-io-git/sonar-sync/internal/errors"
)

const defaultConfigFile = "config.yml"

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "sonar-sync [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "sonar-sync searches, exports and synchronizes SonarQube issues.",
		Long: `sonar-sync is a client-side toolkit for a SonarQube server.
It searches issues beyond the 10000 results limit, exports them as CSV, JSON or SARIF,
prints issue changelogs and replays the review history of issues onto their siblings
in other branches or projects.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $%s or ./%s)", config.ConfigPathEnv, defaultConfigFile))

	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(searchissues.SearchIssuesCmd)
	rootCmd.AddCommand(syncissues.SyncIssuesCmd)
	rootCmd.AddCommand(changelogcmd.ChangelogCmd)
	rootCmd.AddCommand(custommeasures.CustomMeasuresCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err == nil {
		return cmderrors.ExitOK
	}

	var cmdErr *cmderrors.CommandError
	if errors.As(err, &cmdErr) {
		fmt.Fprintf(os.Stderr, "Error executing command: %s\n", cmdErr.CommonError)
		return cmdErr.ExitCode
	}
	fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	return cmderrors.ExitArgsError
}

func initConfig() {
	var err error

	AppConfig, err = config.NewConfig(resolveConfigPath(cfgFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(cmderrors.ExitArgsError)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmderrors.ExitArgsError)
	}

	version.Init(AppConfig)
	searchissues.Init(AppConfig)
	syncissues.Init(AppConfig)
	changelogcmd.Init(AppConfig)
	custommeasures.Init(AppConfig)
}

// resolveConfigPath picks the flag value, then the environment, then config.yml
// in the working directory when it exists. An empty result means built-in defaults.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(config.ConfigPathEnv); v != "" {
		return v
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}
