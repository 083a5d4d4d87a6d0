package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/sonar"
)

var (
	knownTypes      = []string{"CODE_SMELL", "VULNERABILITY", "BUG", "SECURITY_HOTSPOT"}
	knownSeverities = []string{"INFO", "MINOR", "MAJOR", "CRITICAL", "BLOCKER"}
)

// HasFlags reports whether any flag was set on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) {
		changed = true
	})
	return changed
}

// SearchFilter holds the issue search flags shared by several commands.
type SearchFilter struct {
	Projects      []string `json:"projects,omitempty"`
	Branch        string   `json:"branch,omitempty"`
	PullRequest   string   `json:"pull_request,omitempty"`
	Types         []string `json:"types,omitempty"`
	Severities    []string `json:"severities,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	Resolutions   []string `json:"resolutions,omitempty"`
	Rules         []string `json:"rules,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAfter  string   `json:"created_after,omitempty"`
	CreatedBefore string   `json:"created_before,omitempty"`
}

// BindFlags registers the filter flags on fs. A non-empty prefix is prepended
// to every flag name, e.g. "source-" gives --source-projects.
func (f *SearchFilter) BindFlags(fs *pflag.FlagSet, prefix string) {
	scope := strings.TrimSuffix(prefix, "-")
	if scope != "" {
		scope += " "
	}
	fs.StringSliceVar(&f.Projects, prefix+"projects", nil, "Comma-separated list of "+scope+"project keys. All projects when empty.")
	fs.StringVar(&f.Branch, prefix+"branch", "", "Branch of the "+scope+"projects to search.")
	fs.StringVar(&f.PullRequest, prefix+"pull-request", "", "Pull request id of the "+scope+"projects to search.")
	fs.StringSliceVar(&f.Types, prefix+"types", nil, "Issue types: CODE_SMELL, VULNERABILITY, BUG, SECURITY_HOTSPOT.")
	fs.StringSliceVar(&f.Severities, prefix+"severities", nil, "Issue severities: INFO, MINOR, MAJOR, CRITICAL, BLOCKER.")
	fs.StringSliceVar(&f.Statuses, prefix+"statuses", nil, "Issue statuses, e.g. OPEN,CONFIRMED.")
	fs.StringSliceVar(&f.Resolutions, prefix+"resolutions", nil, "Issue resolutions, e.g. FALSE-POSITIVE,WONTFIX.")
	fs.StringSliceVar(&f.Rules, prefix+"rules", nil, "Rule keys, e.g. java:S1135.")
	fs.StringSliceVar(&f.Tags, prefix+"tags", nil, "Issue tags.")
	fs.StringVar(&f.CreatedAfter, prefix+"created-after", "", "Only issues created on or after this date (YYYY-MM-DD).")
	fs.StringVar(&f.CreatedBefore, prefix+"created-before", "", "Only issues created on or before this date (YYYY-MM-DD).")
}

// Validate checks enumerated values and dates.
func (f *SearchFilter) Validate() error {
	if f.Branch != "" && f.PullRequest != "" {
		return fmt.Errorf("branch and pull request filters are mutually exclusive")
	}
	if err := checkValues("type", f.Types, knownTypes); err != nil {
		return err
	}
	if err := checkValues("severity", f.Severities, knownSeverities); err != nil {
		return err
	}

	var after, before time.Time
	var err error
	if f.CreatedAfter != "" {
		if after, err = time.Parse(time.DateOnly, f.CreatedAfter); err != nil {
			return fmt.Errorf("invalid created-after date %q: expected YYYY-MM-DD", f.CreatedAfter)
		}
	}
	if f.CreatedBefore != "" {
		if before, err = time.Parse(time.DateOnly, f.CreatedBefore); err != nil {
			return fmt.Errorf("invalid created-before date %q: expected YYYY-MM-DD", f.CreatedBefore)
		}
	}
	if !after.IsZero() && !before.IsZero() && before.Before(after) {
		return fmt.Errorf("created-before %s is earlier than created-after %s", f.CreatedBefore, f.CreatedAfter)
	}
	return nil
}

// Params converts the filter into issue search parameters.
func (f *SearchFilter) Params() map[string]string {
	params := map[string]string{}
	setList := func(key string, values []string) {
		if len(values) > 0 {
			params[key] = strings.Join(values, ",")
		}
	}
	setValue := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}

	setList("componentKeys", f.Projects)
	setList("types", upper(f.Types))
	setList("severities", upper(f.Severities))
	setList("statuses", upper(f.Statuses))
	setList("resolutions", upper(f.Resolutions))
	setList("rules", f.Rules)
	setList("tags", f.Tags)
	setValue("branch", f.Branch)
	setValue("pullRequest", f.PullRequest)
	setValue("createdAfter", f.CreatedAfter)
	setValue("createdBefore", f.CreatedBefore)
	return params
}

// NewSonarClient builds a server client from the sonar section of cfg.
func NewSonarClient(cfg *config.Config, logger hclog.Logger) (*sonar.Client, error) {
	if cfg == nil || cfg.Sonar.URL == "" {
		return nil, fmt.Errorf("sonar url is not configured: set sonar.url or %s", config.SonarURLEnv)
	}
	return sonar.New(cfg, logger, cfg.Sonar.URL, sonar.AuthInfo{Token: cfg.Sonar.Token})
}

func checkValues(name string, values, allowed []string) error {
	for _, v := range values {
		found := false
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown issue %s %q, expected one of %s", name, v, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
