// Package ci reads the build context of the CI job sonar-sync runs in.
package ci

import (
	"net/url"
	"os"
	"strings"

	"github.com/scan-io-git/sonar-sync/internal/git"
)

// Provider is a CI system.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderGitHub
	ProviderGitLab
	ProviderBitbucket
)

func (p Provider) String() string {
	switch p {
	case ProviderGitHub:
		return "github"
	case ProviderGitLab:
		return "gitlab"
	case ProviderBitbucket:
		return "bitbucket"
	default:
		return "none"
	}
}

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the build context exposed by a CI provider.
type Environment struct {
	Provider       Provider
	CommitHash     string
	Reference      string // fully qualified, e.g. refs/heads/main or refs/pull/42/merge
	ReferenceName  string // branch, tag or pull request id
	RepositoryName string // namespace/name
	RepositoryURL  string
}

// Detect infers the CI provider from well-known variables.
func Detect(lookup LookupFunc) Provider {
	if lookup == nil {
		lookup = os.Getenv
	}
	switch {
	case lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "":
		return ProviderGitHub
	case strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "":
		return ProviderGitLab
	case lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "":
		return ProviderBitbucket
	}
	return ProviderNone
}

// FromEnvironment returns the build context, or false outside of a known CI provider.
func FromEnvironment(lookup LookupFunc) (Environment, bool) {
	if lookup == nil {
		lookup = os.Getenv
	}
	switch Detect(lookup) {
	case ProviderGitHub:
		return github(lookup), true
	case ProviderGitLab:
		return gitlab(lookup), true
	case ProviderBitbucket:
		return bitbucket(lookup), true
	}
	return Environment{}, false
}

// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func github(lookup LookupFunc) Environment {
	fullName := lookup("GITHUB_REPOSITORY")
	repoURL := ""
	if server := lookup("GITHUB_SERVER_URL"); server != "" && fullName != "" {
		repoURL = strings.TrimRight(server, "/") + "/" + fullName
	}
	return Environment{
		Provider:       ProviderGitHub,
		CommitHash:     lookup("GITHUB_SHA"),
		Reference:      lookup("GITHUB_REF"),
		ReferenceName:  lookup("GITHUB_REF_NAME"),
		RepositoryName: fullName,
		RepositoryURL:  repoURL,
	}
}

// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func gitlab(lookup LookupFunc) Environment {
	var ref, name string
	if tag := lookup("CI_COMMIT_TAG"); tag != "" {
		ref, name = "refs/tags/"+tag, tag
	} else if mrRef := lookup("CI_MERGE_REQUEST_REF_PATH"); mrRef != "" {
		ref, name = mrRef, lookup("CI_MERGE_REQUEST_IID")
	} else if name = lookup("CI_COMMIT_REF_NAME"); name != "" {
		ref = "refs/heads/" + name
	}
	return Environment{
		Provider:       ProviderGitLab,
		CommitHash:     lookup("CI_COMMIT_SHA"),
		Reference:      ref,
		ReferenceName:  name,
		RepositoryName: lookup("CI_PROJECT_PATH"),
		RepositoryURL:  lookup("CI_PROJECT_URL"),
	}
}

// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func bitbucket(lookup LookupFunc) Environment {
	var ref, name string
	if pr := lookup("BITBUCKET_PR_ID"); pr != "" {
		ref, name = "refs/pull/"+pr, pr
	} else if tag := lookup("BITBUCKET_TAG"); tag != "" {
		ref, name = "refs/tags/"+tag, tag
	} else if branch := lookup("BITBUCKET_BRANCH"); branch != "" {
		ref, name = "refs/heads/"+branch, branch
	}

	origin := lookup("BITBUCKET_GIT_HTTP_ORIGIN")
	if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
		origin = ""
	}
	return Environment{
		Provider:       ProviderBitbucket,
		CommitHash:     lookup("BITBUCKET_COMMIT"),
		Reference:      ref,
		ReferenceName:  name,
		RepositoryName: lookup("BITBUCKET_REPO_FULL_NAME"),
		RepositoryURL:  origin,
	}
}

// PullRequest returns the id of the pull or merge request the job runs for.
func (e Environment) PullRequest() string {
	parts := strings.Split(e.Reference, "/")
	for i := 0; i+1 < len(parts); i++ {
		if (parts[i] == "pull" || parts[i] == "merge-requests") && allDigits(parts[i+1]) {
			return parts[i+1]
		}
	}
	return ""
}

// Branch returns the branch the job runs on, or "" for tags and pull requests.
func (e Environment) Branch() string {
	if strings.HasPrefix(e.Reference, "refs/heads/") {
		return strings.TrimPrefix(e.Reference, "refs/heads/")
	}
	return ""
}

// RepositoryMetadata converts the build context into SARIF provenance.
func (e Environment) RepositoryMetadata() *git.RepositoryMetadata {
	md := &git.RepositoryMetadata{}
	if e.CommitHash != "" {
		md.CommitHash = &e.CommitHash
	}
	if branch := e.Branch(); branch != "" {
		md.BranchName = &branch
	}
	if e.RepositoryURL != "" {
		md.RepositoryURL = &e.RepositoryURL
	}
	if e.RepositoryName != "" {
		md.RepositoryName = &e.RepositoryName
	}
	return md
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
