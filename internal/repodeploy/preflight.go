package repodeploy

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
)

// newGitHubPreflight returns a check that verifies a github.com repository
// (and branch, when given) exists before anything is cloned. Non-GitHub URLs
// pass through untouched, and API availability problems only log a warning;
// a definitive 404 fails the workflow early with a clear message.
func newGitHubPreflight(log *slog.Logger, token string) func(ctx context.Context, repoURL, branch string) error {
	return func(ctx context.Context, repoURL, branch string) error {
		owner, repo, ok := parseGitHubRepo(repoURL)
		if !ok {
			return nil
		}

		var client *github.Client
		if token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			client = github.NewClient(oauth2.NewClient(ctx, ts))
		} else {
			client = github.NewClient(nil)
		}

		_, resp, err := client.Repositories.Get(ctx, owner, repo)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return deployErrorf("repository %s/%s not found on GitHub", owner, repo)
			}
			log.Warn("github preflight skipped", "repo", repoURL, "error", err)
			return nil
		}
		if branch == "" {
			return nil
		}

		_, resp, err = client.Repositories.GetBranch(ctx, owner, repo, branch, 0)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return deployErrorf("branch %q not found in %s/%s", branch, owner, repo)
			}
			log.Warn("github branch preflight skipped", "repo", repoURL, "branch", branch, "error", err)
		}
		return nil
	}
}

// parseGitHubRepo extracts owner/repo from https or ssh GitHub URLs.
func parseGitHubRepo(repoURL string) (owner, repo string, ok bool) {
	trimmed := strings.TrimSuffix(repoURL, ".git")

	if strings.HasPrefix(trimmed, "git@github.com:") {
		trimmed = strings.TrimPrefix(trimmed, "git@github.com:")
		parts := strings.Split(trimmed, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
		return "", "", false
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !strings.EqualFold(parsed.Host, "github.com") {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
