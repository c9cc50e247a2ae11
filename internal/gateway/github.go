// Package gateway provides the fetch client for the GitHub REST API. It is
// the only component that talks to the network; it never touches the cache.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/jamesmurdza/repo-health-check/internal/config"
	"github.com/jamesmurdza/repo-health-check/internal/domain"
)

const requestTimeout = 30 * time.Second

// retryBackoff is a variable so tests can shorten the transient-retry wait.
var retryBackoff = 2 * time.Second

// Fetcher defines the behavior of a gateway for fetching repository data,
// one method per data category.
type Fetcher interface {
	FetchIssues(ctx context.Context, id domain.Identity) ([]domain.Issue, error)
	FetchPulls(ctx context.Context, id domain.Identity) ([]domain.PullRequest, error)
	FetchCommits(ctx context.Context, id domain.Identity) ([]domain.Commit, error)
	FetchContributors(ctx context.Context, id domain.Identity) ([]domain.Contributor, error)
	FetchCommunity(ctx context.Context, id domain.Identity) (*domain.CommunityProfile, error)
	FetchRepoInfo(ctx context.Context, id domain.Identity) (*domain.RepoInfo, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	client     *github.Client
	logger     *log.Logger
	thresholds config.Thresholds
	now        func() time.Time
}

// NewGitHubGateway creates a gateway. An empty token means unauthenticated
// requests at the lower rate limit; with a token, an oauth2 transport adds
// the bearer credential to every request. Either way the transport waits
// out short secondary rate limits instead of failing.
func NewGitHubGateway(token string, thresholds config.Thresholds, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(5*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = rateLimitWaiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	httpClient := &http.Client{Transport: transport, Timeout: requestTimeout}

	return &GitHubGateway{
		client:     github.NewClient(httpClient),
		logger:     logger,
		thresholds: thresholds,
		now:        time.Now,
	}, nil
}

// do runs one API call, classifying failures and retrying a transient one
// exactly once after a short backoff. Typed failures are never retried.
func (g *GitHubGateway) do(ctx context.Context, call func() error) error {
	err := call()
	if err == nil {
		return nil
	}
	cerr := classify(err)
	if permanent(cerr) || errors.Is(cerr, context.Canceled) || errors.Is(cerr, context.DeadlineExceeded) {
		return cerr
	}

	g.logger.Printf("  Transient failure, retrying once: %v", cerr)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}

	if err := call(); err != nil {
		return classify(err)
	}
	return nil
}

// FetchIssues returns all issues (open and closed, pull requests excluded)
// up to the page cap, in the platform's default reverse-chronological order.
func (g *GitHubGateway) FetchIssues(ctx context.Context, id domain.Identity) ([]domain.Issue, error) {
	g.logger.Printf("Fetching issues for %s...", id)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: g.thresholds.PerPage},
	}

	var issues []domain.Issue
	for page := 0; page < g.thresholds.MaxPages; page++ {
		var list []*github.Issue
		var resp *github.Response
		err := g.do(ctx, func() error {
			var err error
			list, resp, err = g.client.Issues.ListByRepo(ctx, id.Owner, id.Name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list issues for %s: %w", id, err)
		}
		for _, item := range list {
			if item.PullRequestLinks != nil {
				continue // the issues endpoint mixes in pull requests
			}
			labels := make([]string, 0, len(item.Labels))
			for _, l := range item.Labels {
				labels = append(labels, l.GetName())
			}
			issues = append(issues, domain.Issue{
				Number:    item.GetNumber(),
				State:     item.GetState(),
				Labels:    labels,
				CreatedAt: item.GetCreatedAt().Time,
				UpdatedAt: item.GetUpdatedAt().Time,
				ClosedAt:  timePtr(item.ClosedAt),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of issues...")
	}
	return issues, nil
}

// FetchPulls returns all pull requests up to the page cap.
func (g *GitHubGateway) FetchPulls(ctx context.Context, id domain.Identity) ([]domain.PullRequest, error) {
	g.logger.Printf("Fetching pull requests for %s...", id)
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: g.thresholds.PerPage},
	}

	var pulls []domain.PullRequest
	for page := 0; page < g.thresholds.MaxPages; page++ {
		var list []*github.PullRequest
		var resp *github.Response
		err := g.do(ctx, func() error {
			var err error
			list, resp, err = g.client.PullRequests.List(ctx, id.Owner, id.Name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list pull requests for %s: %w", id, err)
		}
		for _, item := range list {
			pulls = append(pulls, domain.PullRequest{
				Number:    item.GetNumber(),
				State:     item.GetState(),
				CreatedAt: item.GetCreatedAt().Time,
				UpdatedAt: item.GetUpdatedAt().Time,
				ClosedAt:  timePtr(item.ClosedAt),
				MergedAt:  timePtr(item.MergedAt),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of pull requests...")
	}
	return pulls, nil
}

// FetchCommits returns commits authored within the lookback window, newest
// first, up to the page cap.
func (g *GitHubGateway) FetchCommits(ctx context.Context, id domain.Identity) ([]domain.Commit, error) {
	g.logger.Printf("Fetching commits for %s...", id)
	opts := &github.CommitsListOptions{
		Since:       g.now().Add(-g.thresholds.Lookback()),
		ListOptions: github.ListOptions{PerPage: g.thresholds.PerPage},
	}

	var commits []domain.Commit
	for page := 0; page < g.thresholds.MaxPages; page++ {
		var list []*github.RepositoryCommit
		var resp *github.Response
		err := g.do(ctx, func() error {
			var err error
			list, resp, err = g.client.Repositories.ListCommits(ctx, id.Owner, id.Name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list commits for %s: %w", id, err)
		}
		for _, item := range list {
			commits = append(commits, domain.Commit{
				SHA:         item.GetSHA(),
				AuthorLogin: item.GetAuthor().GetLogin(),
				AuthoredAt:  item.GetCommit().GetAuthor().GetDate().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of commits...")
	}
	return commits, nil
}

// FetchContributors returns contributors ordered by contribution count, up
// to the page cap.
func (g *GitHubGateway) FetchContributors(ctx context.Context, id domain.Identity) ([]domain.Contributor, error) {
	g.logger.Printf("Fetching contributors for %s...", id)
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: g.thresholds.PerPage},
	}

	var contributors []domain.Contributor
	for page := 0; page < g.thresholds.MaxPages; page++ {
		var list []*github.Contributor
		var resp *github.Response
		err := g.do(ctx, func() error {
			var err error
			list, resp, err = g.client.Repositories.ListContributors(ctx, id.Owner, id.Name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list contributors for %s: %w", id, err)
		}
		for _, item := range list {
			contributors = append(contributors, domain.Contributor{
				Login:         item.GetLogin(),
				Contributions: item.GetContributions(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of contributors...")
	}
	return contributors, nil
}

// FetchCommunity returns the community-health profile: the upstream
// completeness percentage plus a presence map of the recognized health files.
func (g *GitHubGateway) FetchCommunity(ctx context.Context, id domain.Identity) (*domain.CommunityProfile, error) {
	g.logger.Printf("Fetching community profile for %s...", id)
	var metrics *github.CommunityHealthMetrics
	err := g.do(ctx, func() error {
		var err error
		metrics, _, err = g.client.Repositories.GetCommunityHealthMetrics(ctx, id.Owner, id.Name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get community profile for %s: %w", id, err)
	}

	files := map[string]bool{}
	if f := metrics.Files; f != nil {
		files["readme"] = f.Readme != nil
		files["license"] = f.License != nil
		files["contributing"] = f.Contributing != nil
		files["code_of_conduct"] = f.CodeOfConduct != nil
		files["issue_template"] = f.IssueTemplate != nil
		files["pull_request_template"] = f.PullRequestTemplate != nil
	}
	return &domain.CommunityProfile{
		HealthPercentage: metrics.GetHealthPercentage(),
		Files:            files,
	}, nil
}

// FetchRepoInfo returns the basic repository record.
func (g *GitHubGateway) FetchRepoInfo(ctx context.Context, id domain.Identity) (*domain.RepoInfo, error) {
	g.logger.Printf("Fetching repository info for %s...", id)
	var repo *github.Repository
	err := g.do(ctx, func() error {
		var err error
		repo, _, err = g.client.Repositories.Get(ctx, id.Owner, id.Name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", id, err)
	}

	return &domain.RepoInfo{
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		DefaultBranch: repo.GetDefaultBranch(),
		PushedAt:      repo.GetPushedAt().Time,
	}, nil
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
