package domain

import "time"

// Category names one independently fetched and cached slice of repository
// data. Each category expires on its own schedule.
type Category string

const (
	CategoryIssues       Category = "issues"
	CategoryPulls        Category = "pull_requests"
	CategoryCommits      Category = "commits"
	CategoryContributors Category = "contributors"
	CategoryCommunity    Category = "community_health"
	CategoryRepoInfo     Category = "repository_info"
)

// Issue is the cached shape of a single issue. Pull requests are excluded
// from the issues category even though the upstream API mixes them.
type Issue struct {
	Number    int        `json:"number"`
	State     string     `json:"state"`
	Labels    []string   `json:"labels"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// PullRequest is the cached shape of a single pull request.
type PullRequest struct {
	Number    int        `json:"number"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
}

// Commit is the cached shape of a single commit. AuthorLogin is empty when
// the commit author has no resolvable GitHub account.
type Commit struct {
	SHA         string    `json:"sha"`
	AuthorLogin string    `json:"author_login"`
	AuthoredAt  time.Time `json:"authored_at"`
}

// Contributor is one entry of the contributors category.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// CommunityProfile mirrors the upstream community-health endpoint: an
// overall completeness percentage and the set of recognized health files.
// A nil map value means the file is absent.
type CommunityProfile struct {
	HealthPercentage int             `json:"health_percentage"`
	Files            map[string]bool `json:"files"`
}

// RepoInfo holds the basic repository record.
type RepoInfo struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	DefaultBranch string    `json:"default_branch"`
	PushedAt      time.Time `json:"pushed_at"`
}
