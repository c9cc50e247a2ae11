package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
)

func sampleMetricSet() *domain.MetricSet {
	return &domain.MetricSet{
		Repo:        "octocat/Hello-World",
		GeneratedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		Info: domain.Avail(domain.RepoInfo{
			FullName: "octocat/Hello-World", Stars: 1000, Forks: 50, OpenIssues: 12,
		}),
		Responsiveness: domain.Responsiveness{
			MedianIssueCloseDays: domain.Avail(3.5),
			MedianPRMergeDays:    domain.Avail(2.0),
			StaleIssues:          domain.Avail(2),
			StalePRs:             domain.Avail(1),
			IssueCloseTimes: domain.Avail([]domain.Bucket{
				{Label: "<1d", Count: 3}, {Label: "1-2d", Count: 1},
			}),
			PRMergeTimes: domain.Unavail[[]domain.Bucket]("pull_requests fetch failed"),
		},
		Activity: domain.Activity{
			CommitsLast30Days:  domain.Avail(42),
			ActiveContributors: domain.Avail(4),
			IssueCloseRate:     domain.Avail(0.6),
			PRMergeRate:        domain.Avail(0.5),
			TopContributors: domain.Avail([]domain.ContributorRank{
				{Login: "octocat", Contributions: 120},
			}),
		},
		Community: domain.Community{
			HealthScore:        domain.Avail(72.4),
			GoodFirstIssues:    domain.Avail(1),
			NewContributors:    domain.Unavail[int]("first contribution dates not derivable"),
			ExternalContribPct: domain.Avail(40.0),
			HealthFiles: domain.Avail([]domain.HealthFile{
				{Name: "Readme", Present: true},
				{Name: "License", Present: false},
			}),
		},
	}
}

func TestDashboard(t *testing.T) {
	id := domain.Identity{Owner: "octocat", Name: "Hello-World"}
	p := Dashboard(id, sampleMetricSet())

	assert.Equal(t, "octocat/Hello-World", p.Repo)
	require.Len(t, p.Sections, 4)
	assert.Equal(t, "Overview", p.Sections[0].Title)

	// Fractional rates are rendered as percentages.
	var closeRate Item
	for _, it := range p.Sections[2].Items {
		if it.Label == "Issue close rate" {
			closeRate = it
		}
	}
	assert.Equal(t, "60.0%", closeRate.Value)

	// Only available distributions become chart series.
	require.Len(t, p.Charts, 1)
	assert.Equal(t, "Issue close times", p.Charts[0].Title)
	assert.Equal(t, []string{"<1d", "1-2d"}, p.Charts[0].Labels)
	assert.Equal(t, []int{3, 1}, p.Charts[0].Counts)

	assert.Len(t, p.HealthFiles, 2)
}

func TestDashboard_UnavailableMetricsKeepReasons(t *testing.T) {
	id := domain.Identity{Owner: "octocat", Name: "Hello-World"}
	p := Dashboard(id, sampleMetricSet())

	var newContribs Item
	for _, it := range p.Sections[3].Items {
		if it.Label == "New contributors" {
			newContribs = it
		}
	}
	assert.True(t, newContribs.Unavailable)
	assert.Contains(t, newContribs.Reason, "not derivable")
	assert.Empty(t, newContribs.Value)
}

func TestRender(t *testing.T) {
	id := domain.Identity{Owner: "octocat", Name: "Hello-World"}
	p := Dashboard(id, sampleMetricSet())

	var buf bytes.Buffer
	Render(&buf, p)
	out := buf.String()

	assert.Contains(t, out, "octocat/Hello-World")
	assert.Contains(t, out, "Responsiveness")
	assert.Contains(t, out, "3.5 days")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "Health files")
	// Each section heading appears exactly once.
	assert.Equal(t, 1, strings.Count(out, "Activity"))
}
