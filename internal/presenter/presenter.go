// Package presenter maps computed metrics into the shapes consumed by the
// rendering layers: a labeled JSON payload for the dashboard API and a
// colored text report for the terminal. No business logic lives here.
package presenter

import (
	"fmt"
	"time"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
)

// Item is one labeled, formatted metric line. Unavailable metrics keep their
// reason so the renderer can show "n/a" honestly instead of a zero.
type Item struct {
	Label       string `json:"label"`
	Value       string `json:"value,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Section groups related items under a heading.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Series is a chart-ready histogram: parallel label and count slices.
type Series struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// Payload is the full rendering-layer shape for one repository.
type Payload struct {
	Repo        string              `json:"repo"`
	GeneratedAt time.Time           `json:"generated_at"`
	Sections    []Section           `json:"sections"`
	Charts      []Series            `json:"charts"`
	HealthFiles []domain.HealthFile `json:"health_files,omitempty"`
	Metrics     *domain.MetricSet   `json:"metrics"`
}

// Dashboard formats a MetricSet for the rendering layer.
func Dashboard(id domain.Identity, set *domain.MetricSet) *Payload {
	p := &Payload{
		Repo:        id.String(),
		GeneratedAt: set.GeneratedAt,
		Metrics:     set,
	}

	overview := Section{Title: "Overview"}
	if set.Info.Available {
		info := set.Info.Value
		overview.Items = append(overview.Items,
			Item{Label: "Stars", Value: fmt.Sprintf("%d", info.Stars)},
			Item{Label: "Forks", Value: fmt.Sprintf("%d", info.Forks)},
			Item{Label: "Open issues", Value: fmt.Sprintf("%d", info.OpenIssues)},
		)
	} else {
		overview.Items = append(overview.Items, na("Repository info", set.Info.Reason))
	}
	overview.Items = append(overview.Items, item(set.Community.HealthScore, "Health score", scoreOf100))

	responsiveness := Section{
		Title: "Responsiveness",
		Items: []Item{
			item(set.Responsiveness.MedianIssueCloseDays, "Median issue close time", days),
			item(set.Responsiveness.MedianPRMergeDays, "Median PR merge time", days),
			item(set.Responsiveness.StaleIssues, "Stale issues", count),
			item(set.Responsiveness.StalePRs, "Stale PRs", count),
		},
	}

	activity := Section{
		Title: "Activity",
		Items: []Item{
			item(set.Activity.CommitsLast30Days, "Commits (last 30 days)", count),
			item(set.Activity.ActiveContributors, "Active contributors", count),
			item(set.Activity.IssueCloseRate, "Issue close rate", percentOfFraction),
			item(set.Activity.PRMergeRate, "PR merge rate", percentOfFraction),
		},
	}
	if set.Activity.TopContributors.Available {
		for _, c := range set.Activity.TopContributors.Value {
			activity.Items = append(activity.Items, Item{
				Label: "  " + c.Login,
				Value: fmt.Sprintf("%d contributions", c.Contributions),
			})
		}
	} else {
		activity.Items = append(activity.Items, na("Top contributors", set.Activity.TopContributors.Reason))
	}

	community := Section{
		Title: "Community",
		Items: []Item{
			item(set.Community.GoodFirstIssues, "Good first issues", count),
			item(set.Community.NewContributors, "New contributors", count),
			item(set.Community.ExternalContribPct, "External contributions", percent),
		},
	}

	p.Sections = []Section{overview, responsiveness, activity, community}

	if set.Responsiveness.IssueCloseTimes.Available {
		p.Charts = append(p.Charts, series("Issue close times", set.Responsiveness.IssueCloseTimes.Value))
	}
	if set.Responsiveness.PRMergeTimes.Available {
		p.Charts = append(p.Charts, series("PR merge times", set.Responsiveness.PRMergeTimes.Value))
	}
	if set.Community.HealthFiles.Available {
		p.HealthFiles = set.Community.HealthFiles.Value
	}
	return p
}

func series(title string, buckets []domain.Bucket) Series {
	s := Series{Title: title}
	for _, b := range buckets {
		s.Labels = append(s.Labels, b.Label)
		s.Counts = append(s.Counts, b.Count)
	}
	return s
}

func item[T any](m domain.Metric[T], label string, format func(T) string) Item {
	if !m.Available {
		return na(label, m.Reason)
	}
	return Item{Label: label, Value: format(m.Value)}
}

func na(label, reason string) Item {
	return Item{Label: label, Unavailable: true, Reason: reason}
}

func days(v float64) string       { return fmt.Sprintf("%.1f days", v) }
func count(v int) string          { return fmt.Sprintf("%d", v) }
func percent(v float64) string    { return fmt.Sprintf("%.1f%%", v) }
func scoreOf100(v float64) string { return fmt.Sprintf("%.0f/100", v) }

func percentOfFraction(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
