package domain

import (
	"encoding/json"
	"time"
)

// Metric is a single computed indicator. It is either an available value or
// an explicit unavailable marker carrying the reason, so "no data" is never
// confused with a zero value.
type Metric[T any] struct {
	Value     T
	Available bool
	Reason    string
}

// Avail wraps a computed value.
func Avail[T any](v T) Metric[T] {
	return Metric[T]{Value: v, Available: true}
}

// Unavail marks a metric as not computable for the given reason.
func Unavail[T any](reason string) Metric[T] {
	return Metric[T]{Reason: reason}
}

// MarshalJSON renders {"value": v} when available and
// {"unavailable": reason} when not.
func (m Metric[T]) MarshalJSON() ([]byte, error) {
	if m.Available {
		return json.Marshal(struct {
			Value T `json:"value"`
		}{m.Value})
	}
	return json.Marshal(struct {
		Unavailable string `json:"unavailable"`
	}{m.Reason})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *Metric[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value       *T     `json:"value"`
		Unavailable string `json:"unavailable"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Value != nil {
		m.Value = *raw.Value
		m.Available = true
		m.Reason = ""
		return nil
	}
	var zero T
	m.Value = zero
	m.Available = false
	m.Reason = raw.Unavailable
	return nil
}

// Bucket is one bar of a close-time distribution histogram.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ContributorRank is one row of the top-contributors list.
type ContributorRank struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// HealthFile records the presence of one recognized community health file.
type HealthFile struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Responsiveness groups the metrics describing how quickly the project
// reacts to issues and pull requests.
type Responsiveness struct {
	MedianIssueCloseDays Metric[float64]  `json:"median_issue_close_days"`
	MedianPRMergeDays    Metric[float64]  `json:"median_pr_merge_days"`
	StaleIssues          Metric[int]      `json:"stale_issues"`
	StalePRs             Metric[int]      `json:"stale_prs"`
	IssueCloseTimes      Metric[[]Bucket] `json:"issue_close_times"`
	PRMergeTimes         Metric[[]Bucket] `json:"pr_merge_times"`
}

// Activity groups the metrics describing recent development volume.
type Activity struct {
	CommitsLast30Days  Metric[int]               `json:"commits_last_30_days"`
	ActiveContributors Metric[int]               `json:"active_contributors"`
	IssueCloseRate     Metric[float64]           `json:"issue_close_rate"`
	PRMergeRate        Metric[float64]           `json:"pr_merge_rate"`
	TopContributors    Metric[[]ContributorRank] `json:"top_contributors"`
}

// Community groups the metrics describing how welcoming the project is to
// outside contributors.
type Community struct {
	HealthScore        Metric[float64]      `json:"health_score"`
	GoodFirstIssues    Metric[int]          `json:"good_first_issues"`
	NewContributors    Metric[int]          `json:"new_contributors"`
	ExternalContribPct Metric[float64]      `json:"external_contribution_pct"`
	HealthFiles        Metric[[]HealthFile] `json:"health_files"`
}

// MetricSet is the full computed result for one repository. Every field is
// derived from the raw payloads at computation time; nothing here is cached.
type MetricSet struct {
	Repo           string           `json:"repo"`
	Info           Metric[RepoInfo] `json:"info"`
	Responsiveness Responsiveness   `json:"responsiveness"`
	Activity       Activity         `json:"activity"`
	Community      Community        `json:"community"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
