package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
)

// goodFirstIssueLabels are the recognized label variants, compared
// case-insensitively.
var goodFirstIssueLabels = map[string]bool{
	"good first issue":  true,
	"good-first-issue":  true,
	"beginner friendly": true,
	"beginner-friendly": true,
	"first-timers-only": true,
	"easy":              true,
}

// distributionBins are the histogram buckets for close/merge times, in days.
var distributionBins = []struct {
	label string
	max   float64
}{
	{"<1d", 1},
	{"1-2d", 2},
	{"2-7d", 7},
	{"1-2w", 14},
	{"2-4w", 28},
	{"1-3m", 90},
	{">3m", 0}, // catch-all
}

// issueCloseDays returns the close time in fractional days for every closed
// issue. Issues never closed are excluded, not treated as zero.
func issueCloseDays(issues []domain.Issue) []float64 {
	var days []float64
	for _, is := range issues {
		if is.ClosedAt == nil {
			continue
		}
		days = append(days, is.ClosedAt.Sub(is.CreatedAt).Hours()/24)
	}
	return days
}

// prMergeDays returns the merge time in fractional days for every merged
// pull request. PRs closed without merging are excluded.
func prMergeDays(pulls []domain.PullRequest) []float64 {
	var days []float64
	for _, pr := range pulls {
		if pr.MergedAt == nil {
			continue
		}
		days = append(days, pr.MergedAt.Sub(pr.CreatedAt).Hours()/24)
	}
	return days
}

// median returns the median of the samples, or 0 for an empty set. An even
// count averages the two middle values.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	m, err := stats.Median(samples)
	if err != nil {
		return 0
	}
	return m
}

// distribution buckets samples (in days) into the fixed histogram bins.
func distribution(samples []float64) []domain.Bucket {
	buckets := make([]domain.Bucket, len(distributionBins))
	for i, bin := range distributionBins {
		buckets[i].Label = bin.label
	}
	for _, d := range samples {
		placed := false
		for i, bin := range distributionBins[:len(distributionBins)-1] {
			if d < bin.max {
				buckets[i].Count++
				placed = true
				break
			}
		}
		if !placed {
			buckets[len(buckets)-1].Count++
		}
	}
	return buckets
}

// staleIssueCount counts open issues not updated since the cutoff. This is a
// snapshot against the current time, never cached.
func staleIssueCount(issues []domain.Issue, cutoff time.Time) int {
	count := 0
	for _, is := range issues {
		if is.State == "open" && is.UpdatedAt.Before(cutoff) {
			count++
		}
	}
	return count
}

// stalePRCount counts open pull requests not updated since the cutoff.
func stalePRCount(pulls []domain.PullRequest, cutoff time.Time) int {
	count := 0
	for _, pr := range pulls {
		if pr.State == "open" && pr.UpdatedAt.Before(cutoff) {
			count++
		}
	}
	return count
}

// issueCloseRate returns closed/total as a fraction, 0 when there are no
// issues at all.
func issueCloseRate(issues []domain.Issue) float64 {
	if len(issues) == 0 {
		return 0
	}
	closed := 0
	for _, is := range issues {
		if is.ClosedAt != nil {
			closed++
		}
	}
	return float64(closed) / float64(len(issues))
}

// prMergeRate returns merged/total as a fraction, 0 when there are no PRs.
func prMergeRate(pulls []domain.PullRequest) float64 {
	if len(pulls) == 0 {
		return 0
	}
	merged := 0
	for _, pr := range pulls {
		if pr.MergedAt != nil {
			merged++
		}
	}
	return float64(merged) / float64(len(pulls))
}

// commitsInWindow counts commits authored inside [from, to].
func commitsInWindow(commits []domain.Commit, from, to time.Time) int {
	count := 0
	for _, c := range commits {
		if !c.AuthoredAt.Before(from) && !c.AuthoredAt.After(to) {
			count++
		}
	}
	return count
}

// activeContributors counts distinct author logins on commits inside the
// window. Commits without a resolvable login are skipped.
func activeContributors(commits []domain.Commit, from, to time.Time) int {
	seen := map[string]bool{}
	for _, c := range commits {
		if c.AuthorLogin == "" {
			continue
		}
		if !c.AuthoredAt.Before(from) && !c.AuthoredAt.After(to) {
			seen[strings.ToLower(c.AuthorLogin)] = true
		}
	}
	return len(seen)
}

// topContributors ranks contributors by contribution count descending, ties
// broken by login ascending, truncated to n.
func topContributors(contributors []domain.Contributor, n int) []domain.ContributorRank {
	ranked := make([]domain.ContributorRank, 0, len(contributors))
	for _, c := range contributors {
		ranked = append(ranked, domain.ContributorRank{Login: c.Login, Contributions: c.Contributions})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Contributions != ranked[j].Contributions {
			return ranked[i].Contributions > ranked[j].Contributions
		}
		return ranked[i].Login < ranked[j].Login
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// goodFirstIssueCount counts open issues carrying a recognized
// beginner-friendly label.
func goodFirstIssueCount(issues []domain.Issue) int {
	count := 0
	for _, is := range issues {
		if is.State != "open" {
			continue
		}
		for _, label := range is.Labels {
			if goodFirstIssueLabels[strings.ToLower(label)] {
				count++
				break
			}
		}
	}
	return count
}

// externalContributionPct returns the percentage of windowed commits whose
// author is not the repository owner. This is a best-effort heuristic; it
// does not consult organization membership.
func externalContributionPct(commits []domain.Commit, owner string, from, to time.Time) float64 {
	total, external := 0, 0
	owner = strings.ToLower(owner)
	for _, c := range commits {
		if c.AuthoredAt.Before(from) || c.AuthoredAt.After(to) {
			continue
		}
		total++
		if !strings.EqualFold(c.AuthorLogin, owner) {
			external++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(external) / float64(total) * 100
}

// healthFileChecklist maps the community profile's files onto the fixed
// display order.
func healthFileChecklist(profile *domain.CommunityProfile) []domain.HealthFile {
	order := []struct{ key, name string }{
		{"readme", "Readme"},
		{"license", "License"},
		{"contributing", "Contributing"},
		{"code_of_conduct", "Code Of Conduct"},
		{"issue_template", "Issue Template"},
		{"pull_request_template", "Pull Request Template"},
	}
	checklist := make([]domain.HealthFile, 0, len(order))
	for _, o := range order {
		checklist = append(checklist, domain.HealthFile{Name: o.name, Present: profile.Files[o.key]})
	}
	return checklist
}

// clampScore bounds a raw sub-score to [0,100] so no single extreme metric
// can push the composite outside range.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// responsivenessScore degrades from a perfect 100 as median close/merge
// times grow and stale items accumulate.
func responsivenessScore(medianIssueDays, medianPRDays float64, staleIssues, stalePRs int) float64 {
	score := 100.0
	score -= medianIssueDays * 1.5
	score -= medianPRDays * 1.5
	score -= float64(staleIssues+stalePRs) * 0.5
	return clampScore(score)
}

// activityScore builds up from zero with recent commit volume, active
// contributors, and close/merge rates.
func activityScore(commits30 int, active int, closeRate, mergeRate float64) float64 {
	score := float64(commits30)*0.5 + float64(active)*5
	score += closeRate * 25
	score += mergeRate * 25
	return clampScore(score)
}

// communityScore starts from the upstream health percentage and credits
// open beginner-friendly issues.
func communityScore(healthPercentage int, goodFirstIssues int) float64 {
	score := float64(healthPercentage) + float64(goodFirstIssues)*2
	return clampScore(score)
}

// compositeScore weights available sub-scores, renormalizing the weights
// over whichever sub-scores could be computed. It returns false when no
// sub-score is available.
func compositeScore(subs []domain.Metric[float64], weights []float64) (float64, bool) {
	var total, weightSum float64
	for i, sub := range subs {
		if !sub.Available {
			continue
		}
		total += clampScore(sub.Value) * weights[i]
		weightSum += weights[i]
	}
	if weightSum == 0 {
		return 0, false
	}
	return clampScore(total / weightSum), true
}
