// Package usecase contains the business logic of the application: the
// metrics engine that turns raw repository payloads into the published
// health indicators.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesmurdza/repo-health-check/internal/cache"
	"github.com/jamesmurdza/repo-health-check/internal/config"
	"github.com/jamesmurdza/repo-health-check/internal/domain"
	"github.com/jamesmurdza/repo-health-check/internal/gateway"
)

// Analyzer computes a MetricSet for a repository. It reads every data
// category through the cache store, which delegates to the fetcher on a
// miss; the analyzer itself never mutates cached payloads.
type Analyzer struct {
	store      cache.Store
	fetcher    gateway.Fetcher
	logger     *log.Logger
	thresholds config.Thresholds
	weights    config.Weights
	now        func() time.Time
}

// NewAnalyzer creates an Analyzer instance.
func NewAnalyzer(store cache.Store, fetcher gateway.Fetcher, cfg *config.Config, logger *log.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		fetcher:    fetcher,
		logger:     logger,
		thresholds: cfg.Thresholds,
		weights:    cfg.Weights,
		now:        time.Now,
	}
}

// rawData holds each category's payload or fetch error. Every field is
// written by exactly one goroutine before the group waits, so no locking is
// needed.
type rawData struct {
	issues          []domain.Issue
	issuesErr       error
	pulls           []domain.PullRequest
	pullsErr        error
	commits         []domain.Commit
	commitsErr      error
	contributors    []domain.Contributor
	contributorsErr error
	community       *domain.CommunityProfile
	communityErr    error
	info            *domain.RepoInfo
	infoErr         error
}

// fetchCategory reads one category through the cache, marshaling the
// fetcher's result for storage and decoding whatever the cache returns.
func fetchCategory[T any](ctx context.Context, store cache.Store, id domain.Identity, cat domain.Category, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	payload, err := cache.GetOrFetch(ctx, store, id, cat, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode cached %s payload: %w", cat, err)
	}
	return out, nil
}

// Analyze fetches every data category concurrently and derives the full
// metric set. A single category failure degrades the dependent metrics to
// explicit unavailable markers instead of failing the whole computation;
// only a missing repository aborts outright.
func (a *Analyzer) Analyze(ctx context.Context, id domain.Identity) (*domain.MetricSet, error) {
	a.logger.Printf("Analyzing %s...", id)

	var raw rawData
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		raw.issues, raw.issuesErr = fetchCategory(egCtx, a.store, id, domain.CategoryIssues, func(ctx context.Context) ([]domain.Issue, error) {
			return a.fetcher.FetchIssues(ctx, id)
		})
		return nil
	})
	eg.Go(func() error {
		raw.pulls, raw.pullsErr = fetchCategory(egCtx, a.store, id, domain.CategoryPulls, func(ctx context.Context) ([]domain.PullRequest, error) {
			return a.fetcher.FetchPulls(ctx, id)
		})
		return nil
	})
	eg.Go(func() error {
		raw.commits, raw.commitsErr = fetchCategory(egCtx, a.store, id, domain.CategoryCommits, func(ctx context.Context) ([]domain.Commit, error) {
			return a.fetcher.FetchCommits(ctx, id)
		})
		return nil
	})
	eg.Go(func() error {
		raw.contributors, raw.contributorsErr = fetchCategory(egCtx, a.store, id, domain.CategoryContributors, func(ctx context.Context) ([]domain.Contributor, error) {
			return a.fetcher.FetchContributors(ctx, id)
		})
		return nil
	})
	eg.Go(func() error {
		raw.community, raw.communityErr = fetchCategory(egCtx, a.store, id, domain.CategoryCommunity, func(ctx context.Context) (*domain.CommunityProfile, error) {
			return a.fetcher.FetchCommunity(ctx, id)
		})
		return nil
	})
	eg.Go(func() error {
		raw.info, raw.infoErr = fetchCategory(egCtx, a.store, id, domain.CategoryRepoInfo, func(ctx context.Context) (*domain.RepoInfo, error) {
			return a.fetcher.FetchRepoInfo(ctx, id)
		})
		return nil
	})

	// Goroutines record per-category errors instead of returning them, so
	// Wait only fails on context cancellation.
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// A repository that does not exist has no partial result worth
	// returning.
	if raw.infoErr != nil && errors.Is(raw.infoErr, gateway.ErrNotFound) {
		return nil, raw.infoErr
	}

	set := a.derive(id, &raw)
	a.logger.Printf("Analysis of %s complete.", id)
	return set, nil
}

// derive computes every published indicator from whatever raw payloads are
// present. Failed categories produce unavailable markers carrying the
// failure reason.
func (a *Analyzer) derive(id domain.Identity, raw *rawData) *domain.MetricSet {
	now := a.now()
	staleCutoff := now.Add(-a.thresholds.StaleAge())
	windowStart := now.Add(-a.thresholds.Lookback())

	set := &domain.MetricSet{Repo: id.String(), GeneratedAt: now}

	if raw.infoErr != nil {
		set.Info = unavail[domain.RepoInfo](domain.CategoryRepoInfo, raw.infoErr)
	} else {
		set.Info = domain.Avail(*raw.info)
	}

	// Responsiveness.
	if raw.issuesErr != nil {
		set.Responsiveness.MedianIssueCloseDays = unavail[float64](domain.CategoryIssues, raw.issuesErr)
		set.Responsiveness.StaleIssues = unavail[int](domain.CategoryIssues, raw.issuesErr)
		set.Responsiveness.IssueCloseTimes = unavail[[]domain.Bucket](domain.CategoryIssues, raw.issuesErr)
	} else {
		closeDays := issueCloseDays(raw.issues)
		set.Responsiveness.MedianIssueCloseDays = domain.Avail(median(closeDays))
		set.Responsiveness.StaleIssues = domain.Avail(staleIssueCount(raw.issues, staleCutoff))
		set.Responsiveness.IssueCloseTimes = domain.Avail(distribution(closeDays))
	}
	if raw.pullsErr != nil {
		set.Responsiveness.MedianPRMergeDays = unavail[float64](domain.CategoryPulls, raw.pullsErr)
		set.Responsiveness.StalePRs = unavail[int](domain.CategoryPulls, raw.pullsErr)
		set.Responsiveness.PRMergeTimes = unavail[[]domain.Bucket](domain.CategoryPulls, raw.pullsErr)
	} else {
		mergeDays := prMergeDays(raw.pulls)
		set.Responsiveness.MedianPRMergeDays = domain.Avail(median(mergeDays))
		set.Responsiveness.StalePRs = domain.Avail(stalePRCount(raw.pulls, staleCutoff))
		set.Responsiveness.PRMergeTimes = domain.Avail(distribution(mergeDays))
	}

	// Activity.
	if raw.commitsErr != nil {
		set.Activity.CommitsLast30Days = unavail[int](domain.CategoryCommits, raw.commitsErr)
		set.Activity.ActiveContributors = unavail[int](domain.CategoryCommits, raw.commitsErr)
	} else {
		set.Activity.CommitsLast30Days = domain.Avail(commitsInWindow(raw.commits, windowStart, now))
		set.Activity.ActiveContributors = domain.Avail(activeContributors(raw.commits, windowStart, now))
	}
	if raw.issuesErr != nil {
		set.Activity.IssueCloseRate = unavail[float64](domain.CategoryIssues, raw.issuesErr)
	} else {
		set.Activity.IssueCloseRate = domain.Avail(issueCloseRate(raw.issues))
	}
	if raw.pullsErr != nil {
		set.Activity.PRMergeRate = unavail[float64](domain.CategoryPulls, raw.pullsErr)
	} else {
		set.Activity.PRMergeRate = domain.Avail(prMergeRate(raw.pulls))
	}
	if raw.contributorsErr != nil {
		set.Activity.TopContributors = unavail[[]domain.ContributorRank](domain.CategoryContributors, raw.contributorsErr)
	} else {
		set.Activity.TopContributors = domain.Avail(topContributors(raw.contributors, a.thresholds.TopContributors))
	}

	// Community.
	if raw.issuesErr != nil {
		set.Community.GoodFirstIssues = unavail[int](domain.CategoryIssues, raw.issuesErr)
	} else {
		set.Community.GoodFirstIssues = domain.Avail(goodFirstIssueCount(raw.issues))
	}
	if raw.commitsErr != nil {
		set.Community.ExternalContribPct = unavail[float64](domain.CategoryCommits, raw.commitsErr)
	} else {
		set.Community.ExternalContribPct = domain.Avail(externalContributionPct(raw.commits, id.Owner, windowStart, now))
	}
	if raw.communityErr != nil {
		set.Community.HealthFiles = unavail[[]domain.HealthFile](domain.CategoryCommunity, raw.communityErr)
	} else {
		set.Community.HealthFiles = domain.Avail(healthFileChecklist(raw.community))
	}

	// First-contribution timestamps are not derivable from the capped
	// commit history, so this degrades honestly instead of guessing.
	set.Community.NewContributors = domain.Unavail[int]("first contribution dates not derivable from capped commit history")

	set.Community.HealthScore = a.healthScore(set, raw)
	return set
}

// healthScore composites the three sub-scores, each clamped to [0,100],
// weighting only the sub-scores whose inputs were fetched successfully.
func (a *Analyzer) healthScore(set *domain.MetricSet, raw *rawData) domain.Metric[float64] {
	resp := domain.Unavail[float64]("responsiveness inputs unavailable")
	if raw.issuesErr == nil && raw.pullsErr == nil {
		resp = domain.Avail(responsivenessScore(
			set.Responsiveness.MedianIssueCloseDays.Value,
			set.Responsiveness.MedianPRMergeDays.Value,
			set.Responsiveness.StaleIssues.Value,
			set.Responsiveness.StalePRs.Value,
		))
	}

	act := domain.Unavail[float64]("activity inputs unavailable")
	if raw.commitsErr == nil && raw.issuesErr == nil && raw.pullsErr == nil {
		act = domain.Avail(activityScore(
			set.Activity.CommitsLast30Days.Value,
			set.Activity.ActiveContributors.Value,
			set.Activity.IssueCloseRate.Value,
			set.Activity.PRMergeRate.Value,
		))
	}

	comm := domain.Unavail[float64]("community inputs unavailable")
	if raw.communityErr == nil {
		gfi := 0
		if set.Community.GoodFirstIssues.Available {
			gfi = set.Community.GoodFirstIssues.Value
		}
		comm = domain.Avail(communityScore(raw.community.HealthPercentage, gfi))
	}

	score, ok := compositeScore(
		[]domain.Metric[float64]{resp, act, comm},
		[]float64{a.weights.Responsiveness, a.weights.Activity, a.weights.Community},
	)
	if !ok {
		return domain.Unavail[float64]("no sub-score inputs available")
	}
	return domain.Avail(score)
}

func unavail[T any](cat domain.Category, err error) domain.Metric[T] {
	return domain.Unavail[T](fmt.Sprintf("%s fetch failed: %v", cat, err))
}
