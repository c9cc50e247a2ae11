package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jamesmurdza/repo-health-check/internal/config"
	"github.com/jamesmurdza/repo-health-check/internal/domain"
	"github.com/jamesmurdza/repo-health-check/internal/gateway"
)

// memStore is an in-memory cache.Store with no expiry, standing in for the
// SQLite store (TTL behavior is covered by the cache package's own tests).
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]byte{}}
}

func (m *memStore) Get(fp string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.entries[fp]
	return payload, ok
}

func (m *memStore) Put(fp string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fp] = payload
	return nil
}

func (m *memStore) Sweep() error { return nil }
func (m *memStore) Close() error { return nil }

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchIssues(ctx context.Context, id domain.Identity) ([]domain.Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *mockFetcher) FetchPulls(ctx context.Context, id domain.Identity) ([]domain.PullRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PullRequest), args.Error(1)
}

func (m *mockFetcher) FetchCommits(ctx context.Context, id domain.Identity) ([]domain.Commit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commit), args.Error(1)
}

func (m *mockFetcher) FetchContributors(ctx context.Context, id domain.Identity) ([]domain.Contributor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Contributor), args.Error(1)
}

func (m *mockFetcher) FetchCommunity(ctx context.Context, id domain.Identity) (*domain.CommunityProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommunityProfile), args.Error(1)
}

func (m *mockFetcher) FetchRepoInfo(ctx context.Context, id domain.Identity) (*domain.RepoInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoInfo), args.Error(1)
}

var analyzeID = domain.Identity{Owner: "octocat", Name: "Hello-World"}

var analyzeNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(fetcher gateway.Fetcher) *Analyzer {
	a := NewAnalyzer(newMemStore(), fetcher, config.Default(), log.New(io.Discard, "", 0))
	a.now = func() time.Time { return analyzeNow }
	return a
}

// fixtureIssues builds 10 issues: 6 closed with close times of 1..6 days,
// 4 open of which 2 are stale past the 30-day threshold.
func fixtureIssues() []domain.Issue {
	var issues []domain.Issue
	for i := 1; i <= 6; i++ {
		created := analyzeNow.AddDate(0, 0, -60)
		closed := created.AddDate(0, 0, i)
		issues = append(issues, domain.Issue{
			Number: i, State: "closed",
			CreatedAt: created, UpdatedAt: closed, ClosedAt: &closed,
		})
	}
	// Two fresh open issues, one labeled beginner-friendly.
	issues = append(issues,
		domain.Issue{Number: 7, State: "open", Labels: []string{"good first issue"},
			CreatedAt: analyzeNow.AddDate(0, 0, -10), UpdatedAt: analyzeNow.AddDate(0, 0, -2)},
		domain.Issue{Number: 8, State: "open",
			CreatedAt: analyzeNow.AddDate(0, 0, -10), UpdatedAt: analyzeNow.AddDate(0, 0, -1)},
	)
	// Two stale open issues.
	issues = append(issues,
		domain.Issue{Number: 9, State: "open",
			CreatedAt: analyzeNow.AddDate(0, 0, -90), UpdatedAt: analyzeNow.AddDate(0, 0, -45)},
		domain.Issue{Number: 10, State: "open",
			CreatedAt: analyzeNow.AddDate(0, 0, -90), UpdatedAt: analyzeNow.AddDate(0, 0, -60)},
	)
	return issues
}

func fixturePulls() []domain.PullRequest {
	created := analyzeNow.AddDate(0, 0, -40)
	merged2 := created.AddDate(0, 0, 2)
	merged4 := created.AddDate(0, 0, 4)
	closed := created.AddDate(0, 0, 1)
	return []domain.PullRequest{
		{Number: 1, State: "closed", CreatedAt: created, UpdatedAt: merged2, ClosedAt: &merged2, MergedAt: &merged2},
		{Number: 2, State: "closed", CreatedAt: created, UpdatedAt: merged4, ClosedAt: &merged4, MergedAt: &merged4},
		{Number: 3, State: "closed", CreatedAt: created, UpdatedAt: closed, ClosedAt: &closed},
		{Number: 4, State: "open", CreatedAt: created, UpdatedAt: analyzeNow.AddDate(0, 0, -1)},
	}
}

func fixtureCommits() []domain.Commit {
	return []domain.Commit{
		{SHA: "a1", AuthorLogin: "octocat", AuthoredAt: analyzeNow.AddDate(0, 0, -1)},
		{SHA: "a2", AuthorLogin: "octocat", AuthoredAt: analyzeNow.AddDate(0, 0, -2)},
		{SHA: "a3", AuthorLogin: "octocat", AuthoredAt: analyzeNow.AddDate(0, 0, -3)},
		{SHA: "b1", AuthorLogin: "alice", AuthoredAt: analyzeNow.AddDate(0, 0, -4)},
		{SHA: "b2", AuthorLogin: "alice", AuthoredAt: analyzeNow.AddDate(0, 0, -5)},
	}
}

func fixtureCommunity() *domain.CommunityProfile {
	return &domain.CommunityProfile{
		HealthPercentage: 80,
		Files:            map[string]bool{"readme": true, "license": true},
	}
}

func setupHappyMock() *mockFetcher {
	fetcher := new(mockFetcher)
	fetcher.On("FetchIssues", mock.Anything, analyzeID).Return(fixtureIssues(), nil)
	fetcher.On("FetchPulls", mock.Anything, analyzeID).Return(fixturePulls(), nil)
	fetcher.On("FetchCommits", mock.Anything, analyzeID).Return(fixtureCommits(), nil)
	fetcher.On("FetchContributors", mock.Anything, analyzeID).Return([]domain.Contributor{
		{Login: "octocat", Contributions: 120},
		{Login: "alice", Contributions: 30},
	}, nil)
	fetcher.On("FetchCommunity", mock.Anything, analyzeID).Return(fixtureCommunity(), nil)
	fetcher.On("FetchRepoInfo", mock.Anything, analyzeID).Return(&domain.RepoInfo{
		FullName: "octocat/Hello-World", Stars: 1000, DefaultBranch: "master",
	}, nil)
	return fetcher
}

func TestAnalyzer_Analyze_EndToEnd(t *testing.T) {
	analyzer := newTestAnalyzer(setupHappyMock())

	set, err := analyzer.Analyze(context.Background(), analyzeID)
	require.NoError(t, err)

	// 6 closed issues with close times 1..6 days: median 3.5.
	require.True(t, set.Responsiveness.MedianIssueCloseDays.Available)
	assert.InDelta(t, 3.5, set.Responsiveness.MedianIssueCloseDays.Value, 1e-9)

	// 2 of the 4 open issues are past the staleness threshold.
	require.True(t, set.Responsiveness.StaleIssues.Available)
	assert.Equal(t, 2, set.Responsiveness.StaleIssues.Value)

	// 6 closed of 10 issues: close rate 0.6.
	require.True(t, set.Activity.IssueCloseRate.Available)
	assert.InDelta(t, 0.6, set.Activity.IssueCloseRate.Value, 1e-9)

	// Merged PRs took 2 and 4 days: median 3; 2 of 4 merged: rate 0.5.
	assert.InDelta(t, 3, set.Responsiveness.MedianPRMergeDays.Value, 1e-9)
	assert.InDelta(t, 0.5, set.Activity.PRMergeRate.Value, 1e-9)

	assert.Equal(t, 5, set.Activity.CommitsLast30Days.Value)
	assert.Equal(t, 2, set.Activity.ActiveContributors.Value)

	require.True(t, set.Activity.TopContributors.Available)
	assert.Equal(t, []domain.ContributorRank{
		{Login: "octocat", Contributions: 120},
		{Login: "alice", Contributions: 30},
	}, set.Activity.TopContributors.Value)

	assert.Equal(t, 1, set.Community.GoodFirstIssues.Value)
	assert.InDelta(t, 40, set.Community.ExternalContribPct.Value, 1e-9)

	// First-contribution dates are not derivable; the metric must say so
	// rather than guessing.
	assert.False(t, set.Community.NewContributors.Available)

	require.True(t, set.Community.HealthScore.Available)
	assert.GreaterOrEqual(t, set.Community.HealthScore.Value, 0.0)
	assert.LessOrEqual(t, set.Community.HealthScore.Value, 100.0)

	require.True(t, set.Info.Available)
	assert.Equal(t, "octocat/Hello-World", set.Info.Value.FullName)
}

func TestAnalyzer_Analyze_CachesAcrossRuns(t *testing.T) {
	fetcher := setupHappyMock()
	analyzer := newTestAnalyzer(fetcher)

	_, err := analyzer.Analyze(context.Background(), analyzeID)
	require.NoError(t, err)
	_, err = analyzer.Analyze(context.Background(), analyzeID)
	require.NoError(t, err)

	// The second run is served entirely from the cache.
	fetcher.AssertNumberOfCalls(t, "FetchIssues", 1)
	fetcher.AssertNumberOfCalls(t, "FetchPulls", 1)
	fetcher.AssertNumberOfCalls(t, "FetchCommits", 1)
	fetcher.AssertNumberOfCalls(t, "FetchContributors", 1)
	fetcher.AssertNumberOfCalls(t, "FetchCommunity", 1)
	fetcher.AssertNumberOfCalls(t, "FetchRepoInfo", 1)
}

func TestAnalyzer_Analyze_PartialFailure(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchIssues", mock.Anything, analyzeID).Return(fixtureIssues(), nil)
	fetcher.On("FetchPulls", mock.Anything, analyzeID).Return(fixturePulls(), nil)
	fetcher.On("FetchCommits", mock.Anything, analyzeID).Return(nil,
		fmt.Errorf("list commits: %w", gateway.ErrNotFound))
	fetcher.On("FetchContributors", mock.Anything, analyzeID).Return([]domain.Contributor{}, nil)
	fetcher.On("FetchCommunity", mock.Anything, analyzeID).Return(fixtureCommunity(), nil)
	fetcher.On("FetchRepoInfo", mock.Anything, analyzeID).Return(&domain.RepoInfo{FullName: "octocat/Hello-World"}, nil)

	analyzer := newTestAnalyzer(fetcher)
	set, err := analyzer.Analyze(context.Background(), analyzeID)
	require.NoError(t, err)

	// Commit-dependent metrics are explicitly unavailable, never zero.
	assert.False(t, set.Activity.CommitsLast30Days.Available)
	assert.NotEmpty(t, set.Activity.CommitsLast30Days.Reason)
	assert.False(t, set.Activity.ActiveContributors.Available)
	assert.False(t, set.Community.ExternalContribPct.Available)

	// Issue and PR metrics still compute normally.
	assert.True(t, set.Responsiveness.MedianIssueCloseDays.Available)
	assert.True(t, set.Activity.IssueCloseRate.Available)
	assert.InDelta(t, 0.6, set.Activity.IssueCloseRate.Value, 1e-9)
	assert.True(t, set.Responsiveness.MedianPRMergeDays.Available)

	// The health score re-weights over the remaining sub-scores.
	assert.True(t, set.Community.HealthScore.Available)
}

func TestAnalyzer_Analyze_RepoNotFound(t *testing.T) {
	notFound := fmt.Errorf("get repository: %w", gateway.ErrNotFound)

	fetcher := new(mockFetcher)
	fetcher.On("FetchIssues", mock.Anything, analyzeID).Return(nil, notFound)
	fetcher.On("FetchPulls", mock.Anything, analyzeID).Return(nil, notFound)
	fetcher.On("FetchCommits", mock.Anything, analyzeID).Return(nil, notFound)
	fetcher.On("FetchContributors", mock.Anything, analyzeID).Return(nil, notFound)
	fetcher.On("FetchCommunity", mock.Anything, analyzeID).Return(nil, notFound)
	fetcher.On("FetchRepoInfo", mock.Anything, analyzeID).Return(nil, notFound)

	analyzer := newTestAnalyzer(fetcher)
	set, err := analyzer.Analyze(context.Background(), analyzeID)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestAnalyzer_Analyze_EmptyRepository(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchIssues", mock.Anything, analyzeID).Return([]domain.Issue{}, nil)
	fetcher.On("FetchPulls", mock.Anything, analyzeID).Return([]domain.PullRequest{}, nil)
	fetcher.On("FetchCommits", mock.Anything, analyzeID).Return([]domain.Commit{}, nil)
	fetcher.On("FetchContributors", mock.Anything, analyzeID).Return([]domain.Contributor{}, nil)
	fetcher.On("FetchCommunity", mock.Anything, analyzeID).Return(&domain.CommunityProfile{}, nil)
	fetcher.On("FetchRepoInfo", mock.Anything, analyzeID).Return(&domain.RepoInfo{FullName: "octocat/Hello-World"}, nil)

	analyzer := newTestAnalyzer(fetcher)
	set, err := analyzer.Analyze(context.Background(), analyzeID)
	require.NoError(t, err)

	// No issues at all: rates are 0, not a division error.
	assert.True(t, set.Activity.IssueCloseRate.Available)
	assert.Equal(t, 0.0, set.Activity.IssueCloseRate.Value)
	assert.True(t, set.Activity.PRMergeRate.Available)
	assert.Equal(t, 0.0, set.Activity.PRMergeRate.Value)
	assert.Equal(t, 0.0, set.Responsiveness.MedianIssueCloseDays.Value)
}
