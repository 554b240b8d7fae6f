package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/metrics"
	"github.com/devtrack/devtrack-server/internal/model"
)

// Fetch parts. The names appear in warnings and metric labels.
const (
	partUser         = "user profile"
	partRepositories = "repositories"
	partPullRequests = "pull requests"
	partEvents       = "events"
	partCommits      = "commit count"
)

// GitHubProvider reads one account's data from the GitHub REST API.
type GitHubProvider struct {
	client  *github.Client
	login   string
	opts    Options
	asm     assembler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newGitHubProvider(user *model.User, apiBase *url.URL, opts Options, asm assembler, logger *slog.Logger, m *metrics.Metrics) *GitHubProvider {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: user.AccessToken})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))
	base := *apiBase
	client.BaseURL = &base

	return &GitHubProvider{
		client:  client,
		login:   user.Username,
		opts:    opts,
		asm:     asm,
		logger:  logger.With("provider", string(KindGitHub), "login", user.Username),
		metrics: m,
	}
}

func (p *GitHubProvider) Kind() Kind { return KindGitHub }

func (p *GitHubProvider) Verify(ctx context.Context) (string, error) {
	p.metrics.ProviderRequest(string(KindGitHub), "verify")

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	u, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		if isUnauthorized(err) {
			return "", apperror.ReconnectRequired(err)
		}
		return "", fmt.Errorf("provider: verifying GitHub token: %w", err)
	}
	return u.GetLogin(), nil
}

func (p *GitHubProvider) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	p.metrics.ProviderRequest(string(KindGitHub), "dashboard")

	s, err := p.collect(ctx,
		p.fetchUser,
		p.fetchRepositories,
		p.fetchPRCount("state:open", func(s *snapshot, n int) { s.openPRs = n }),
		p.fetchPRCount("state:closed", func(s *snapshot, n int) { s.closedPRs = n }),
		p.fetchPRCount("is:merged", func(s *snapshot, n int) { s.mergedPRs = n }),
		p.fetchEvents,
		p.fetchCommitCount,
	)
	if err != nil {
		return nil, err
	}
	return p.asm.dashboard(s), nil
}

func (p *GitHubProvider) Activity(ctx context.Context) (*model.ActivityReport, error) {
	p.metrics.ProviderRequest(string(KindGitHub), "activity")

	s, err := p.collect(ctx, p.fetchEvents)
	if err != nil {
		return nil, err
	}
	return p.asm.activity(s), nil
}

func (p *GitHubProvider) Repositories(ctx context.Context) (*model.RepositoryList, error) {
	p.metrics.ProviderRequest(string(KindGitHub), "repositories")

	s, err := p.collect(ctx, p.fetchRepositories)
	if err != nil {
		return nil, err
	}
	return p.asm.repositories(s), nil
}

func (p *GitHubProvider) Summary(ctx context.Context) (*model.GitHubSummary, error) {
	p.metrics.ProviderRequest(string(KindGitHub), "summary")

	s, err := p.collect(ctx, p.fetchUser, p.fetchRepositories, p.fetchEvents)
	if err != nil {
		return nil, err
	}
	return p.asm.summary(s), nil
}

// fetchTask fills part of a snapshot. It returns the part name for warnings.
type fetchTask func(ctx context.Context, s *snapshot) (string, error)

// collect runs tasks concurrently, each under its own timeout.
//
// An unauthorized response from any task cancels the rest and is returned
// as apperror.ErrReconnect. Every other failure leaves that part empty and
// adds a warning.
func (p *GitHubProvider) collect(ctx context.Context, tasks ...fetchTask) (*snapshot, error) {
	s := &snapshot{}

	var (
		mu     sync.Mutex
		failed = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, p.opts.Timeout)
			defer cancel()

			part, err := task(callCtx, s)
			if err == nil {
				return nil
			}
			if isUnauthorized(err) {
				return apperror.ReconnectRequired(err)
			}
			if gctx.Err() != nil {
				// Cancelled by a sibling's reconnect or by the caller.
				return gctx.Err()
			}

			p.logger.Warn("github fetch degraded", "part", part, "error", err)
			p.metrics.UpstreamFailure("github", part)

			mu.Lock()
			failed[part] = struct{}{}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("provider: collecting GitHub data: %w", err)
	}

	for part := range failed {
		s.warnings = append(s.warnings, part)
	}
	sort.Strings(s.warnings)

	return s, nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, s *snapshot) (string, error) {
	u, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return partUser, err
	}
	s.user = model.UserInfo{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Bio:         u.GetBio(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
	}
	return partUser, nil
}

func (p *GitHubProvider) fetchRepositories(ctx context.Context, s *snapshot) (string, error) {
	repos, _, err := p.client.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		Affiliation: "owner,collaborator",
		ListOptions: github.ListOptions{PerPage: p.opts.PageSize},
	})
	if err != nil {
		return partRepositories, err
	}

	out := make([]model.RepositorySummary, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}
		out = append(out, toRepositorySummary(r))
	}
	sortRepos(out)
	s.repos = out
	return partRepositories, nil
}

func (p *GitHubProvider) fetchPRCount(qualifier string, set func(*snapshot, int)) fetchTask {
	return func(ctx context.Context, s *snapshot) (string, error) {
		q := fmt.Sprintf("author:%s type:pr %s", p.login, qualifier)
		res, _, err := p.client.Search.Issues(ctx, q, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
		if err != nil {
			return partPullRequests, err
		}
		set(s, res.GetTotal())
		return partPullRequests, nil
	}
}

func (p *GitHubProvider) fetchEvents(ctx context.Context, s *snapshot) (string, error) {
	events, _, err := p.client.Activity.ListEventsPerformedByUser(ctx, p.login, true, &github.ListOptions{
		PerPage: p.opts.PageSize,
	})
	if err != nil {
		return partEvents, err
	}
	s.events = normalizeEvents(events)
	return partEvents, nil
}

func (p *GitHubProvider) fetchCommitCount(ctx context.Context, s *snapshot) (string, error) {
	res, _, err := p.client.Search.Commits(ctx, "author:"+p.login, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return partCommits, err
	}
	s.totalCommits = res.GetTotal()
	return partCommits, nil
}

func toRepositorySummary(r *github.Repository) model.RepositorySummary {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return model.RepositorySummary{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Size:        r.GetSize(),
		URL:         r.GetHTMLURL(),
		Description: r.GetDescription(),
		UpdatedAt:   r.GetUpdatedAt().Time.UTC(),
		Private:     r.GetPrivate(),
		Topics:      topics,
		Archived:    r.GetArchived(),
		Fork:        r.GetFork(),
	}
}

// isUnauthorized reports whether GitHub rejected the credential.
func isUnauthorized(err error) bool {
	var er *github.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusUnauthorized
}
