package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/devtrack/devtrack-server/internal/metrics"
	"github.com/devtrack/devtrack-server/internal/model"
)

// mockSeed fixes the generator so repeated calls return the same data
// relative to the clock.
const mockSeed = 20240917

const mockHistoryDays = 60

// MockProvider synthesizes a plausible account without any network access.
type MockProvider struct {
	login    string
	name     string
	asm      assembler
	pageSize int
	metrics  *metrics.Metrics
}

func newMockProvider(user *model.User, asm assembler, pageSize int, m *metrics.Metrics) *MockProvider {
	login := user.Username
	if login == "" {
		login = "devtrack-dev"
	}
	name := user.Name
	if name == "" {
		name = "Dev User"
	}
	return &MockProvider{login: login, name: name, asm: asm, pageSize: pageSize, metrics: m}
}

func (p *MockProvider) Kind() Kind { return KindMock }

func (p *MockProvider) Verify(context.Context) (string, error) {
	p.metrics.ProviderRequest(string(KindMock), "verify")
	return p.login, nil
}

func (p *MockProvider) Dashboard(context.Context) (*model.Dashboard, error) {
	p.metrics.ProviderRequest(string(KindMock), "dashboard")
	return p.asm.dashboard(p.snapshot()), nil
}

func (p *MockProvider) Activity(context.Context) (*model.ActivityReport, error) {
	p.metrics.ProviderRequest(string(KindMock), "activity")
	return p.asm.activity(p.snapshot()), nil
}

func (p *MockProvider) Repositories(context.Context) (*model.RepositoryList, error) {
	p.metrics.ProviderRequest(string(KindMock), "repositories")
	return p.asm.repositories(p.snapshot()), nil
}

func (p *MockProvider) Summary(context.Context) (*model.GitHubSummary, error) {
	p.metrics.ProviderRequest(string(KindMock), "summary")
	return p.asm.summary(p.snapshot()), nil
}

func (p *MockProvider) snapshot() *snapshot {
	now := p.asm.now().UTC()
	rng := rand.New(rand.NewPCG(mockSeed, mockSeed>>1))

	repos := mockRepositories(p.login, now)
	events := mockEvents(rng, repos, now)
	if len(events) > p.pageSize {
		events = events[:p.pageSize]
	}

	return &snapshot{
		user: model.UserInfo{
			Login:       p.login,
			Name:        p.name,
			Bio:         "Full-stack developer building tools for developers",
			PublicRepos: len(repos),
			Followers:   128,
			Following:   56,
		},
		repos:        repos,
		events:       events,
		openPRs:      5,
		closedPRs:    82,
		mergedPRs:    76,
		totalCommits: 1247,
	}
}

type mockRepo struct {
	name        string
	description string
	language    string
	stars       int
	forks       int
	issues      int
	size        int
	private     bool
	updatedDays int
	topics      []string
}

var mockCatalogue = []mockRepo{
	{"dev-track-ai", "AI-powered development tracker with real-time insights", "TypeScript", 45, 12, 3, 1204, false, 2, []string{"ai", "development", "tracking", "analytics"}},
	{"portfolio-website", "Personal portfolio showcasing projects and skills", "React", 28, 5, 0, 856, false, 5, []string{"portfolio", "react", "frontend"}},
	{"api-gateway", "Microservices API gateway with authentication and routing", "Node.js", 67, 18, 4, 2340, false, 7, []string{"api", "gateway", "microservices", "nodejs"}},
	{"ml-pipeline", "Machine learning model training and deployment pipeline", "Python", 134, 34, 8, 3452, false, 10, []string{"machine-learning", "python", "pipeline", "ml"}},
	{"blog-cms", "Headless CMS for managing blog content", "Next.js", 23, 6, 2, 945, true, 15, []string{"cms", "nextjs", "blog"}},
	{"mobile-app", "Cross-platform mobile application", "React Native", 89, 21, 5, 1876, false, 20, []string{"mobile", "react-native", "ios", "android"}},
	{"e-commerce-backend", "Backend API for e-commerce platform", "Java", 56, 15, 6, 2890, true, 25, []string{"ecommerce", "backend", "java", "spring-boot"}},
	{"data-visualization-dashboard", "Interactive data visualization dashboard with real-time updates", "Vue.js", 42, 11, 3, 1567, false, 30, []string{"visualization", "dashboard", "vue", "charts"}},
}

func mockRepositories(login string, now time.Time) []model.RepositorySummary {
	repos := make([]model.RepositorySummary, 0, len(mockCatalogue))
	for _, r := range mockCatalogue {
		repos = append(repos, model.RepositorySummary{
			Name:        r.name,
			FullName:    login + "/" + r.name,
			Language:    r.language,
			Stars:       r.stars,
			Forks:       r.forks,
			OpenIssues:  r.issues,
			Size:        r.size,
			URL:         "https://github.com/" + login + "/" + r.name,
			Description: r.description,
			UpdatedAt:   now.Add(-time.Duration(r.updatedDays) * day),
			Private:     r.private,
			Topics:      append([]string(nil), r.topics...),
		})
	}
	sortRepos(repos)
	return repos
}

var (
	mockCommitMessages = []string{
		"feat: add real-time collaboration",
		"fix: responsive design on mobile",
		"refactor: improve state management",
		"docs: update documentation",
		"test: cover edge cases in parser",
		"fix: handle empty API responses",
		"perf: cache expensive queries",
	}
	mockPRTitles = []string{
		"Add Redis caching layer",
		"Implement OAuth2 flow",
		"Migrate build to Vite",
		"Add contribution heatmap",
	}
	mockIssueTitles = []string{
		"Memory optimization needed",
		"Dashboard fails to load on Safari",
		"Add dark mode",
	}
	mockBranches = []string{"feature/markdown-editor", "fix/login-redirect", "chore/deps"}
)

// mockEvents generates roughly two months of activity, newest first.
// Weekdays are busier than weekends and work happens between 08:00 and 22:00.
func mockEvents(rng *rand.Rand, repos []model.RepositorySummary, now time.Time) []model.ActivityEvent {
	var events []model.ActivityEvent
	today := truncateDay(now)

	for d := 0; d < mockHistoryDays; d++ {
		date := today.Add(-time.Duration(d) * day)

		n := rng.IntN(4)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			n = rng.IntN(2)
		}

		for i := 0; i < n; i++ {
			at := date.Add(time.Duration(8+rng.IntN(14))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)
			if at.After(now) {
				at = now.Add(-time.Duration(i+1) * time.Minute)
			}
			repo := repos[rng.IntN(len(repos))].FullName
			events = append(events, mockEvent(rng, repo, at))
		}
	}

	sortEvents(events)
	return events
}

func mockEvent(rng *rand.Rand, repo string, at time.Time) model.ActivityEvent {
	ev := model.ActivityEvent{Repo: repo, Time: at}

	switch roll := rng.IntN(20); {
	case roll < 11:
		ev.Type, ev.RawType = model.EventPush, "PushEvent"
		ev.Message = pick(rng, mockCommitMessages)
		ev.Commits = intPtr(1 + rng.IntN(8))
		ev.Additions = intPtr(rng.IntN(500))
		ev.Deletions = intPtr(rng.IntN(200))
	case roll < 15:
		ev.Type, ev.RawType = model.EventPullRequest, "PullRequestEvent"
		ev.Message = pick(rng, mockPRTitles)
		ev.Number = intPtr(1 + rng.IntN(120))
		if rng.IntN(2) == 0 {
			ev.Action = "opened"
		} else {
			ev.Action = "closed"
			ev.Merged = rng.IntN(5) != 0
		}
	case roll < 18:
		ev.Type, ev.RawType = model.EventIssue, "IssuesEvent"
		ev.Message = pick(rng, mockIssueTitles)
		ev.Number = intPtr(1 + rng.IntN(60))
		ev.Action = []string{"opened", "closed"}[rng.IntN(2)]
	case roll < 19:
		ev.Type, ev.RawType = model.EventCreate, "CreateEvent"
		ev.RefType = "branch"
		ev.Message = "Created branch: " + pick(rng, mockBranches)
	default:
		ev.Type, ev.RawType = model.EventRelease, "ReleaseEvent"
		ev.Tag = fmt.Sprintf("v%d.%d.0", 1+rng.IntN(3), rng.IntN(10))
		ev.Message = "Released " + ev.Tag
	}

	return ev
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}
