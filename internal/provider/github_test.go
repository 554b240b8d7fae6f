package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/model"
)

// fakeGitHubAPI is an httptest stand-in for the GitHub REST API. Individual
// routes can be overridden to return errors or stall.
type fakeGitHubAPI struct {
	t        *testing.T
	srv      *httptest.Server
	override map[string]http.HandlerFunc
	calls    atomic.Int32
}

func newFakeGitHubAPI(t *testing.T) *fakeGitHubAPI {
	t.Helper()
	f := &fakeGitHubAPI{t: t, override: make(map[string]http.HandlerFunc)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHubAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	if r.Header.Get("Authorization") != "Bearer gho_valid" {
		writeGitHubError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if h, ok := f.override[r.URL.Path]; ok {
		h(w, r)
		return
	}

	switch r.URL.Path {
	case "/user":
		writeJSON(w, map[string]any{"login": "octocat", "name": "The Octocat", "bio": "hi", "public_repos": 3, "followers": 10, "following": 2})
	case "/user/repos":
		if r.URL.Query().Get("sort") != "updated" {
			f.t.Errorf("repos sort = %q, want updated", r.URL.Query().Get("sort"))
		}
		writeJSON(w, []map[string]any{
			{"name": "old", "language": "Go", "stargazers_count": 1, "forks_count": 0, "updated_at": "2024-06-01T00:00:00Z"},
			{"name": "new", "language": "Go", "stargazers_count": 5, "forks_count": 2, "updated_at": "2024-06-14T00:00:00Z", "topics": []string{"cli"}},
			{"name": "docs", "language": nil, "stargazers_count": 0, "forks_count": 1, "updated_at": "2024-06-10T00:00:00Z"},
		})
	case "/search/issues":
		q := r.URL.Query().Get("q")
		total := 0
		switch {
		case strings.Contains(q, "state:open"):
			total = 2
		case strings.Contains(q, "state:closed"):
			total = 9
		case strings.Contains(q, "is:merged"):
			total = 7
		}
		writeJSON(w, map[string]any{"total_count": total, "items": []any{}})
	case "/users/octocat/events/public":
		writeJSON(w, []map[string]any{
			{"type": "PushEvent", "repo": map[string]any{"name": "octocat/new"}, "created_at": "2024-06-14T10:00:00Z", "payload": map[string]any{"size": 2, "commits": []map[string]any{{"message": "fix: thing"}}}},
			{"type": "PullRequestEvent", "repo": map[string]any{"name": "octocat/new"}, "created_at": "2024-06-15T09:00:00Z", "payload": map[string]any{"action": "opened", "number": 4, "pull_request": map[string]any{"title": "Add flag"}}},
			{"type": "ForkEvent", "repo": map[string]any{"name": "octocat/old"}, "created_at": "2024-06-13T10:00:00Z", "payload": map[string]any{}},
		})
	case "/search/commits":
		writeJSON(w, map[string]any{"total_count": 120, "items": []any{}})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeGitHubError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func newTestFactory(t *testing.T, apiURL string, timeout time.Duration) *Factory {
	t.Helper()
	f, err := NewFactory(Options{
		APIBaseURL: apiURL,
		Timeout:    timeout,
		Now:        func() time.Time { return testNow },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return f
}

func githubUser(token string) *model.User {
	return &model.User{ID: "u1", Username: "octocat", AccessToken: token}
}

func TestGitHubProvider_Dashboard(t *testing.T) {
	api := newFakeGitHubAPI(t)
	p, err := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_valid"))
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if p.Kind() != KindGitHub {
		t.Fatalf("Kind() = %q, want github", p.Kind())
	}

	d, err := p.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if d.Warning != "" {
		t.Errorf("Warning = %q, want none", d.Warning)
	}
	if d.Stats.TotalRepos != 3 {
		t.Errorf("TotalRepos = %d, want 3", d.Stats.TotalRepos)
	}
	langSum := 0
	for _, n := range d.Languages {
		langSum += n
	}
	if langSum != 2 {
		t.Errorf("language histogram sums to %d, want 2 (repos with a language)", langSum)
	}
	if d.TopRepos[0].Name != "new" {
		t.Errorf("TopRepos[0] = %q, want most recently updated", d.TopRepos[0].Name)
	}
	if d.Stats.OpenPRs != 2 || d.Stats.MergedPRs != 7 || d.Stats.ClosedPRs != 2 || d.Stats.TotalPRs != 11 {
		t.Errorf("PR stats = %+v", d.Stats)
	}
	if d.Stats.TotalCommits != 120 || d.Stats.Contributions != 131 {
		t.Errorf("commits/contributions = %d/%d", d.Stats.TotalCommits, d.Stats.Contributions)
	}
	if d.UserInfo.Login != "octocat" || d.UserInfo.Followers != 10 {
		t.Errorf("UserInfo = %+v", d.UserInfo)
	}

	if len(d.RecentActivity) != 3 {
		t.Fatalf("RecentActivity length = %d, want 3", len(d.RecentActivity))
	}
	if d.RecentActivity[0].Type != model.EventPullRequest {
		t.Errorf("newest event = %q, want pull_request", d.RecentActivity[0].Type)
	}
	for _, ev := range d.RecentActivity {
		if ev.Type == model.EventPush && (ev.Commits == nil || *ev.Commits < 0) {
			t.Errorf("push event without non-negative commits: %+v", ev)
		}
		if ev.RawType == "ForkEvent" && (ev.Type != model.EventOther || ev.Message != "ForkEvent") {
			t.Errorf("unknown event = %+v", ev)
		}
	}
	if d.Stats.CurrentStreak != 3 {
		t.Errorf("CurrentStreak = %d, want 3", d.Stats.CurrentStreak)
	}
}

func TestGitHubProvider_DashboardIsStable(t *testing.T) {
	api := newFakeGitHubAPI(t)
	p, _ := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_valid"))

	first, err := p.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	second, err := p.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("two dashboards with unchanged upstream state differ")
	}
}

func TestGitHubProvider_Unauthorized(t *testing.T) {
	api := newFakeGitHubAPI(t)
	p, _ := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_revoked"))

	_, err := p.Dashboard(context.Background())
	if !errors.Is(err, apperror.ErrReconnect) {
		t.Fatalf("Dashboard() error = %v, want ErrReconnect", err)
	}

	_, err = p.Verify(context.Background())
	if !errors.Is(err, apperror.ErrReconnect) {
		t.Fatalf("Verify() error = %v, want ErrReconnect", err)
	}
}

func TestGitHubProvider_PartialFailureDegrades(t *testing.T) {
	api := newFakeGitHubAPI(t)
	api.override["/users/octocat/events/public"] = func(w http.ResponseWriter, r *http.Request) {
		writeGitHubError(w, http.StatusBadGateway, "upstream down")
	}
	p, _ := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_valid"))

	d, err := p.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v, want degraded result", err)
	}
	if !strings.Contains(d.Warning, "events") {
		t.Errorf("Warning = %q, want it to name events", d.Warning)
	}
	if d.RecentActivity == nil || len(d.RecentActivity) != 0 {
		t.Errorf("RecentActivity = %v, want empty non-nil", d.RecentActivity)
	}
	if d.Stats.TotalRepos != 3 {
		t.Errorf("TotalRepos = %d, other parts should still load", d.Stats.TotalRepos)
	}
}

func TestGitHubProvider_TimeoutDegrades(t *testing.T) {
	api := newFakeGitHubAPI(t)
	api.override["/search/commits"] = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	p, _ := newTestFactory(t, api.srv.URL, 100*time.Millisecond).For(githubUser("gho_valid"))

	d, err := p.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !strings.Contains(d.Warning, "commit count") {
		t.Errorf("Warning = %q, want it to name the commit count", d.Warning)
	}
	if d.Stats.TotalCommits != 0 {
		t.Errorf("TotalCommits = %d, want 0 after timeout", d.Stats.TotalCommits)
	}
}

func TestGitHubProvider_Activity(t *testing.T) {
	api := newFakeGitHubAPI(t)
	p, _ := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_valid"))

	r, err := p.Activity(context.Background())
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	if len(r.Activities) != 3 || r.WeeklyStats.Commits != 2 || r.WeeklyStats.PRsOpened != 1 {
		t.Errorf("Activity() = %d activities, weekly %+v", len(r.Activities), r.WeeklyStats)
	}
}

func TestGitHubProvider_RepositoriesAndSummary(t *testing.T) {
	api := newFakeGitHubAPI(t)
	p, _ := newTestFactory(t, api.srv.URL, time.Second).For(githubUser("gho_valid"))

	list, err := p.Repositories(context.Background())
	if err != nil {
		t.Fatalf("Repositories() error = %v", err)
	}
	if len(list.Items) != 3 || list.Items[0].Topics[0] != "cli" {
		t.Errorf("Repositories() = %+v", list.Items)
	}

	sum, err := p.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.User.Login != "octocat" || sum.Repos.Total != 3 || sum.Activity.CommitsByHour[10] != 2 {
		t.Errorf("Summary() = %+v", sum)
	}
}
