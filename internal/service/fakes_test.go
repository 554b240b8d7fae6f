package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/provider"
)

// fakeUserRepo is an in-memory repository.UserRepository with the same
// uniqueness and lookup rules as the SQLite one.
type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	// set to a non-nil error to simulate a database failure
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range f.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", "")
}

func (f *fakeUserRepo) conflicts(user *model.User) bool {
	for _, u := range f.users {
		if u.ID == user.ID {
			continue
		}
		if strings.EqualFold(u.Email, user.Email) {
			return true
		}
		if user.GitHubID != nil && u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	if f.conflicts(user) {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, id int64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GitHubID != nil && *u.GitHubID == id })
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User, matchEmail bool) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	existing, err := f.GetByGitHubID(ctx, *user.GitHubID)
	if matchEmail && errors.Is(err, apperror.ErrNotFound) {
		existing, err = f.GetByEmail(ctx, user.Email)
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return f.Create(ctx, user)
	}
	existing.GitHubID = user.GitHubID
	existing.Username = user.Username
	existing.AvatarURL = user.AvatarURL
	existing.AccessToken = user.AccessToken
	existing.LastSynced = user.LastSynced
	if err := f.Update(ctx, existing); err != nil {
		return err
	}
	*user = *existing
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	if f.conflicts(user) {
		return apperror.Conflict("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUserRepo) ClearAccessToken(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.AccessToken = ""
	return nil
}

// fakeProvider returns canned data and records which operations ran.
type fakeProvider struct {
	kind      provider.Kind
	verifyErr error
	summary   *model.GitHubSummary
	calls     []string
}

func (p *fakeProvider) Kind() provider.Kind { return p.kind }

func (p *fakeProvider) Verify(context.Context) (string, error) {
	p.calls = append(p.calls, "verify")
	return "octocat", p.verifyErr
}

func (p *fakeProvider) Dashboard(context.Context) (*model.Dashboard, error) {
	p.calls = append(p.calls, "dashboard")
	return &model.Dashboard{}, nil
}

func (p *fakeProvider) Activity(context.Context) (*model.ActivityReport, error) {
	p.calls = append(p.calls, "activity")
	return &model.ActivityReport{}, nil
}

func (p *fakeProvider) Repositories(context.Context) (*model.RepositoryList, error) {
	p.calls = append(p.calls, "repositories")
	return &model.RepositoryList{Items: []model.RepositorySummary{{Name: "devtrack"}}}, nil
}

func (p *fakeProvider) Summary(context.Context) (*model.GitHubSummary, error) {
	p.calls = append(p.calls, "summary")
	if p.summary != nil {
		return p.summary, nil
	}
	return &model.GitHubSummary{}, nil
}

// fakeSource hands out one fakeProvider, applying the same not-connected
// rule as provider.Factory.
type fakeSource struct {
	p *fakeProvider
}

func (s fakeSource) For(user *model.User) (provider.DataProvider, error) {
	if !user.HasGitHubToken() {
		return nil, apperror.NotConnected()
	}
	return s.p, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService returns an AuthService wired with fake storage and a
// minimum-cost bcrypt.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, production bool) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	return NewAuthService(repo, ts, auth.NewPasswordService(4), AuthOptions{Production: production}, discardLogger())
}

func int64Ptr(v int64) *int64 { return &v }
