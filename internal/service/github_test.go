package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/provider"
)

func seedUser(t *testing.T, repo *fakeUserRepo, token string) *model.User {
	t.Helper()
	u := &model.User{
		GitHubID:    int64Ptr(1),
		Username:    "octocat",
		Email:       "octo@x.com",
		AvatarURL:   "https://avatars/u/1",
		AccessToken: token,
		LastSynced:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func TestConnectionStatus(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		verifyErr error
		want      model.ConnectionStatus
		verified  bool
	}{
		{
			name:     "valid token",
			token:    "gho_valid",
			want:     model.ConnectionStatus{Connected: true},
			verified: true,
		},
		{
			name:      "rejected token",
			token:     "gho_expired",
			verifyErr: apperror.ReconnectRequired(errors.New("401 Bad credentials")),
			want:      model.ConnectionStatus{NeedsReconnect: true, Message: "GitHub token expired. Please reconnect."},
			verified:  true,
		},
		{
			name:      "GitHub unreachable",
			token:     "gho_valid",
			verifyErr: errors.New("dial tcp: i/o timeout"),
			want:      model.ConnectionStatus{Connected: true, Message: "Could not reach GitHub to verify the connection."},
			verified:  true,
		},
		{
			name:  "mock account",
			token: provider.MockAccessToken,
			want:  model.ConnectionStatus{Connected: true, IsMockAccount: true},
		},
		{
			name:  "no token",
			token: "",
			want:  model.ConnectionStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			u := seedUser(t, repo, tt.token)
			fp := &fakeProvider{verifyErr: tt.verifyErr}
			svc := NewGitHubService(repo, fakeSource{fp}, discardLogger())

			got, err := svc.ConnectionStatus(context.Background(), u.ID)
			if err != nil {
				t.Fatalf("ConnectionStatus() error = %v", err)
			}

			if got.Connected != tt.want.Connected || got.NeedsReconnect != tt.want.NeedsReconnect ||
				got.IsMockAccount != tt.want.IsMockAccount || got.Message != tt.want.Message {
				t.Errorf("status = %+v, want %+v", *got, tt.want)
			}
			if got.Username != "octocat" || got.AvatarURL != "https://avatars/u/1" {
				t.Errorf("profile = %q %q", got.Username, got.AvatarURL)
			}
			if got.LastSynced == nil || !got.LastSynced.Equal(u.LastSynced) {
				t.Errorf("LastSynced = %v, want %v", got.LastSynced, u.LastSynced)
			}
			if verified := len(fp.calls) > 0; verified != tt.verified {
				t.Errorf("verified = %v, want %v", verified, tt.verified)
			}
		})
	}
}

func TestGitHubService_Views(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, "gho_valid")
	fp := &fakeProvider{}
	svc := NewGitHubService(repo, fakeSource{fp}, discardLogger())
	ctx := context.Background()

	if _, err := svc.Dashboard(ctx, u.ID); err != nil {
		t.Errorf("Dashboard() error = %v", err)
	}
	if _, err := svc.Activity(ctx, u.ID); err != nil {
		t.Errorf("Activity() error = %v", err)
	}
	repos, err := svc.Repositories(ctx, u.ID)
	if err != nil || len(repos.Items) != 1 {
		t.Errorf("Repositories() = %+v, %v", repos, err)
	}
	if _, err := svc.Summary(ctx, u.ID); err != nil {
		t.Errorf("Summary() error = %v", err)
	}

	want := []string{"dashboard", "activity", "repositories", "summary"}
	if len(fp.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fp.calls, want)
	}
	for i := range want {
		if fp.calls[i] != want[i] {
			t.Errorf("calls = %v, want %v", fp.calls, want)
		}
	}
}

func TestGitHubService_NotConnected(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, "")
	svc := NewGitHubService(repo, fakeSource{&fakeProvider{}}, discardLogger())

	if _, err := svc.Dashboard(context.Background(), u.ID); !errors.Is(err, apperror.ErrNotConnected) {
		t.Errorf("Dashboard() err = %v, want ErrNotConnected", err)
	}
	if err := svc.RequireConnection(context.Background(), u.ID); !errors.Is(err, apperror.ErrNotConnected) {
		t.Errorf("RequireConnection() err = %v, want ErrNotConnected", err)
	}
}

func TestGitHubService_UnknownUser(t *testing.T) {
	svc := NewGitHubService(newFakeUserRepo(), fakeSource{&fakeProvider{}}, discardLogger())

	if _, err := svc.ConnectionStatus(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDisconnect(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, "gho_valid")
	svc := NewGitHubService(repo, fakeSource{&fakeProvider{}}, discardLogger())
	ctx := context.Background()

	if err := svc.Disconnect(ctx, u.ID); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	status, err := svc.ConnectionStatus(ctx, u.ID)
	if err != nil {
		t.Fatalf("ConnectionStatus() error = %v", err)
	}
	if status.Connected {
		t.Error("account still connected after Disconnect")
	}
	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.GitHubID == nil {
		t.Error("Disconnect should keep the GitHub ID")
	}
}
