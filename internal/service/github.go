package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/provider"
	"github.com/devtrack/devtrack-server/internal/repository"
)

// ProviderSource picks the data provider for an account.
// *provider.Factory implements it.
type ProviderSource interface {
	For(user *model.User) (provider.DataProvider, error)
}

// GitHubService serves the GitHub-backed views for the session's account.
type GitHubService struct {
	users     repository.UserRepository
	providers ProviderSource
	logger    *slog.Logger
}

func NewGitHubService(users repository.UserRepository, providers ProviderSource, logger *slog.Logger) *GitHubService {
	return &GitHubService{users: users, providers: providers, logger: logger}
}

// ConnectionStatus reports whether the account holds a usable credential.
//
// A real token is checked against GitHub. A rejected token reports
// needsReconnect instead of failing. Any other upstream error leaves the
// account marked connected and explains in Message, since the token itself
// may be fine. Mock accounts are connected without a network call.
func (s *GitHubService) ConnectionStatus(ctx context.Context, userID string) (*model.ConnectionStatus, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &model.ConnectionStatus{
		Connected:     user.HasGitHubToken(),
		Username:      user.Username,
		AvatarURL:     user.AvatarURL,
		IsMockAccount: provider.IsMockToken(user.AccessToken),
	}
	if !user.LastSynced.IsZero() {
		ls := user.LastSynced
		status.LastSynced = &ls
	}
	if !status.Connected || status.IsMockAccount {
		return status, nil
	}

	p, err := s.providers.For(user)
	if err != nil {
		return nil, fmt.Errorf("service/github: %w", err)
	}

	if _, err := p.Verify(ctx); err != nil {
		var appErr *apperror.AppError
		if errors.Is(err, apperror.ErrReconnect) && errors.As(err, &appErr) {
			status.Connected = false
			status.NeedsReconnect = true
			status.Message = appErr.Message
			return status, nil
		}
		s.logger.Warn("GitHub token check failed", "userID", user.ID, "error", err)
		status.Message = "Could not reach GitHub to verify the connection."
	}

	return status, nil
}

func (s *GitHubService) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	p, err := s.providerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	d, err := p.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/github: dashboard: %w", err)
	}
	return d, nil
}

func (s *GitHubService) Activity(ctx context.Context, userID string) (*model.ActivityReport, error) {
	p, err := s.providerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, err := p.Activity(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/github: activity: %w", err)
	}
	return a, nil
}

func (s *GitHubService) Repositories(ctx context.Context, userID string) (*model.RepositoryList, error) {
	p, err := s.providerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	r, err := p.Repositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/github: repositories: %w", err)
	}
	return r, nil
}

// Summary returns the condensed account view the insight synthesizer reads.
func (s *GitHubService) Summary(ctx context.Context, userID string) (*model.GitHubSummary, error) {
	p, err := s.providerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := p.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/github: summary: %w", err)
	}
	return sum, nil
}

// Disconnect removes the stored credential. The GitHub ID stays, so a later
// OAuth login finds the same account.
func (s *GitHubService) Disconnect(ctx context.Context, userID string) error {
	if err := s.users.ClearAccessToken(ctx, userID); err != nil {
		return fmt.Errorf("service/github: disconnecting user %s: %w", userID, err)
	}
	s.logger.Info("GitHub disconnected", "userID", userID)
	return nil
}

// RequireConnection fails with apperror.ErrNotConnected for accounts
// without a stored credential. It does not contact GitHub.
func (s *GitHubService) RequireConnection(ctx context.Context, userID string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasGitHubToken() {
		return apperror.NotConnected()
	}
	return nil
}

func (s *GitHubService) providerFor(ctx context.Context, userID string) (provider.DataProvider, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.providers.For(user)
}

func (s *GitHubService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/github: loading user %s: %w", userID, err)
	}
	return user, nil
}
