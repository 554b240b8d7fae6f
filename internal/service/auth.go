// Package service holds the business rules between the HTTP handlers and
// the storage, GitHub and LLM layers:
//
//	AuthHandler    → AuthService    → UserRepository, TokenService, PasswordService
//	GitHubHandler  → GitHubService  → UserRepository, provider.Factory
//	AIHandler      → InsightService → GitHubService, insight.Synthesizer
//
// Services speak apperror; they never see an http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/provider"
	"github.com/devtrack/devtrack-server/internal/repository"
)

// The fixed account behind POST /api/auth/dev-login.
const (
	devEmail     = "dev@devtrack.local"
	devUsername  = "DevUser_Rough"
	devAvatarURL = "https://api.dicebear.com/7.x/avataaars/svg?seed=DevTrackAi"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// SignupInput is the body of POST /api/auth/signup.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,maxbytes"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthOptions carry the deployment-dependent auth rules.
type AuthOptions struct {
	Production    bool
	DevSessionTTL time.Duration
}

// AuthService handles account creation, login and session issuance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	opts      AuthOptions
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if opts.DevSessionTTL <= 0 {
		opts.DevSessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		opts:      opts,
		logger:    logger,
	}
}

// AuthResult bundles the account with the session token issued for it, so
// the handler can set the cookie and respond in one step. TTL is the
// token's lifetime and doubles as the cookie max-age.
type AuthResult struct {
	User  *model.User
	Token string
	TTL   time.Duration
}

// LoginOrRegisterGitHub handles a completed OAuth exchange.
//
// When linkUserID names a logged-in account, GitHub is attached to that
// account. Otherwise the account is resolved by GitHub ID, then by e-mail
// when GitHub verified it, and created if neither matches. Either way the
// stored access token is replaced and lastSynced is bumped.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser, accessToken, linkUserID string) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	githubID := gh.ID
	now := time.Now().UTC()

	var user *model.User
	if linkUserID != "" {
		existing, err := s.users.GetByID(ctx, linkUserID)
		switch {
		case err == nil:
			existing.GitHubID = &githubID
			existing.Username = gh.Login
			existing.AvatarURL = gh.AvatarURL
			existing.AccessToken = accessToken
			existing.LastSynced = now
			if err := s.users.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("service/auth: linking GitHub %d to user %s: %w", gh.ID, linkUserID, err)
			}
			user = existing
			s.logger.Info("GitHub account linked", "userID", user.ID, "login", gh.Login)
		case errors.Is(err, apperror.ErrNotFound):
			// Stale session for a deleted account; treat as a plain login.
			s.logger.Warn("link requested for unknown user", "userID", linkUserID)
		default:
			return nil, fmt.Errorf("service/auth: loading user %s: %w", linkUserID, err)
		}
	}

	if user == nil {
		user = &model.User{
			GitHubID:    &githubID,
			Username:    gh.Login,
			Name:        gh.Name,
			Email:       gh.Email,
			AvatarURL:   gh.AvatarURL,
			AccessToken: accessToken,
			LastSynced:  now,
		}
		err := s.users.UpsertGitHub(ctx, user, gh.EmailVerified)
		if errors.Is(err, apperror.ErrConflict) && !gh.EmailVerified && user.Email != auth.SyntheticEmail(gh.Login) {
			// Someone else owns the unverified address; keep it off this account.
			s.logger.Warn("unverified GitHub e-mail already in use", "githubID", gh.ID)
			user.Email = auth.SyntheticEmail(gh.Login)
			err = s.users.UpsertGitHub(ctx, user, false)
		}
		if err != nil {
			return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
		}
		s.logger.Info("user authenticated via GitHub", "userID", user.ID, "login", user.Username)
	}

	return s.issue(user, s.tokens.TTL())
}

// Signup creates a password account and logs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.ValidationFailed("email", "User already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking e-mail: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		Username:     temporaryUsername(in.Name),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", "User already exists")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", "userID", user.ID)

	return s.issue(user, s.tokens.TTL())
}

// Login verifies a password account. Unknown e-mail and wrong password give
// the same message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ValidationFailed("", "Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.ValidationFailed("", "Please login with GitHub")
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.ValidationFailed("", "Invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	return s.issue(user, s.tokens.TTL())
}

// DevLogin logs into the fixed mock account, creating it on first use.
// The account holds the mock token, so every GitHub view is served from
// synthetic data. Refused in production.
func (s *AuthService) DevLogin(ctx context.Context) (*AuthResult, error) {
	if s.opts.Production {
		return nil, apperror.Forbidden("Dev login only available in development mode")
	}

	user, err := s.users.GetByEmail(ctx, devEmail)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			Username:    devUsername,
			Email:       devEmail,
			AvatarURL:   devAvatarURL,
			AccessToken: provider.MockAccessToken,
			LastSynced:  time.Now().UTC(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating dev user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("service/auth: loading dev user: %w", err)
	case user.AccessToken != provider.MockAccessToken:
		// Restore the mock credential after a disconnect.
		user.AccessToken = provider.MockAccessToken
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: resetting dev user: %w", err)
		}
	}

	return s.issue(user, s.opts.DevSessionTTL)
}

// GetUserByID returns the account behind a session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("Not authenticated")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken returns the user ID a session token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// SessionTTL is the lifetime of a regular session.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.User, ttl time.Duration) (*AuthResult, error) {
	token, err := s.tokens.GenerateWithDuration(user.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token, TTL: ttl}, nil
}

// validateInput turns validator errors into one client-facing message.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service/auth: validating input: %w", err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "email":
		return apperror.ValidationFailed(field, "Please provide a valid email address")
	case "maxbytes":
		return apperror.ValidationFailed(field, fmt.Sprintf("Password must be %d bytes or fewer", maxPasswordBytes))
	default:
		return apperror.ValidationFailed(field, "All fields are required")
	}
}

// temporaryUsername derives a username from the first word of the display
// name plus a number below 1000.
func temporaryUsername(name string) string {
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return fmt.Sprintf("%s%d", first, rand.IntN(1000))
}
