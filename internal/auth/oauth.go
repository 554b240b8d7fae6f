package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// GitHubUser is the part of the GitHub profile we keep on the account.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  // GitHub's numeric user ID, stable across renames
	Login     string // GitHub username, e.g. "octocat"
	Name      string // display name, may be empty
	Email     string // never empty after Exchange, see resolveEmail
	AvatarURL string

	// EmailVerified is false for the unverified and synthetic fallbacks.
	// Such an address may only name a new account, never match an
	// existing one.
	EmailVerified bool
}

// GitHubOAuthConfig holds the OAuth App credentials. AuthURL, TokenURL and
// APIBaseURL are empty in production and point at test servers in tests.
type GitHubOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the user to GitHub's authorization endpoint with our
//     ClientID, the requested scopes and a random state.
//  2. GitHub redirects back to CallbackURL with a short-lived "code".
//  3. We exchange the code for an access token (server-to-server, with
//     ClientSecret).
//  4. We use the token to read the profile and, if hidden, the e-mails.
//
// The access token is then stored (sealed) on the account so the dashboard
// can call the GitHub API on the user's behalf.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase *url.URL
}

// NewGitHubProvider creates a GitHubProvider.
//
// Scopes we request:
//   - "read:user"  public profile (ID, login, avatar)
//   - "user:email" e-mail addresses, including hidden ones
func NewGitHubProvider(cfg GitHubOAuthConfig) (*GitHubProvider, error) {
	endpoint := githuboauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	p := &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
	}

	if cfg.APIBaseURL != "" {
		base := cfg.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing GitHub API URL: %w", err)
		}
		p.apiBase = u
	}

	return p, nil
}

// Configured reports whether OAuth credentials are present. Without them the
// /api/auth/github route cannot work.
func (p *GitHubProvider) Configured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random value we also store in a cookie; the callback checks
// that both match so a third party cannot complete a flow for the browser.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token and returns the
// GitHub profile together with that token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	if oauthToken.AccessToken == "" {
		return nil, "", errors.New("auth: GitHub returned an empty access token")
	}

	client := github.NewClient(p.config.Client(ctx, oauthToken))
	if p.apiBase != nil {
		client.BaseURL = p.apiBase
	}

	u, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	if u.GetID() == 0 {
		return nil, "", errors.New("auth: GitHub returned an invalid user (ID = 0)")
	}

	ghUser := &GitHubUser{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		Email:     u.GetEmail(),
		AvatarURL: u.GetAvatarURL(),
	}

	// GitHub only lets a verified address be the public profile e-mail.
	if ghUser.Email != "" {
		ghUser.EmailVerified = true
	} else {
		ghUser.Email, ghUser.EmailVerified = resolveEmail(ctx, client, ghUser.Login)
	}

	return ghUser, oauthToken.AccessToken, nil
}

// SyntheticEmail is the placeholder address of a GitHub account whose
// e-mails are all hidden or unusable.
func SyntheticEmail(login string) string {
	return login + "@github.user"
}

// resolveEmail picks an address for accounts that hide their e-mail:
// primary+verified, then any verified, then the first listed, then
// SyntheticEmail so the account still has a unique e-mail. The flag reports
// whether GitHub verified the returned address.
func resolveEmail(ctx context.Context, client *github.Client, login string) (string, bool) {
	fallback := SyntheticEmail(login)

	emails, _, err := client.Users.ListEmails(ctx, &github.ListOptions{PerPage: 100})
	if err != nil || len(emails) == 0 {
		return fallback, false
	}

	for _, e := range emails {
		if e.GetPrimary() && e.GetVerified() && e.GetEmail() != "" {
			return e.GetEmail(), true
		}
	}
	for _, e := range emails {
		if e.GetVerified() && e.GetEmail() != "" {
			return e.GetEmail(), true
		}
	}
	if first := emails[0].GetEmail(); first != "" {
		return first, false
	}
	return fallback, false
}
