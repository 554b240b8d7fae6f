// Package provider turns GitHub account data into dashboard view-models.
//
// Two DataProvider implementations exist: GitHubProvider calls the GitHub
// REST API with the account's access token, MockProvider synthesizes the same
// data for accounts holding the mock sentinel token. Factory.For picks one
// per request, so nothing downstream branches on where the data came from.
// Both feed the same assembler, which owns every derivation rule.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/metrics"
	"github.com/devtrack/devtrack-server/internal/model"
)

// MockAccessToken is stored on the dev-login account instead of a real
// GitHub token.
const MockAccessToken = "mock_access_token"

// IsMockToken also accepts the per-user "mock_token_<id>" form older
// accounts were seeded with.
func IsMockToken(token string) bool {
	return token == MockAccessToken || strings.HasPrefix(token, "mock_token_")
}

type Kind string

const (
	KindGitHub Kind = "github"
	KindMock   Kind = "mock"
)

// DataProvider is the capability every data source implements.
//
// Errors: apperror.ErrReconnect when GitHub rejects the token. Any other
// upstream failure is absorbed: the affected part is empty and the result
// carries a warning.
type DataProvider interface {
	Kind() Kind

	// Verify checks the credential and returns the GitHub login.
	Verify(ctx context.Context) (string, error)

	Dashboard(ctx context.Context) (*model.Dashboard, error)
	Activity(ctx context.Context) (*model.ActivityReport, error)
	Repositories(ctx context.Context) (*model.RepositoryList, error)
	Summary(ctx context.Context) (*model.GitHubSummary, error)
}

// Options configure both providers.
type Options struct {
	// APIBaseURL is the GitHub REST root. Tests point it at httptest.
	APIBaseURL string

	// Timeout bounds each upstream call individually.
	Timeout time.Duration

	// PageSize caps repository and event listings (GitHub max is 100).
	PageSize int

	// TopRepos is the length of Dashboard.TopRepos.
	TopRepos int

	// Now is the clock used for relative windows. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.APIBaseURL == "" {
		o.APIBaseURL = "https://api.github.com/"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.PageSize <= 0 || o.PageSize > 100 {
		o.PageSize = 100
	}
	if o.TopRepos <= 0 {
		o.TopRepos = 6
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Factory builds the provider for one request.
type Factory struct {
	opts    Options
	apiBase *url.URL
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewFactory(opts Options, logger *slog.Logger, m *metrics.Metrics) (*Factory, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	base := opts.APIBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("provider: parsing GitHub API URL: %w", err)
	}

	return &Factory{opts: opts, apiBase: u, logger: logger, metrics: m}, nil
}

// For returns the provider matching the account's credential.
// Accounts without any credential get apperror.ErrNotConnected.
func (f *Factory) For(user *model.User) (DataProvider, error) {
	if !user.HasGitHubToken() {
		return nil, apperror.NotConnected()
	}

	asm := assembler{now: f.opts.Now, topRepos: f.opts.TopRepos}

	if IsMockToken(user.AccessToken) {
		return newMockProvider(user, asm, f.opts.PageSize, f.metrics), nil
	}

	return newGitHubProvider(user, f.apiBase, f.opts, asm, f.logger, f.metrics), nil
}
