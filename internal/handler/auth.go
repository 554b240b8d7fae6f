package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/service"
)

const stateCookie = "oauth_state"

// OAuthProvider is the part of *auth.GitHubProvider the handler needs.
type OAuthProvider interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, string, error)
}

// CookieOptions decide how the session cookie is scoped. In production
// the client is served from another origin over HTTPS, so the cookie must
// be Secure and SameSite=None; locally it is plain Lax.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) sameSite() http.SameSite {
	if o.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// AuthHandler serves /api/auth: GitHub OAuth, local signup and login,
// dev-login, logout and the current-user lookup.
type AuthHandler struct {
	oauth     OAuthProvider
	svc       *service.AuthService
	cookies   CookieOptions
	clientURL string
	logger    *slog.Logger
}

func NewAuthHandler(
	oauth OAuthProvider,
	svc *service.AuthService,
	cookies CookieOptions,
	clientURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oauth:     oauth,
		svc:       svc,
		cookies:   cookies,
		clientURL: clientURL,
		logger:    logger,
	}
}

// authResponse is the body of signup, login and dev-login.
type authResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// HandleGitHubLogin redirects the browser to GitHub's authorize page.
//
// HTTP: GET /api/auth/github
//
// A random state goes into a short-lived cookie and the authorize URL; the
// callback only proceeds when they match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if !h.oauth.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "oauth_unavailable",
			Message: "GitHub login is not configured",
		})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
// With a valid session already present (OptionalAuth), GitHub is linked to
// that account and the browser lands on /dashboard?github_connected=true.
// Otherwise the GitHub account is logged in or registered. Upstream
// failures redirect to /login?error=auth_failed.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sc, err := r.Cookie(stateCookie)
	if err != nil || sc.Value == "" || q.Get("state") != sc.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid OAuth state"})
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		h.redirectFailure(w, r)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "No code provided"})
		return
	}

	ghUser, accessToken, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	linkUserID, linking := auth.UserIDFromContext(r.Context())

	result, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser, accessToken, linkUserID)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.redirectFailure(w, r)
		return
	}

	h.setSession(w, result)

	target := h.clientURL + "/dashboard"
	if linking && result.User.ID == linkUserID {
		target += "?github_connected=true"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleSignup creates a password account and logs it in.
//
// HTTP: POST /api/auth/signup {name, email, password}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSession(w, result)
	writeJSON(w, http.StatusCreated, authResponse{Message: "User created successfully", User: result.User})
}

// HandleLogin verifies a password account.
//
// HTTP: POST /api/auth/login {email, password}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSession(w, result)
	writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: result.User})
}

// HandleDevLogin logs into the mock account with a one-day session.
//
// HTTP: POST /api/auth/dev-login (403 in production)
func (h *AuthHandler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.DevLogin(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSession(w, result)
	writeJSON(w, http.StatusOK, authResponse{Message: "Dev login successful", User: result.User})
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires; there is no revocation list.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.sameSite(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleMe returns the session's account.
//
// HTTP: GET /api/auth/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, result *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(result.TTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.sameSite(),
	})
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientURL+"/login?error=auth_failed", http.StatusFound)
}
