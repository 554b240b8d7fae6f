package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/service"
)

// GitHubHandler serves /api/github. Every route sits behind RequireAuth.
type GitHubHandler struct {
	svc    *service.GitHubService
	logger *slog.Logger
}

func NewGitHubHandler(svc *service.GitHubService, logger *slog.Logger) *GitHubHandler {
	return &GitHubHandler{svc: svc, logger: logger}
}

// HandleConnectionStatus reports whether the stored credential works. A
// rejected token is a 200 with needsReconnect, not an error.
//
// HTTP: GET /api/github/connection-status
func (h *GitHubHandler) HandleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	status, err := h.svc.ConnectionStatus(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleDashboard returns stats, top repositories, recent activity and the
// contribution graph.
//
// HTTP: GET /api/github/dashboard
func (h *GitHubHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	d, err := h.svc.Dashboard(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// HandleActivity returns the activity report.
//
// HTTP: GET /api/github/activity
func (h *GitHubHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	a, err := h.svc.Activity(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// HandleRepositories returns the repository list as a bare array. A
// partial result is flagged with a Warning header since the body has no
// room for it.
//
// HTTP: GET /api/github/repositories
func (h *GitHubHandler) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	list, err := h.svc.Repositories(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if list.Warning != "" {
		w.Header().Set("Warning", "199 - "+strconv.Quote(list.Warning))
	}
	writeJSON(w, http.StatusOK, list.Items)
}

// HandleDisconnect forgets the stored GitHub token.
//
// HTTP: DELETE /api/github/connection
func (h *GitHubHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.svc.Disconnect(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "GitHub disconnected"})
}
