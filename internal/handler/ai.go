package handler

import (
	"log/slog"
	"net/http"

	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/insight"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/service"
)

// AIHandler serves /api/ai. Responses are wrapped as
// {"success": true, "data": ..., "mode": "ai"|"mock"}.
type AIHandler struct {
	svc    *service.InsightService
	logger *slog.Logger
}

func NewAIHandler(svc *service.InsightService, logger *slog.Logger) *AIHandler {
	return &AIHandler{svc: svc, logger: logger}
}

type aiResponse struct {
	Success bool         `json:"success"`
	Data    any          `json:"data"`
	Mode    insight.Mode `json:"mode"`
}

// chatRequest is the body of POST /api/ai/chat. History is optional and is
// resent by the client on every call.
type chatRequest struct {
	Message string              `json:"message"`
	History []model.ChatMessage `json:"history"`
}

// HandleInsights returns productivity insights for the session's account.
//
// HTTP: GET /api/ai/insights
func (h *AIHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	res, err := h.svc.Insights(r.Context(), userID)
	if err != nil {
		writeAIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, aiResponse{Success: true, Data: res.Report, Mode: res.Mode})
}

// HandleChat answers one chat message.
//
// HTTP: POST /api/ai/chat {message, history?}
func (h *AIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAIError(w, h.logger, err)
		return
	}

	res, err := h.svc.Chat(r.Context(), userID, req.Message, req.History)
	if err != nil {
		writeAIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, aiResponse{Success: true, Data: res.Reply, Mode: res.Mode})
}
