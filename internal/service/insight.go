package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/insight"
	"github.com/devtrack/devtrack-server/internal/model"
)

// maxChatMessageBytes bounds one chat message.
const maxChatMessageBytes = 4000

// GitHubSummaries is the slice of GitHubService the insight flow needs.
type GitHubSummaries interface {
	RequireConnection(ctx context.Context, userID string) error
	Summary(ctx context.Context, userID string) (*model.GitHubSummary, error)
}

// InsightService produces insights and chat replies for the session's
// account.
type InsightService struct {
	github GitHubSummaries
	synth  *insight.Synthesizer
	logger *slog.Logger
}

func NewInsightService(github GitHubSummaries, synth *insight.Synthesizer, logger *slog.Logger) *InsightService {
	return &InsightService{github: github, synth: synth, logger: logger}
}

// GitHubEcho repeats the summary figures the insights were computed from.
type GitHubEcho struct {
	Repos     int            `json:"repos"`
	Stars     int            `json:"stars"`
	Languages map[string]int `json:"languages"`
}

// InsightReport is the data block of GET /api/ai/insights. Warning names
// the GitHub data that could not be fetched, when any.
type InsightReport struct {
	model.InsightResult
	GitHubData GitHubEcho `json:"githubData"`
	Warning    string     `json:"warning,omitempty"`
}

// InsightResponse carries the report and the strategy that produced it.
type InsightResponse struct {
	Report InsightReport
	Mode   insight.Mode
}

// ChatResponse carries a chat reply and the strategy that produced it.
type ChatResponse struct {
	Reply model.ChatReply
	Mode  insight.Mode
}

// Insights requires a connected account; the summary comes from GitHub or
// from mock data depending on the stored credential.
func (s *InsightService) Insights(ctx context.Context, userID string) (*InsightResponse, error) {
	sum, err := s.github.Summary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/insight: %w", err)
	}

	out := s.synth.Insights(ctx, sum)
	if out.Kind == insight.KindFallback {
		s.logger.Info("insights served from heuristic", "userID", userID, "reason", out.Reason)
	}

	langs := sum.Repos.Languages
	if langs == nil {
		langs = map[string]int{}
	}

	return &InsightResponse{
		Report: InsightReport{
			InsightResult: out.Result,
			GitHubData: GitHubEcho{
				Repos:     sum.Repos.Total,
				Stars:     sum.Repos.Stars,
				Languages: langs,
			},
			Warning: sum.Warning,
		},
		Mode: out.Mode,
	}, nil
}

// Chat answers one message for a connected account. The GitHub summary is
// fetched only when a model will actually read it.
func (s *InsightService) Chat(ctx context.Context, userID, message string, history []model.ChatMessage) (*ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "Message is required")
	}
	if len(message) > maxChatMessageBytes {
		return nil, apperror.ValidationFailed("message", fmt.Sprintf("Message must be %d bytes or fewer", maxChatMessageBytes))
	}

	var sum *model.GitHubSummary
	if s.synth.Mode() == insight.ModeAI {
		var err error
		if sum, err = s.github.Summary(ctx, userID); err != nil {
			return nil, fmt.Errorf("service/insight: %w", err)
		}
	} else if err := s.github.RequireConnection(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/insight: %w", err)
	}

	out := s.synth.Chat(ctx, sum, message, history)
	return &ChatResponse{Reply: out.Reply, Mode: out.Mode}, nil
}
