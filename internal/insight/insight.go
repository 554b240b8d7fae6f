// Package insight turns a GitHub summary into productivity insights and
// chat replies.
//
// With an LLM client configured the model writes the result; otherwise, or
// whenever the model fails or answers with something unusable, the
// deterministic heuristic runs instead. The response schema is the same
// either way. Outcome records which path produced it and why.
package insight

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/devtrack/devtrack-server/internal/llm"
	"github.com/devtrack/devtrack-server/internal/metrics"
	"github.com/devtrack/devtrack-server/internal/model"
)

type Mode string

const (
	ModeAI   Mode = "ai"
	ModeMock Mode = "mock"
)

type Kind string

const (
	KindOK       Kind = "ok"
	KindFallback Kind = "fallback"
)

// Outcome is the tagged result of Insights. Reason is set only for
// KindFallback.
type Outcome struct {
	Result model.InsightResult
	Mode   Mode
	Kind   Kind
	Reason string
}

// ChatOutcome is the tagged result of Chat.
type ChatOutcome struct {
	Reply  model.ChatReply
	Mode   Mode
	Kind   Kind
	Reason string
}

// maxHistory bounds how many caller-supplied turns are forwarded.
const maxHistory = 10

var chatSuggestions = []string{
	"What are my peak productivity hours?",
	"How can I improve my code quality?",
	"Am I at risk of burnout?",
}

var mockReplies = []string{
	"Based on your GitHub activity, I notice you're making great progress! Consider adding more tests to improve code quality.",
	"Your productivity peaks around 2 PM. Try scheduling your most challenging tasks during this time.",
	"I see you're working across multiple languages. This versatility is a great strength!",
	"Your commit frequency is healthy. Remember to take breaks between coding sessions.",
	"You have several repositories with good star counts. Consider adding more documentation to help others.",
}

type Options struct {
	Temperature   float32
	MaxTokens     int
	ChatMaxTokens int
}

type Synthesizer struct {
	client  llm.Client
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Synthesizer. A nil client selects the heuristic path for
// every call.
func New(client llm.Client, opts Options, logger *slog.Logger, m *metrics.Metrics) *Synthesizer {
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.ChatMaxTokens <= 0 {
		opts.ChatMaxTokens = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{client: client, opts: opts, logger: logger, metrics: m}
}

// Mode reports which strategy calls will try first.
func (s *Synthesizer) Mode() Mode {
	if s.client == nil {
		return ModeMock
	}
	return ModeAI
}

func (s *Synthesizer) Insights(ctx context.Context, sum *model.GitHubSummary) Outcome {
	if s.client == nil {
		s.metrics.InsightOutcome("insights", string(KindOK), "")
		return Outcome{Result: Heuristic(sum), Mode: ModeMock, Kind: KindOK}
	}

	prompt, err := insightPrompt(sum)
	if err == nil {
		var reply string
		reply, err = s.client.Complete(ctx, llm.Request{
			System:      insightSystemPrompt,
			Messages:    []model.ChatMessage{{Role: "user", Content: prompt}},
			Temperature: s.opts.Temperature,
			MaxTokens:   s.opts.MaxTokens,
		})
		if err == nil {
			var r model.InsightResult
			if r, err = parseInsights(reply); err == nil {
				s.metrics.InsightOutcome("insights", string(KindOK), "")
				return Outcome{Result: normalize(r), Mode: ModeAI, Kind: KindOK}
			}
		}
	}

	reason := reasonOf(err)
	s.logger.Warn("insights fell back to heuristic", "reason", reason, "error", err)
	s.metrics.InsightOutcome("insights", string(KindFallback), reason)

	return Outcome{Result: Heuristic(sum), Mode: ModeMock, Kind: KindFallback, Reason: reason}
}

// Chat answers one message. history is resent by the caller on every call;
// nothing is kept between requests. sum may be nil when no GitHub context is
// available.
func (s *Synthesizer) Chat(ctx context.Context, sum *model.GitHubSummary, message string, history []model.ChatMessage) ChatOutcome {
	if s.client == nil {
		s.metrics.InsightOutcome("chat", string(KindOK), "")
		return ChatOutcome{Reply: mockReply(message), Mode: ModeMock, Kind: KindOK}
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]model.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, model.ChatMessage{Role: "user", Content: message})

	reply, err := s.client.Complete(ctx, llm.Request{
		System:      chatSystemPrompt(sum),
		Messages:    msgs,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.ChatMaxTokens,
	})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		s.logger.Warn("chat fell back to canned reply", "error", err)
		s.metrics.InsightOutcome("chat", string(KindFallback), ReasonRequestFailed)
		return ChatOutcome{Reply: mockReply(message), Mode: ModeMock, Kind: KindFallback, Reason: ReasonRequestFailed}
	}

	s.metrics.InsightOutcome("chat", string(KindOK), "")
	return ChatOutcome{
		Reply: model.ChatReply{Response: strings.TrimSpace(reply), Suggestions: suggestions()},
		Mode:  ModeAI,
		Kind:  KindOK,
	}
}

// mockReply picks a canned answer by hashing the message, so the same
// question always gets the same answer.
func mockReply(message string) model.ChatReply {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return model.ChatReply{
		Response:    mockReplies[h.Sum32()%uint32(len(mockReplies))],
		Suggestions: suggestions(),
	}
}

func suggestions() []string {
	return append([]string(nil), chatSuggestions...)
}
