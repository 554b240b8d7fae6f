package insight

import (
	"encoding/json"
	"fmt"

	"github.com/devtrack/devtrack-server/internal/model"
)

const insightSystemPrompt = "You are a developer productivity expert AI assistant."

const insightSchema = `{
  "vitalityScore": {"score": 0-100, "trend": "up|down|stable", "explanation": "..."},
  "productivityScore": {"score": 0-100, "factors": ["..."], "explanation": "..."},
  "burnoutLevel": {"level": 0-100, "risk": "low|medium|high", "indicators": ["..."], "recommendation": "..."},
  "deepWorkClock": {"peakHours": [0-23], "lowHours": [0-23], "explanation": "..."},
  "focusBalance": {"features": 0-100, "reviews": 0-100, "refactor": 0-100, "testing": 0-100, "documentation": 0-100, "bugfixes": 0-100, "recommendation": "area to improve"},
  "recommendations": [{"priority": "high|medium|low", "type": "...", "message": "...", "impact": "..."}],
  "cognitiveLoadPattern": {"dailyPattern": [7 integers 0-100, Monday first], "trend": "increasing|decreasing|stable", "alert": "string or null"},
  "insights": ["..."]
}`

func insightPrompt(sum *model.GitHubSummary) (string, error) {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", fmt.Errorf("insight: encoding summary: %w", err)
	}
	return fmt.Sprintf(`Analyze the following GitHub activity data and provide productivity insights.

GitHub Data:
%s

Respond with JSON only, using exactly this structure (integers, not strings, for numbers):
%s

Be specific, actionable, and encouraging.`, data, insightSchema), nil
}

func chatSystemPrompt(sum *model.GitHubSummary) string {
	const coach = "You are an expert developer productivity coach. Provide helpful, specific, and encouraging advice."
	if sum == nil {
		return coach
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return coach
	}
	return coach + " The user's GitHub data: " + string(data)
}
