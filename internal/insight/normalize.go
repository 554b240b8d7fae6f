package insight

import "github.com/devtrack/devtrack-server/internal/model"

// normalize makes any InsightResult, heuristic or generated, satisfy the
// same contract: scores in [0,100], known enum values, exactly seven daily
// pattern entries, hours in [0,23] and non-nil slices so the JSON key set
// never changes.
func normalize(r model.InsightResult) model.InsightResult {
	r.VitalityScore.Score = clamp(r.VitalityScore.Score)
	r.VitalityScore.Trend = oneOf(r.VitalityScore.Trend, "stable", "up", "down", "stable")

	r.ProductivityScore.Score = clamp(r.ProductivityScore.Score)
	r.ProductivityScore.Factors = nonNil(r.ProductivityScore.Factors)

	r.BurnoutLevel.Level = clamp(r.BurnoutLevel.Level)
	r.BurnoutLevel.Risk = oneOf(r.BurnoutLevel.Risk, riskFor(r.BurnoutLevel.Level), "low", "medium", "high")
	r.BurnoutLevel.Indicators = nonNil(r.BurnoutLevel.Indicators)

	r.DeepWorkClock.PeakHours = hours(r.DeepWorkClock.PeakHours)
	r.DeepWorkClock.LowHours = hours(r.DeepWorkClock.LowHours)

	fb := &r.FocusBalance
	fb.Features = clamp(fb.Features)
	fb.Reviews = clamp(fb.Reviews)
	fb.Refactor = clamp(fb.Refactor)
	fb.Testing = clamp(fb.Testing)
	fb.Documentation = clamp(fb.Documentation)
	fb.Bugfixes = clamp(fb.Bugfixes)
	if fb.Recommendation == "" {
		fb.Recommendation = weakestArea(*fb)
	}

	if r.Recommendations == nil {
		r.Recommendations = []model.Recommendation{}
	}
	for i := range r.Recommendations {
		r.Recommendations[i].Priority = oneOf(r.Recommendations[i].Priority, "medium", "high", "medium", "low")
	}

	r.CognitiveLoadPattern.DailyPattern = weekPattern(r.CognitiveLoadPattern.DailyPattern)
	r.CognitiveLoadPattern.Trend = oneOf(r.CognitiveLoadPattern.Trend, "stable", "increasing", "decreasing", "stable")
	if a := r.CognitiveLoadPattern.Alert; a != nil && *a == "" {
		r.CognitiveLoadPattern.Alert = nil
	}

	r.Insights = nonNil(r.Insights)

	return r
}

// oneOf returns v if it is in allowed, otherwise fallback.
func oneOf(v, fallback string, allowed ...string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func hours(h []int) []int {
	out := make([]int, 0, len(h))
	for _, v := range h {
		if v >= 0 && v < 24 {
			out = append(out, v)
		}
	}
	return out
}

func weekPattern(p []int) []int {
	out := make([]int, 7)
	for i := range out {
		if i < len(p) {
			out[i] = clamp(p[i])
		}
	}
	return out
}
