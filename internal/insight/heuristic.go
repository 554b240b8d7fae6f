package insight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/devtrack/devtrack-server/internal/model"
)

// windowDays is the period burnout consistency is measured over.
const windowDays = 30

// defaultPeakHour is used when there is no commit history to look at.
const defaultPeakHour = 14

// baselinePattern is the Monday-first cognitive load curve used when no
// commit dates are available.
var baselinePattern = []int{45, 60, 75, 80, 65, 30, 20}

// summaryMetrics are the numbers every heuristic formula starts from.
type summaryMetrics struct {
	totalRepos   int
	totalStars   int
	topLanguages []string
	totalCommits int
	commitDays   int
	avgPerDay    float64
	peakHour     int
}

func measure(sum *model.GitHubSummary) summaryMetrics {
	m := summaryMetrics{
		totalRepos:   sum.Repos.Total,
		totalStars:   sum.Repos.Stars,
		topLanguages: topLanguages(sum.Repos.Languages, 3),
		commitDays:   len(sum.Activity.CommitsByDay),
		peakHour:     peakHour(sum.Activity.CommitsByHour),
	}
	for _, n := range sum.Activity.CommitsByDay {
		m.totalCommits += n
	}
	m.avgPerDay = float64(m.totalCommits) / float64(max(1, m.commitDays))
	return m
}

// Heuristic computes an InsightResult from deterministic formulas.
func Heuristic(sum *model.GitHubSummary) model.InsightResult {
	if sum == nil {
		sum = &model.GitHubSummary{}
	}
	m := measure(sum)

	productivity := clamp(int(math.Round(
		float64(m.totalRepos)*2 +
			float64(m.totalStars)*0.5 +
			m.avgPerDay*5 +
			float64(len(m.topLanguages))*5,
	)))

	consistency := float64(m.commitDays) / windowDays * 100
	burnoutRaw := 100 - consistency
	if m.avgPerDay > 10 {
		burnoutRaw += 20
	}
	burnout := clamp(int(math.Round(burnoutRaw)))

	primary := "various technologies"
	if len(m.topLanguages) > 0 {
		primary = m.topLanguages[0]
	}

	velocity := "good"
	if m.avgPerDay > 3 {
		velocity = "excellent"
	}

	var alert *string
	if burnout > 70 {
		s := "Warning: High workload detected in recent weeks. Consider reducing intensity."
		alert = &s
	}

	r := model.InsightResult{
		VitalityScore: model.VitalityScore{
			Score:       productivity,
			Trend:       trendFor(m.avgPerDay),
			Explanation: fmt.Sprintf("Based on your %d repositories and %d recent commits, you're showing %s development velocity.", m.totalRepos, m.totalCommits, velocity),
		},
		ProductivityScore: model.ProductivityScore{
			Score: productivity,
			Factors: []string{
				fmt.Sprintf("Active in %d languages", len(m.topLanguages)),
				fmt.Sprintf("%d repositories maintained", m.totalRepos),
				fmt.Sprintf("%d total stars earned", m.totalStars),
				fmt.Sprintf("%d avg commits/day", int(math.Round(m.avgPerDay))),
			},
			Explanation: fmt.Sprintf("Your productivity is %s. You're consistently contributing across multiple projects with focus on %s.", productivityWord(productivity), primary),
		},
		BurnoutLevel: model.BurnoutLevel{
			Level:          burnout,
			Risk:           riskFor(burnout),
			Indicators:     burnoutIndicators(burnout, m.avgPerDay, consistency),
			Recommendation: burnoutAdvice(burnout),
		},
		DeepWorkClock: model.DeepWorkClock{
			PeakHours:   []int{m.peakHour, (m.peakHour + 1) % 24, (m.peakHour + 2) % 24},
			LowHours:    []int{(m.peakHour + 12) % 24, (m.peakHour + 13) % 24, (m.peakHour + 14) % 24},
			Explanation: fmt.Sprintf("Your most productive hours are around %d:00. Consider scheduling complex tasks during this window.", m.peakHour),
		},
		FocusBalance: focusBalance(),
		Recommendations: []model.Recommendation{
			qualityRecommendation(burnout),
			{
				Priority: "medium",
				Type:     "Productivity",
				Message:  fmt.Sprintf("Schedule deep work sessions during %d:00-%d:00", m.peakHour, (m.peakHour+2)%24),
				Impact:   "Maximize output during peak performance hours",
			},
			{
				Priority: "medium",
				Type:     "Best Practice",
				Message:  fmt.Sprintf("Add more documentation to your %s projects", primaryOr(m.topLanguages, "main")),
				Impact:   "Improved collaboration and project maintainability",
			},
			healthRecommendation(m.avgPerDay),
		},
		CognitiveLoadPattern: model.CognitiveLoadPattern{
			DailyPattern: dailyPattern(sum.Activity.CommitsByDay),
			Trend:        "stable",
			Alert:        alert,
		},
		Insights: []string{
			fmt.Sprintf("🎯 You're most productive in %s with %d repositories", primaryOr(m.topLanguages, "your primary language"), sum.Repos.Languages[primaryOr(m.topLanguages, "")]),
			fmt.Sprintf("⭐ Your work has earned %d stars from the community", m.totalStars),
			fmt.Sprintf("📊 Average of %d commits per day shows %s activity", int(math.Round(m.avgPerDay)), activityWord(m.avgPerDay)),
			fmt.Sprintf("🕐 Peak productivity detected around %d:00 - plan important tasks accordingly", m.peakHour),
			burnoutInsight(burnout),
		},
	}

	return normalize(r)
}

// topLanguages returns up to n languages by repository count, ties by name.
func topLanguages(langs map[string]int, n int) []string {
	names := make([]string, 0, len(langs))
	for name, count := range langs {
		if count > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if langs[names[i]] != langs[names[j]] {
			return langs[names[i]] > langs[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// peakHour is the first hour holding the maximum commit count.
func peakHour(byHour [24]int) int {
	best, bestCount := defaultPeakHour, 0
	for h, n := range byHour {
		if n > bestCount {
			best, bestCount = h, n
		}
	}
	return best
}

// dailyPattern turns commits per date into a Monday-first weekday load
// curve scaled so the busiest weekday is 100.
func dailyPattern(byDay map[string]int) []int {
	var totals [7]int
	peak := 0
	for date, n := range byDay {
		d, err := time.Parse(time.DateOnly, date)
		if err != nil || n <= 0 {
			continue
		}
		idx := (int(d.Weekday()) + 6) % 7 // Monday = 0
		totals[idx] += n
		peak = max(peak, totals[idx])
	}

	if peak == 0 {
		return append([]int(nil), baselinePattern...)
	}

	out := make([]int, 7)
	for i, n := range totals {
		out[i] = int(math.Round(float64(n) * 100 / float64(peak)))
	}
	return out
}

// focusBalance has no signal in the summary, so the split is fixed and the
// recommendation names the weakest area.
func focusBalance() model.FocusBalance {
	fb := model.FocusBalance{
		Features:      75,
		Reviews:       45,
		Refactor:      60,
		Testing:       35,
		Documentation: 25,
		Bugfixes:      55,
	}
	fb.Recommendation = weakestArea(fb)
	return fb
}

func weakestArea(fb model.FocusBalance) string {
	areas := []struct {
		name  string
		value int
	}{
		{"features", fb.Features},
		{"reviews", fb.Reviews},
		{"refactor", fb.Refactor},
		{"testing", fb.Testing},
		{"documentation", fb.Documentation},
		{"bugfixes", fb.Bugfixes},
	}
	weakest := areas[0]
	for _, a := range areas[1:] {
		if a.value < weakest.value {
			weakest = a
		}
	}
	return weakest.name
}

func trendFor(avg float64) string {
	switch {
	case avg > 3:
		return "up"
	case avg > 1:
		return "stable"
	default:
		return "down"
	}
}

func riskFor(level int) string {
	switch {
	case level > 70:
		return "high"
	case level > 40:
		return "medium"
	default:
		return "low"
	}
}

func productivityWord(score int) string {
	switch {
	case score > 80:
		return "excellent"
	case score > 60:
		return "strong"
	default:
		return "moderate"
	}
}

func activityWord(avg float64) string {
	if avg > 5 {
		return "high"
	}
	return "consistent"
}

func burnoutIndicators(level int, avg, consistency float64) []string {
	out := make([]string, 0, 3)
	if level > 70 {
		out = append(out, "Irregular commit patterns detected")
	} else {
		out = append(out, "Consistent contribution rhythm")
	}
	if avg > 10 {
		out = append(out, "High daily commit volume")
	} else {
		out = append(out, "Sustainable pace")
	}
	if consistency < 50 {
		out = append(out, "Sporadic activity periods")
	} else {
		out = append(out, "Regular engagement")
	}
	return out
}

func burnoutAdvice(level int) string {
	switch {
	case level > 70:
		return "Consider taking scheduled breaks and spreading work more evenly throughout the week."
	case level > 40:
		return "Maintain your current pace and ensure adequate rest between intense coding sessions."
	default:
		return "Great balance! Continue your sustainable development rhythm."
	}
}

func burnoutInsight(level int) string {
	switch {
	case level > 70:
		return "⚠️ Current burnout risk is high - consider adjusting pace"
	case level > 40:
		return "⚠️ Current burnout risk is moderate - consider adjusting pace"
	default:
		return "✅ Current burnout risk is low - great balance!"
	}
}

func qualityRecommendation(burnout int) model.Recommendation {
	if burnout > 60 {
		return model.Recommendation{
			Priority: "high",
			Type:     "Health",
			Message:  "Take a break - detected potential burnout indicators",
			Impact:   "Improved mental health and long-term productivity",
		}
	}
	return model.Recommendation{
		Priority: "high",
		Type:     "Code Quality",
		Message:  "Increase test coverage in your repositories",
		Impact:   "Better code reliability and fewer bugs",
	}
}

func healthRecommendation(avg float64) model.Recommendation {
	msg := "Maintain your sustainable development pace"
	if avg > 8 {
		msg = "Consider shorter, more focused coding sessions"
	}
	return model.Recommendation{
		Priority: "low",
		Type:     "Health",
		Message:  msg,
		Impact:   "Better work-life balance and sustained productivity",
	}
}

func primaryOr(langs []string, fallback string) string {
	if len(langs) > 0 {
		return langs[0]
	}
	return fallback
}

func clamp(v int) int {
	return min(100, max(0, v))
}
