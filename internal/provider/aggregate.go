package provider

import (
	"sort"
	"strings"
	"time"

	"github.com/devtrack/devtrack-server/internal/model"
)

const (
	recentActivityLimit = 20
	summaryEventLimit   = 30
	graphWeeks          = 52
	calendarDays        = 365
	topDaysLimit        = 5
)

// snapshot is the normalized upstream data one operation works from. Each
// fetch task writes only its own fields.
type snapshot struct {
	user         model.UserInfo
	repos        []model.RepositorySummary
	events       []model.ActivityEvent
	openPRs      int
	closedPRs    int // includes merged
	mergedPRs    int
	totalCommits int
	warnings     []string
}

// assembler owns every derivation from a snapshot to a view-model. Both
// providers use it, which keeps mock and real output structurally identical.
type assembler struct {
	now      func() time.Time
	topRepos int
}

func (a assembler) dashboard(s *snapshot) *model.Dashboard {
	current, longest := streaks(s.events)

	closed := s.closedPRs - s.mergedPRs
	if closed < 0 {
		closed = 0
	}
	totalPRs := s.openPRs + s.closedPRs

	stats := model.Stats{
		TotalPRs:      totalPRs,
		OpenPRs:       s.openPRs,
		MergedPRs:     s.mergedPRs,
		ClosedPRs:     closed,
		TotalCommits:  s.totalCommits,
		TotalRepos:    len(s.repos),
		Contributions: s.totalCommits + totalPRs,
		CurrentStreak: current,
		LongestStreak: longest,
	}
	for _, r := range s.repos {
		stats.TotalStars += r.Stars
		stats.TotalForks += r.Forks
	}

	top := s.repos
	if len(top) > a.topRepos {
		top = top[:a.topRepos]
	}

	recent := s.events
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}

	return &model.Dashboard{
		TopRepos:          nonNilRepos(top),
		Stats:             stats,
		Languages:         languageHistogram(s.repos),
		ContributionGraph: contributionGraph(s.events, a.now()),
		RecentActivity:    nonNilEvents(recent),
		UserInfo:          s.user,
		Warning:           warningText(s.warnings),
	}
}

func (a assembler) activity(s *snapshot) *model.ActivityReport {
	return &model.ActivityReport{
		Activities:           nonNilEvents(s.events),
		WeeklyStats:          weeklyStats(s.events, a.now()),
		ContributionCalendar: contributionCalendar(s.events, a.now()),
		TopContributionDays:  topContributionDays(s.events),
		Warning:              warningText(s.warnings),
	}
}

func (a assembler) repositories(s *snapshot) *model.RepositoryList {
	return &model.RepositoryList{
		Items:   nonNilRepos(s.repos),
		Warning: warningText(s.warnings),
	}
}

func (a assembler) summary(s *snapshot) *model.GitHubSummary {
	sum := &model.GitHubSummary{
		User: model.SummaryUser{
			Login:       s.user.Login,
			Name:        s.user.Name,
			Bio:         s.user.Bio,
			PublicRepos: s.user.PublicRepos,
			Followers:   s.user.Followers,
			Following:   s.user.Following,
		},
		Repos: model.SummaryRepos{
			Total:     len(s.repos),
			Languages: languageHistogram(s.repos),
			Sizes:     make([]model.RepoSize, 0, len(s.repos)),
		},
		Activity: model.SummaryActivity{
			RecentEvents:  make([]model.SummaryEvent, 0, summaryEventLimit),
			CommitsByDay:  make(map[string]int),
			ActivityTypes: make(map[string]int),
			TotalEvents:   len(s.events),
		},
		Warning: warningText(s.warnings),
	}

	for _, r := range s.repos {
		sum.Repos.Stars += r.Stars
		sum.Repos.Forks += r.Forks
		sum.Repos.Sizes = append(sum.Repos.Sizes, model.RepoSize{Name: r.Name, Size: r.Size})
	}

	for i, e := range s.events {
		if i < summaryEventLimit {
			sum.Activity.RecentEvents = append(sum.Activity.RecentEvents, model.SummaryEvent{
				Type: e.RawType,
				Date: e.Time.UTC().Format(time.RFC3339),
				Repo: e.Repo,
			})
		}
		sum.Activity.ActivityTypes[e.RawType]++

		if n := e.CommitCount(); n > 0 {
			t := e.Time.UTC()
			sum.Activity.CommitsByDay[t.Format(time.DateOnly)] += n
			sum.Activity.CommitsByHour[t.Hour()] += n
		}
	}

	return sum
}

// languageHistogram counts repositories per primary language. Repositories
// without a language are skipped, so the values sum to the number of
// repositories that have one.
func languageHistogram(repos []model.RepositorySummary) map[string]int {
	langs := make(map[string]int)
	for _, r := range repos {
		if r.Language != "" {
			langs[r.Language]++
		}
	}
	return langs
}

// sortRepos orders most recently updated first.
func sortRepos(repos []model.RepositorySummary) {
	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].UpdatedAt.After(repos[j].UpdatedAt)
	})
}

// contribution is what one event adds to the calendar: its commits for a
// push, one for a pull request or issue, nothing otherwise.
func contribution(e model.ActivityEvent) int {
	switch e.Type {
	case model.EventPush:
		return e.CommitCount()
	case model.EventPullRequest, model.EventIssue:
		return 1
	default:
		return 0
	}
}

func weeklyStats(events []model.ActivityEvent, now time.Time) model.WeeklyStats {
	cutoff := now.Add(-7 * day)

	var ws model.WeeklyStats
	for _, e := range events {
		if !e.Time.After(cutoff) {
			continue
		}
		switch e.Type {
		case model.EventPush:
			ws.Commits += e.CommitCount()
			if e.Additions != nil {
				ws.Additions += *e.Additions
			}
			if e.Deletions != nil {
				ws.Deletions += *e.Deletions
			}
		case model.EventPullRequest:
			switch {
			case e.Action == "opened":
				ws.PRsOpened++
			case e.Action == "closed" && e.Merged:
				ws.PRsMerged++
			}
		case model.EventIssue:
			switch e.Action {
			case "opened":
				ws.IssuesOpened++
			case "closed":
				ws.IssuesClosed++
			}
		}
	}
	return ws
}

// contributionGraph buckets the last 52 weeks. Week 0 is the oldest and
// week 51 ends today.
func contributionGraph(events []model.ActivityEvent, now time.Time) []model.WeekContribution {
	graph := make([]model.WeekContribution, graphWeeks)
	for i := range graph {
		graph[i].Week = i
	}

	today := truncateDay(now)
	for _, e := range events {
		age := int(today.Sub(truncateDay(e.Time)) / day)
		if age < 0 || age >= graphWeeks*7 {
			continue
		}
		graph[graphWeeks-1-age/7].Contributions += contribution(e)
	}
	return graph
}

// contributionCalendar has one entry per UTC day for the last 365 days,
// oldest first, ending today.
func contributionCalendar(events []model.ActivityEvent, now time.Time) []model.CalendarDay {
	today := truncateDay(now)
	first := today.Add(-(calendarDays - 1) * day)

	counts := make(map[time.Time]int)
	for _, e := range events {
		d := truncateDay(e.Time)
		if d.Before(first) || d.After(today) {
			continue
		}
		counts[d] += contribution(e)
	}

	cal := make([]model.CalendarDay, calendarDays)
	for i := range cal {
		d := first.Add(time.Duration(i) * day)
		cal[i] = model.CalendarDay{Date: d.Format(time.DateOnly), Count: counts[d]}
	}
	return cal
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// topContributionDays ranks weekdays by pushed commits. Ties keep Monday-first
// order.
func topContributionDays(events []model.ActivityEvent) []model.DayContribution {
	byDay := make(map[time.Weekday]int, 7)
	for _, e := range events {
		byDay[e.Time.UTC().Weekday()] += e.CommitCount()
	}

	days := make([]model.DayContribution, 0, len(weekdayOrder))
	for _, wd := range weekdayOrder {
		days = append(days, model.DayContribution{Day: wd.String(), Commits: byDay[wd]})
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Commits > days[j].Commits })

	return days[:topDaysLimit]
}

func warningText(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "Some GitHub data could not be loaded (" + strings.Join(parts, ", ") + "). Showing partial results."
}

func nonNilRepos(r []model.RepositorySummary) []model.RepositorySummary {
	if r == nil {
		return []model.RepositorySummary{}
	}
	return r
}

func nonNilEvents(e []model.ActivityEvent) []model.ActivityEvent {
	if e == nil {
		return []model.ActivityEvent{}
	}
	return e
}
