package model

import "time"

// EventType is the normalized kind of an ActivityEvent.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
	EventIssue       EventType = "issue"
	EventCreate      EventType = "create"
	EventRelease     EventType = "release"
	EventOther       EventType = "other"
)

// ActivityEvent is the normalized projection of one GitHub event.
//
// Only the fields relevant to Type are set:
//   - push:               Commits (always >= 0), optionally Additions/Deletions
//   - pull_request/issue: Action, Number
//   - create:             RefType
//   - release:            Tag
type ActivityEvent struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	RawType   string    `json:"rawType"`
	Repo      string    `json:"repo"`
	Message   string    `json:"msg"`
	Time      time.Time `json:"time"`
	Commits   *int      `json:"commits,omitempty"`
	Additions *int      `json:"additions,omitempty"`
	Deletions *int      `json:"deletions,omitempty"`
	Action    string    `json:"action,omitempty"`
	Merged    bool      `json:"merged,omitempty"`
	Number    *int      `json:"number,omitempty"`
	RefType   string    `json:"refType,omitempty"`
	Tag       string    `json:"tag,omitempty"`
}

// CommitCount returns the number of commits a push carried, 0 for other types.
func (e ActivityEvent) CommitCount() int {
	if e.Type != EventPush || e.Commits == nil {
		return 0
	}
	return *e.Commits
}

// WeeklyStats summarizes the last seven days of activity.
type WeeklyStats struct {
	Commits      int `json:"commits"`
	PRsOpened    int `json:"prsOpened"`
	PRsMerged    int `json:"prsMerged"`
	IssuesOpened int `json:"issuesOpened"`
	IssuesClosed int `json:"issuesClosed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// CalendarDay is one cell of the contribution calendar (date as YYYY-MM-DD, UTC).
type CalendarDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DayContribution is the commit total for one weekday.
type DayContribution struct {
	Day     string `json:"day"`
	Commits int    `json:"commits"`
}

// ActivityReport is the view-model returned by GET /api/github/activity.
type ActivityReport struct {
	Activities           []ActivityEvent   `json:"activities"`
	WeeklyStats          WeeklyStats       `json:"weeklyStats"`
	ContributionCalendar []CalendarDay     `json:"contributionCalendar"`
	TopContributionDays  []DayContribution `json:"topContributionDays"`
	Warning              string            `json:"warning,omitempty"`
}
