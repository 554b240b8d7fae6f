package provider

import (
	"testing"
	"time"

	"github.com/devtrack/devtrack-server/internal/model"
)

var testNow = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC) // a Saturday

func push(at time.Time, commits int) model.ActivityEvent {
	return model.ActivityEvent{Type: model.EventPush, RawType: "PushEvent", Time: at, Commits: intPtr(commits)}
}

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * day)
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name        string
		events      []model.ActivityEvent
		wantCurrent int
		wantLongest int
	}{
		{"no events", nil, 0, 0},
		{"single day, several events", []model.ActivityEvent{push(daysAgo(0), 1), push(daysAgo(0).Add(-time.Hour), 1)}, 1, 1},
		{
			name:        "current run then gap then longer run",
			events:      []model.ActivityEvent{push(daysAgo(0), 1), push(daysAgo(1), 1), push(daysAgo(3), 1), push(daysAgo(4), 1), push(daysAgo(5), 1), push(daysAgo(6), 1)},
			wantCurrent: 2,
			wantLongest: 4,
		},
		{
			name:        "current run starts at most recent active date",
			events:      []model.ActivityEvent{push(daysAgo(10), 1), push(daysAgo(11), 1), push(daysAgo(12), 1)},
			wantCurrent: 3,
			wantLongest: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, longest := streaks(tt.events)
			if cur != tt.wantCurrent || longest != tt.wantLongest {
				t.Errorf("streaks() = (%d, %d), want (%d, %d)", cur, longest, tt.wantCurrent, tt.wantLongest)
			}
		})
	}
}

func TestStreaks_UTCDays(t *testing.T) {
	// 23:30 and 00:30 UTC are consecutive calendar days even though they
	// are an hour apart.
	late := time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 6, 15, 0, 30, 0, 0, time.UTC)

	cur, _ := streaks([]model.ActivityEvent{push(early, 1), push(late, 1)})
	if cur != 2 {
		t.Errorf("current = %d, want 2", cur)
	}
}

func TestDashboard_Derivations(t *testing.T) {
	asm := assembler{now: func() time.Time { return testNow }, topRepos: 2}

	s := &snapshot{
		repos: []model.RepositorySummary{
			{Name: "a", Language: "Go", Stars: 3, Forks: 1, UpdatedAt: daysAgo(1)},
			{Name: "b", Language: "Go", Stars: 2, UpdatedAt: daysAgo(2)},
			{Name: "c", Language: "", Stars: 1, Forks: 4, UpdatedAt: daysAgo(3)},
		},
		events:       []model.ActivityEvent{push(daysAgo(0), 2), push(daysAgo(1), 3)},
		openPRs:      2,
		closedPRs:    5,
		mergedPRs:    4,
		totalCommits: 40,
	}

	d := asm.dashboard(s)

	if d.Stats.TotalRepos != 3 {
		t.Errorf("TotalRepos = %d, want 3", d.Stats.TotalRepos)
	}
	if d.Stats.TotalStars != 6 || d.Stats.TotalForks != 5 {
		t.Errorf("stars/forks = %d/%d, want 6/5", d.Stats.TotalStars, d.Stats.TotalForks)
	}
	if d.Stats.TotalPRs != 7 || d.Stats.MergedPRs != 4 || d.Stats.ClosedPRs != 1 || d.Stats.OpenPRs != 2 {
		t.Errorf("PR stats = %+v", d.Stats)
	}
	if d.Stats.Contributions != 47 {
		t.Errorf("Contributions = %d, want 47", d.Stats.Contributions)
	}
	if d.Stats.CurrentStreak != 2 || d.Stats.LongestStreak != 2 {
		t.Errorf("streaks = %d/%d, want 2/2", d.Stats.CurrentStreak, d.Stats.LongestStreak)
	}
	if len(d.TopRepos) != 2 || d.TopRepos[0].Name != "a" {
		t.Errorf("TopRepos = %+v", d.TopRepos)
	}
	if d.Languages["Go"] != 2 || len(d.Languages) != 1 {
		t.Errorf("Languages = %v, want {Go:2}", d.Languages)
	}
	if len(d.ContributionGraph) != graphWeeks || d.ContributionGraph[graphWeeks-1].Contributions != 5 {
		t.Errorf("last graph week = %+v", d.ContributionGraph[graphWeeks-1])
	}
	if d.Warning != "" {
		t.Errorf("Warning = %q, want empty", d.Warning)
	}
}

func TestDashboard_ClosedNeverNegative(t *testing.T) {
	asm := assembler{now: func() time.Time { return testNow }, topRepos: 6}

	d := asm.dashboard(&snapshot{closedPRs: 1, mergedPRs: 3})
	if d.Stats.ClosedPRs != 0 {
		t.Errorf("ClosedPRs = %d, want 0", d.Stats.ClosedPRs)
	}
	if d.TopRepos == nil || d.RecentActivity == nil || d.Languages == nil {
		t.Error("empty dashboard collections must be non-nil")
	}
}

func TestActivity_Derivations(t *testing.T) {
	asm := assembler{now: func() time.Time { return testNow }, topRepos: 6}

	events := []model.ActivityEvent{
		{Type: model.EventPush, Time: daysAgo(1), Commits: intPtr(4), Additions: intPtr(10), Deletions: intPtr(3)},
		{Type: model.EventPullRequest, Time: daysAgo(2), Action: "opened"},
		{Type: model.EventPullRequest, Time: daysAgo(2), Action: "closed", Merged: true},
		{Type: model.EventPullRequest, Time: daysAgo(2), Action: "closed"},
		{Type: model.EventIssue, Time: daysAgo(3), Action: "opened"},
		{Type: model.EventIssue, Time: daysAgo(3), Action: "closed"},
		{Type: model.EventPush, Time: daysAgo(20), Commits: intPtr(9)},
	}

	r := asm.activity(&snapshot{events: events})

	want := model.WeeklyStats{Commits: 4, PRsOpened: 1, PRsMerged: 1, IssuesOpened: 1, IssuesClosed: 1, Additions: 10, Deletions: 3}
	if r.WeeklyStats != want {
		t.Errorf("WeeklyStats = %+v, want %+v", r.WeeklyStats, want)
	}

	if len(r.ContributionCalendar) != calendarDays {
		t.Fatalf("calendar length = %d, want %d", len(r.ContributionCalendar), calendarDays)
	}
	last := r.ContributionCalendar[calendarDays-1]
	if last.Date != "2024-06-15" {
		t.Errorf("last calendar date = %q, want today", last.Date)
	}
	if got := r.ContributionCalendar[calendarDays-2]; got.Count != 4 {
		t.Errorf("yesterday count = %d, want 4", got.Count)
	}

	if len(r.TopContributionDays) != topDaysLimit {
		t.Fatalf("TopContributionDays length = %d", len(r.TopContributionDays))
	}
	// daysAgo(20) is a Sunday with 9 commits, daysAgo(1) a Friday with 4.
	if r.TopContributionDays[0].Day != "Sunday" || r.TopContributionDays[1].Day != "Friday" {
		t.Errorf("TopContributionDays = %+v", r.TopContributionDays)
	}
}

func TestSummary_Histograms(t *testing.T) {
	asm := assembler{now: func() time.Time { return testNow }, topRepos: 6}

	at := time.Date(2024, 6, 14, 9, 15, 0, 0, time.UTC)
	s := &snapshot{
		user:  model.UserInfo{Login: "octocat"},
		repos: []model.RepositorySummary{{Name: "a", Language: "Go", Stars: 2, Size: 10}},
		events: []model.ActivityEvent{
			push(at, 3),
			{Type: model.EventOther, RawType: "WatchEvent", Time: at},
		},
	}

	sum := asm.summary(s)

	if sum.User.Login != "octocat" || sum.Repos.Total != 1 || sum.Repos.Stars != 2 {
		t.Errorf("summary header = %+v / %+v", sum.User, sum.Repos)
	}
	if sum.Activity.CommitsByDay["2024-06-14"] != 3 || sum.Activity.CommitsByHour[9] != 3 {
		t.Errorf("commit histograms = %v / %v", sum.Activity.CommitsByDay, sum.Activity.CommitsByHour)
	}
	if sum.Activity.ActivityTypes["PushEvent"] != 1 || sum.Activity.ActivityTypes["WatchEvent"] != 1 {
		t.Errorf("ActivityTypes = %v", sum.Activity.ActivityTypes)
	}
	if sum.Activity.TotalEvents != 2 || len(sum.Activity.RecentEvents) != 2 {
		t.Errorf("events = %d / %d", sum.Activity.TotalEvents, len(sum.Activity.RecentEvents))
	}
}

func TestWarningText(t *testing.T) {
	if got := warningText(nil); got != "" {
		t.Errorf("warningText(nil) = %q", got)
	}
	got := warningText([]string{"events", "repositories"})
	want := "Some GitHub data could not be loaded (events, repositories). Showing partial results."
	if got != want {
		t.Errorf("warningText() = %q, want %q", got, want)
	}
}
