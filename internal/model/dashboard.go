package model

import "time"

// RepositorySummary is the normalized projection of one GitHub repository.
type RepositorySummary struct {
	Name        string    `json:"name"`
	FullName    string    `json:"fullName,omitempty"`
	Language    string    `json:"lang"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OpenIssues  int       `json:"issues"`
	Size        int       `json:"size"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated"`
	Private     bool      `json:"private"`
	Topics      []string  `json:"topics"`
	Archived    bool      `json:"archived"`
	Fork        bool      `json:"fork"`
}

// Stats are the dashboard totals.
type Stats struct {
	TotalPRs      int `json:"totalPRs"`
	OpenPRs       int `json:"openPRs"`
	MergedPRs     int `json:"mergedPRs"`
	ClosedPRs     int `json:"closedPRs"`
	TotalCommits  int `json:"totalCommits"`
	TotalRepos    int `json:"totalRepos"`
	TotalStars    int `json:"totalStars"`
	TotalForks    int `json:"totalForks"`
	Contributions int `json:"contributions"`
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// UserInfo is the profile block shown next to the dashboard.
type UserInfo struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// WeekContribution is one bar of the 52-week contribution graph.
// Week 0 is the oldest week.
type WeekContribution struct {
	Week          int `json:"week"`
	Contributions int `json:"contributions"`
}

// Dashboard is the view-model returned by GET /api/github/dashboard.
//
// Warning is set only when some upstream portion could not be fetched; the
// affected collections are then empty rather than missing.
type Dashboard struct {
	TopRepos          []RepositorySummary `json:"topRepos"`
	Stats             Stats               `json:"stats"`
	Languages         map[string]int      `json:"languages"`
	ContributionGraph []WeekContribution  `json:"contributionGraph"`
	RecentActivity    []ActivityEvent     `json:"recentActivity"`
	UserInfo          UserInfo            `json:"userInfo"`
	Warning           string              `json:"warning,omitempty"`
}

// RepositoryList is every fetched repository, most recently updated first.
// The HTTP layer sends Items as a bare array and Warning as a header.
type RepositoryList struct {
	Items   []RepositorySummary
	Warning string
}
