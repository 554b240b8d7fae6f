package model

// GitHubSummary is the condensed view of an account that feeds the insight
// synthesizer. It is serialized verbatim into LLM prompts, so JSON names are
// kept short and descriptive.
type GitHubSummary struct {
	User     SummaryUser     `json:"user"`
	Repos    SummaryRepos    `json:"repos"`
	Activity SummaryActivity `json:"activity"`
	Warning  string          `json:"-"`
}

type SummaryUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

type RepoSize struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type SummaryRepos struct {
	Total     int            `json:"total"`
	Languages map[string]int `json:"languages"`
	Stars     int            `json:"stars"`
	Forks     int            `json:"forks"`
	Sizes     []RepoSize     `json:"sizes"`
}

type SummaryEvent struct {
	Type string `json:"type"`
	Date string `json:"date"`
	Repo string `json:"repo"`
}

// SummaryActivity holds the commit histograms. CommitsByDay is keyed by UTC
// date (YYYY-MM-DD); CommitsByHour is indexed by UTC hour.
type SummaryActivity struct {
	RecentEvents  []SummaryEvent `json:"recentEvents"`
	CommitsByDay  map[string]int `json:"commitsByDay"`
	CommitsByHour [24]int        `json:"commitsByHour"`
	ActivityTypes map[string]int `json:"activityTypes"`
	TotalEvents   int            `json:"totalEvents"`
}
