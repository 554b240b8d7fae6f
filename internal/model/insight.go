package model

// InsightResult is the fixed schema returned by GET /api/ai/insights,
// regardless of whether it was computed heuristically or by the LLM.
type InsightResult struct {
	VitalityScore        VitalityScore        `json:"vitalityScore"`
	ProductivityScore    ProductivityScore    `json:"productivityScore"`
	BurnoutLevel         BurnoutLevel         `json:"burnoutLevel"`
	DeepWorkClock        DeepWorkClock        `json:"deepWorkClock"`
	FocusBalance         FocusBalance         `json:"focusBalance"`
	Recommendations      []Recommendation     `json:"recommendations"`
	CognitiveLoadPattern CognitiveLoadPattern `json:"cognitiveLoadPattern"`
	Insights             []string             `json:"insights"`
}

type VitalityScore struct {
	Score       int    `json:"score"`
	Trend       string `json:"trend"` // up | down | stable
	Explanation string `json:"explanation"`
}

type ProductivityScore struct {
	Score       int      `json:"score"`
	Factors     []string `json:"factors"`
	Explanation string   `json:"explanation"`
}

type BurnoutLevel struct {
	Level          int      `json:"level"`
	Risk           string   `json:"risk"` // low | medium | high
	Indicators     []string `json:"indicators"`
	Recommendation string   `json:"recommendation"`
}

type DeepWorkClock struct {
	PeakHours   []int  `json:"peakHours"`
	LowHours    []int  `json:"lowHours"`
	Explanation string `json:"explanation"`
}

// FocusBalance values are percentages in [0,100].
type FocusBalance struct {
	Features       int    `json:"features"`
	Reviews        int    `json:"reviews"`
	Refactor       int    `json:"refactor"`
	Testing        int    `json:"testing"`
	Documentation  int    `json:"documentation"`
	Bugfixes       int    `json:"bugfixes"`
	Recommendation string `json:"recommendation"`
}

type Recommendation struct {
	Priority string `json:"priority"` // high | medium | low
	Type     string `json:"type"`
	Message  string `json:"message"`
	Impact   string `json:"impact"`
}

// CognitiveLoadPattern.DailyPattern has seven entries, Monday first.
type CognitiveLoadPattern struct {
	DailyPattern []int   `json:"dailyPattern"`
	Trend        string  `json:"trend"`
	Alert        *string `json:"alert"`
}

// ChatMessage is one turn of caller-supplied chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the payload of POST /api/ai/chat.
type ChatReply struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}
