package domain

import "time"

// Well-known activity types. Type is a free-form tag; these are the ones
// the insight rules care about.
const (
	ActivityMood       = "mood"
	ActivityTherapy    = "therapy"
	ActivityGame       = "game"
	ActivityMeditation = "meditation"
	ActivityBreathing  = "breathing"
)

// Activity is one entry in a user's activity log. Created by a user action
// and never mutated afterwards.
type Activity struct {
	ID          ActivityID `json:"id"`
	UserID      UserID     `json:"userId"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Duration    int        `json:"duration,omitempty"`
	Completed   bool       `json:"completed"`
	MoodScore   *int       `json:"moodScore,omitempty"`
	MoodNote    string     `json:"moodNote,omitempty"`
}

// DailyStats is recomputed from today's activity slice on every read.
type DailyStats struct {
	MoodScore        *int      `json:"moodScore"`
	CompletionRate   int       `json:"completionRate"`
	MindfulnessCount int       `json:"mindfulnessCount"`
	TotalActivities  int       `json:"totalActivities"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// InsightPriority orders insights: lower sorts first.
type InsightPriority int

const (
	PriorityHigh InsightPriority = iota
	PriorityMedium
	PriorityLow
)

func (p InsightPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

func (p InsightPriority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Insight is a ranked observation derived from the trailing activity
// window. Never persisted.
type Insight struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Priority    InsightPriority `json:"priority"`
}
