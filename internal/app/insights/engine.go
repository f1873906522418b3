package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

const (
	insightWindowDays = 7
	maxInsights       = 3

	moodDipMargin       = 20
	highAchievementRate = 80
	lowAchievementRate  = 50
	morningCutoffHour   = 12
	eveningStartHour    = 18
	dailyPracticeTarget = 1
)

// Engine derives daily statistics and ranked behavioral insights from a
// user's activity log. Pure over its input; the clock is injectable for
// window computation in tests.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt pins the engine's clock.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// DailyStats recomputes today's statistics from the activity log.
func (e *Engine) DailyStats(activities []*domain.Activity) domain.DailyStats {
	now := e.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfToday := startOfToday.Add(24 * time.Hour)

	var todays []*domain.Activity
	for _, a := range activities {
		if !a.Timestamp.Before(startOfToday) && a.Timestamp.Before(endOfToday) {
			todays = append(todays, a)
		}
	}

	var moodScore *int
	var moodSum, moodCount int
	therapyCount := 0
	for _, a := range todays {
		if a.Type == domain.ActivityMood && a.MoodScore != nil {
			moodSum += *a.MoodScore
			moodCount++
		}
		if a.Type == domain.ActivityTherapy {
			therapyCount++
		}
	}
	if moodCount > 0 {
		avg := int(math.Round(float64(moodSum) / float64(moodCount)))
		moodScore = &avg
	}

	return domain.DailyStats{
		MoodScore:        moodScore,
		CompletionRate:   100, // not derived yet
		MindfulnessCount: therapyCount,
		TotalActivities:  len(todays),
		LastUpdated:      now,
	}
}

// RankedInsights evaluates each insight rule over the trailing 7-day
// window, sorts by priority (stable, generation order breaks ties) and
// keeps the top three.
func (e *Engine) RankedInsights(activities []*domain.Activity) []domain.Insight {
	now := e.now()
	windowStart := now.AddDate(0, 0, -insightWindowDays)

	var recent []*domain.Activity
	for _, a := range activities {
		if !a.Timestamp.Before(windowStart) {
			recent = append(recent, a)
		}
	}

	var insights []domain.Insight
	insights = appendMoodTrend(insights, recent)
	insights = appendMindfulness(insights, recent)
	insights = appendAchievement(insights, recent)
	insights = appendDayRhythm(insights, recent)

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority < insights[j].Priority
	})
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// appendMoodTrend fires at most one of the two mood insights: improvement
// when the latest score beats the window mean, dip when it sits more than
// 20 points below it.
func appendMoodTrend(insights []domain.Insight, recent []*domain.Activity) []domain.Insight {
	var moods []*domain.Activity
	for _, a := range recent {
		if a.Type == domain.ActivityMood && a.MoodScore != nil {
			moods = append(moods, a)
		}
	}
	if len(moods) < 2 {
		return insights
	}

	sort.SliceStable(moods, func(i, j int) bool {
		return moods[i].Timestamp.Before(moods[j].Timestamp)
	})

	sum := 0
	for _, m := range moods {
		sum += *m.MoodScore
	}
	average := float64(sum) / float64(len(moods))
	latest := float64(*moods[len(moods)-1].MoodScore)

	if latest > average {
		insights = append(insights, domain.Insight{
			Title:       "Mood Improvement",
			Description: "Your recent mood scores are above your weekly average. Keep it up!",
			Icon:        "brain",
			Priority:    domain.PriorityHigh,
		})
	} else if latest < average-moodDipMargin {
		insights = append(insights, domain.Insight{
			Title:       "Mood Change Detected",
			Description: "We've noticed a dip in your mood. Try mood-lifting activities today.",
			Icon:        "heart",
			Priority:    domain.PriorityHigh,
		})
	}
	return insights
}

// appendMindfulness always fires exactly one of the pair, based on whether
// the window averages at least one mindfulness activity per day.
func appendMindfulness(insights []domain.Insight, recent []*domain.Activity) []domain.Insight {
	count := 0
	for _, a := range recent {
		switch a.Type {
		case domain.ActivityGame, domain.ActivityMeditation, domain.ActivityBreathing:
			count++
		}
	}

	if float64(count)/insightWindowDays >= dailyPracticeTarget {
		return append(insights, domain.Insight{
			Title:       "Consistent Practice",
			Description: "You're consistently engaging in mindfulness activities.",
			Icon:        "trophy",
			Priority:    domain.PriorityMedium,
		})
	}
	return append(insights, domain.Insight{
		Title:       "Mindfulness Opportunity",
		Description: "Try more mindfulness activities to balance your mood.",
		Icon:        "sparkles",
		Priority:    domain.PriorityLow,
	})
}

// appendAchievement is silent in the 50-80% completion band. An empty
// window counts as 0% and fires the reminder.
func appendAchievement(insights []domain.Insight, recent []*domain.Activity) []domain.Insight {
	completed := 0
	for _, a := range recent {
		if a.Completed {
			completed++
		}
	}
	rate := 0.0
	if len(recent) > 0 {
		rate = float64(completed) / float64(len(recent)) * 100
	}

	if rate >= highAchievementRate {
		return append(insights, domain.Insight{
			Title:       "High Achievement",
			Description: fmt.Sprintf("You've completed %d%% of your activities this week.", int(math.Round(rate))),
			Icon:        "trophy",
			Priority:    domain.PriorityHigh,
		})
	}
	if rate < lowAchievementRate {
		return append(insights, domain.Insight{
			Title:       "Activity Reminder",
			Description: "Consider setting smaller, more achievable goals.",
			Icon:        "calendar",
			Priority:    domain.PriorityMedium,
		})
	}
	return insights
}

// appendDayRhythm always fires exactly one of the pair; ties go to the
// evening insight.
func appendDayRhythm(insights []domain.Insight, recent []*domain.Activity) []domain.Insight {
	morning, evening := 0, 0
	for _, a := range recent {
		hour := a.Timestamp.Hour()
		if hour < morningCutoffHour {
			morning++
		}
		if hour >= eveningStartHour {
			evening++
		}
	}

	if morning > evening {
		return append(insights, domain.Insight{
			Title:       "Morning Person",
			Description: "You're more active in the morning. Plan key tasks early!",
			Icon:        "sun",
			Priority:    domain.PriorityMedium,
		})
	}
	return append(insights, domain.Insight{
		Title:       "Evening Routine",
		Description: "You're more active in the evenings. Remember to wind down properly.",
		Icon:        "moon",
		Priority:    domain.PriorityMedium,
	})
}
