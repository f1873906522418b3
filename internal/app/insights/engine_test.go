package insights_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/halcyon/internal/app/insights"
	"github.com/halcyonlabs/halcyon/internal/domain"
)

var testNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

func testEngine() *insights.Engine {
	return insights.NewEngineAt(func() time.Time { return testNow })
}

func intPtr(n int) *int { return &n }

func mood(score int, at time.Time) *domain.Activity {
	return &domain.Activity{
		Type:      domain.ActivityMood,
		Name:      "Mood Check",
		Timestamp: at,
		Completed: true,
		MoodScore: intPtr(score),
	}
}

func activity(typ string, at time.Time, completed bool) *domain.Activity {
	return &domain.Activity{
		Type:      typ,
		Name:      typ,
		Timestamp: at,
		Completed: completed,
	}
}

func titles(list []domain.Insight) []string {
	out := make([]string, 0, len(list))
	for _, in := range list {
		out = append(out, in.Title)
	}
	return out
}

func find(list []domain.Insight, title string) *domain.Insight {
	for i := range list {
		if list[i].Title == title {
			return &list[i]
		}
	}
	return nil
}

func TestDailyStatsAveragesTodaysMood(t *testing.T) {
	e := testEngine()

	acts := []*domain.Activity{
		mood(60, testNow.Add(-2*time.Hour)),
		mood(80, testNow.Add(-1*time.Hour)),
		mood(10, testNow.AddDate(0, 0, -2)), // outside today
		activity(domain.ActivityTherapy, testNow.Add(-3*time.Hour), true),
	}

	stats := e.DailyStats(acts)

	require.NotNil(t, stats.MoodScore)
	assert.Equal(t, 70, *stats.MoodScore)
	assert.Equal(t, 1, stats.MindfulnessCount)
	assert.Equal(t, 3, stats.TotalActivities)
	assert.Equal(t, 100, stats.CompletionRate)
}

func TestDailyStatsNoMoodEntries(t *testing.T) {
	e := testEngine()

	stats := e.DailyStats([]*domain.Activity{
		activity(domain.ActivityGame, testNow.Add(-time.Hour), true),
	})

	assert.Nil(t, stats.MoodScore)
	assert.Equal(t, 0, stats.MindfulnessCount)
	assert.Equal(t, 1, stats.TotalActivities)
}

func TestMoodImprovementInsight(t *testing.T) {
	e := testEngine()

	// Trending 40 -> 85, window mean 55: the latest beats the average.
	acts := []*domain.Activity{
		mood(40, testNow.AddDate(0, 0, -6)),
		mood(45, testNow.AddDate(0, 0, -4)),
		mood(50, testNow.AddDate(0, 0, -2)),
		mood(85, testNow.Add(-time.Hour)),
	}

	got := e.RankedInsights(acts)
	require.NotEmpty(t, got)

	improvement := find(got, "Mood Improvement")
	require.NotNil(t, improvement, "insights: %v", titles(got))
	assert.Equal(t, domain.PriorityHigh, improvement.Priority)
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
}

func TestMoodDipInsight(t *testing.T) {
	e := testEngine()

	// Mean 70, latest 40: more than 20 below.
	acts := []*domain.Activity{
		mood(85, testNow.AddDate(0, 0, -5)),
		mood(85, testNow.AddDate(0, 0, -3)),
		mood(40, testNow.Add(-time.Hour)),
	}

	got := e.RankedInsights(acts)
	dip := find(got, "Mood Change Detected")
	require.NotNil(t, dip, "insights: %v", titles(got))
	assert.Equal(t, domain.PriorityHigh, dip.Priority)
	assert.Nil(t, find(got, "Mood Improvement"), "mood insights are mutually exclusive")
}

func TestConsistentPracticeVsOpportunity(t *testing.T) {
	e := testEngine()

	var practiced []*domain.Activity
	for i := 0; i < 7; i++ {
		typ := domain.ActivityGame
		if i%2 == 0 {
			typ = domain.ActivityMeditation
		}
		practiced = append(practiced, activity(typ, testNow.AddDate(0, 0, -i%7), true))
	}

	got := e.RankedInsights(practiced)
	assert.NotNil(t, find(got, "Consistent Practice"), "insights: %v", titles(got))
	assert.Nil(t, find(got, "Mindfulness Opportunity"))

	got = e.RankedInsights(nil)
	opportunity := find(got, "Mindfulness Opportunity")
	require.NotNil(t, opportunity, "insights: %v", titles(got))
	assert.Equal(t, domain.PriorityLow, opportunity.Priority)
}

func TestAchievementBands(t *testing.T) {
	e := testEngine()

	// 4/5 completed = 80%.
	var high []*domain.Activity
	for i := 0; i < 5; i++ {
		high = append(high, activity(domain.ActivityTherapy, testNow.AddDate(0, 0, -1), i != 0))
	}
	got := e.RankedInsights(high)
	require.NotNil(t, find(got, "High Achievement"), "insights: %v", titles(got))

	// 1/5 completed = 20%.
	var low []*domain.Activity
	for i := 0; i < 5; i++ {
		low = append(low, activity(domain.ActivityTherapy, testNow.AddDate(0, 0, -1), i == 0))
	}
	got = e.RankedInsights(low)
	require.NotNil(t, find(got, "Activity Reminder"), "insights: %v", titles(got))

	// 3/5 completed = 60%: silent band.
	var mid []*domain.Activity
	for i := 0; i < 5; i++ {
		mid = append(mid, activity(domain.ActivityTherapy, testNow.AddDate(0, 0, -1), i < 3))
	}
	got = e.RankedInsights(mid)
	assert.Nil(t, find(got, "High Achievement"))
	assert.Nil(t, find(got, "Activity Reminder"))
}

func TestEmptyWindowFiresActivityReminder(t *testing.T) {
	e := testEngine()

	// No activity at all is a 0% week, not a silent one.
	got := e.RankedInsights(nil)
	reminder := find(got, "Activity Reminder")
	require.NotNil(t, reminder, "insights: %v", titles(got))
	assert.Equal(t, domain.PriorityMedium, reminder.Priority)

	// Same for activities that all fell out of the 7-day window.
	stale := []*domain.Activity{
		activity(domain.ActivityTherapy, testNow.AddDate(0, 0, -10), true),
	}
	got = e.RankedInsights(stale)
	assert.NotNil(t, find(got, "Activity Reminder"), "insights: %v", titles(got))
}

func TestDayRhythmExactlyOneFires(t *testing.T) {
	e := testEngine()

	morningTime := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
	acts := []*domain.Activity{
		activity(domain.ActivityTherapy, morningTime, true),
		activity(domain.ActivityTherapy, morningTime.Add(time.Hour), true),
	}
	got := e.RankedInsights(acts)
	assert.NotNil(t, find(got, "Morning Person"))
	assert.Nil(t, find(got, "Evening Routine"))

	// No activities at all: ties go to the evening insight.
	got = e.RankedInsights(nil)
	assert.NotNil(t, find(got, "Evening Routine"))
	assert.Nil(t, find(got, "Morning Person"))
}

func TestRankedInsightsOrderedAndTruncated(t *testing.T) {
	e := testEngine()

	// Improvement (high) + consistent practice (medium) + high achievement
	// (high) + rhythm (medium) would be four; only three survive, highs first.
	var acts []*domain.Activity
	acts = append(acts,
		mood(40, testNow.AddDate(0, 0, -5)),
		mood(90, testNow.Add(-time.Hour)),
	)
	for i := 0; i < 7; i++ {
		acts = append(acts, activity(domain.ActivityMeditation, testNow.AddDate(0, 0, -i%6), true))
	}

	got := e.RankedInsights(acts)
	require.Len(t, got, 3)
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
	assert.Equal(t, domain.PriorityHigh, got[1].Priority)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Priority, got[i].Priority)
	}
}
