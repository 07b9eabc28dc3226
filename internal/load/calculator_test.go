package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/load-engine/internal/models"
)

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func deadline(id string, daysOut int, difficulty int, typ models.DeadlineType) models.Deadline {
	return models.Deadline{
		ID:         id,
		CourseID:   "course-1",
		Title:      "deadline " + id,
		CourseName: "Algorithms",
		DueDate:    base.AddDate(0, 0, daysOut),
		Difficulty: difficulty,
		Type:       typ,
	}
}

func TestCalculateDailyLoadDueToday(t *testing.T) {
	// difficulty 3 assignment due today: 20 × 1.0 × 3.0 = 60
	result := CalculateDailyLoad([]models.Deadline{
		deadline("a", 0, 3, models.TypeAssignment),
	}, base)

	assert.Equal(t, 60, result.LoadScore)
	assert.Equal(t, models.RiskWarning, result.RiskLevel)
	assert.Equal(t, 1, result.DeadlinesCount)
	require.Len(t, result.Deadlines, 1)
	assert.Equal(t, 0, result.Deadlines[0].DaysUntil)
	assert.Equal(t, 60.0, result.Deadlines[0].LoadPoints)
}

func TestCalculateDailyLoadExamInFiveDays(t *testing.T) {
	// difficulty 5 exam in 5 days: 30 × 2.0 × 1.5 = 90
	result := CalculateDailyLoad([]models.Deadline{
		deadline("exam", 5, 5, models.TypeExam),
	}, base)

	assert.Equal(t, 90, result.LoadScore)
	assert.Equal(t, models.RiskDanger, result.RiskLevel)
}

func TestCalculateDailyLoadEmpty(t *testing.T) {
	result := CalculateDailyLoad(nil, base)

	assert.Equal(t, 0, result.LoadScore)
	assert.Equal(t, models.RiskSafe, result.RiskLevel)
	assert.Equal(t, 0, result.DeadlinesCount)
	assert.NotNil(t, result.Deadlines)
	assert.Empty(t, result.Deadlines)
}

func TestCalculateDailyLoadWindowExclusion(t *testing.T) {
	inWindow := []models.Deadline{
		deadline("today", 0, 2, models.TypeAssignment),
		deadline("edge", 14, 3, models.TypeProject),
	}
	withNoise := append([]models.Deadline{
		deadline("past", -1, 5, models.TypeExam),
		deadline("far", 15, 5, models.TypeExam),
	}, inWindow...)

	clean := CalculateDailyLoad(inWindow, base)
	noisy := CalculateDailyLoad(withNoise, base)

	// Out-of-window deadlines change neither the score nor the breakdown
	assert.Equal(t, clean.LoadScore, noisy.LoadScore)
	assert.Equal(t, clean.Deadlines, noisy.Deadlines)
	assert.Equal(t, 2, noisy.DeadlinesCount)
}

func TestCalculateDailyLoadHorizonBoundaries(t *testing.T) {
	day14 := CalculateDailyLoad([]models.Deadline{deadline("d", 14, 3, models.TypeAssignment)}, base)
	assert.Equal(t, 1, day14.DeadlinesCount, "day 14 is inside the window")

	day15 := CalculateDailyLoad([]models.Deadline{deadline("d", 15, 3, models.TypeAssignment)}, base)
	assert.Equal(t, 0, day15.DeadlinesCount, "day 15 is outside the window")

	yesterday := CalculateDailyLoad([]models.Deadline{deadline("d", -1, 3, models.TypeAssignment)}, base)
	assert.Equal(t, 0, yesterday.DeadlinesCount, "past deadlines never contribute")
}

func TestCalculateDailyLoadSameDayTimeIgnored(t *testing.T) {
	// Due later today at 23:00 against a target of 08:00 is still daysUntil 0
	d := deadline("late", 0, 3, models.TypeAssignment)
	d.DueDate = base.Add(23 * time.Hour)

	result := CalculateDailyLoad([]models.Deadline{d}, base.Add(8*time.Hour))

	require.Len(t, result.Deadlines, 1)
	assert.Equal(t, 0, result.Deadlines[0].DaysUntil)
	assert.Equal(t, 60, result.LoadScore)
}

func TestCalculateDailyLoadClampsAt100(t *testing.T) {
	result := CalculateDailyLoad([]models.Deadline{
		deadline("e1", 0, 5, models.TypeExam), // 180
		deadline("e2", 0, 5, models.TypeExam), // 180
	}, base)

	assert.Equal(t, 100, result.LoadScore)
	assert.Equal(t, models.RiskDanger, result.RiskLevel)
}

func TestCalculateDailyLoadDefaults(t *testing.T) {
	// difficulty outside 1-5 and an unknown type degrade to 20 × 1.0
	result := CalculateDailyLoad([]models.Deadline{
		{ID: "odd", Title: "odd", DueDate: base, Difficulty: 9, Type: "quiz"},
	}, base)

	assert.Equal(t, 60, result.LoadScore) // 20 × 1.0 × 3.0
	require.Len(t, result.Deadlines, 1)
	assert.Equal(t, "Unknown Course", result.Deadlines[0].CourseName)
}

func TestCalculateDailyLoadBreakdownSorted(t *testing.T) {
	result := CalculateDailyLoad([]models.Deadline{
		deadline("far", 10, 3, models.TypeAssignment),
		deadline("near", 1, 3, models.TypeAssignment),
		deadline("mid", 4, 3, models.TypeAssignment),
	}, base)

	require.Len(t, result.Deadlines, 3)
	assert.Equal(t, []int{1, 4, 10}, []int{
		result.Deadlines[0].DaysUntil,
		result.Deadlines[1].DaysUntil,
		result.Deadlines[2].DaysUntil,
	})
}

func TestCalculateDailyLoadPointsRounding(t *testing.T) {
	// 10 days out: 20 × 1.0 × 14/11 = 25.4545... → 25.5
	result := CalculateDailyLoad([]models.Deadline{
		deadline("d", 10, 3, models.TypeAssignment),
	}, base)

	require.Len(t, result.Deadlines, 1)
	assert.Equal(t, 25.5, result.Deadlines[0].LoadPoints)
}

func TestCalculateDailyLoadDeterministic(t *testing.T) {
	deadlines := []models.Deadline{
		deadline("a", 2, 4, models.TypeProject),
		deadline("b", 9, 1, models.TypeExam),
	}

	first := CalculateDailyLoad(deadlines, base)
	second := CalculateDailyLoad(deadlines, base)
	assert.Equal(t, first, second)
}

func TestRiskBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskSafe},
		{39, models.RiskSafe},
		{40, models.RiskWarning},
		{69, models.RiskWarning},
		{70, models.RiskDanger},
		{100, models.RiskDanger},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, models.RiskForScore(tt.score), "score %d", tt.score)
	}
}

func TestCalculateLoadRange(t *testing.T) {
	deadlines := []models.Deadline{
		deadline("a", 3, 3, models.TypeAssignment),
		deadline("b", 6, 5, models.TypeExam),
	}

	series := CalculateLoadRange(deadlines, base, 7)
	require.Len(t, series, 7)

	for i, day := range series {
		expected := CalculateDailyLoad(deadlines, base.AddDate(0, 0, i))
		assert.Equal(t, expected, day, "series entry %d", i)
		assert.Equal(t, base.AddDate(0, 0, i), day.Date)
	}
}

func TestCalculateLoadRangeNonPositiveDays(t *testing.T) {
	assert.Empty(t, CalculateLoadRange(nil, base, 0))
	assert.Empty(t, CalculateLoadRange(nil, base, -3))
}

func TestFindPeakLoadDays(t *testing.T) {
	series := []models.DailyLoad{
		{Date: base, LoadScore: 45},
		{Date: base.AddDate(0, 0, 1), LoadScore: 80},
		{Date: base.AddDate(0, 0, 2), LoadScore: 60},
		{Date: base.AddDate(0, 0, 3), LoadScore: 80},
	}

	peaks := FindPeakLoadDays(series, DefaultPeakThreshold)
	require.Len(t, peaks, 3)
	assert.Equal(t, 80, peaks[0].LoadScore)
	assert.Equal(t, 80, peaks[1].LoadScore)
	// Stable: equal scores keep series order
	assert.True(t, peaks[0].Date.Before(peaks[1].Date))
	assert.Equal(t, 60, peaks[2].LoadScore)
}

func TestCalculateClassAverageLoad(t *testing.T) {
	sets := [][]models.Deadline{
		{deadline("a", 0, 3, models.TypeAssignment)}, // 60
		{deadline("b", 5, 5, models.TypeExam)},       // 90
		nil,                                          // 0
	}

	assert.Equal(t, 50, CalculateClassAverageLoad(sets, base))
	assert.Equal(t, 0, CalculateClassAverageLoad(nil, base))
}
