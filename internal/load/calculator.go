// Package load turns a set of deadlines into a bounded daily cognitive-load
// score. All functions are pure: the reference date is always supplied by the
// caller and no clock is read internally, so identical inputs always produce
// identical output.
package load

import (
	"math"
	"sort"
	"time"

	"github.com/campus-pulse/load-engine/internal/models"
)

// Horizon is how many days ahead a deadline still contributes load.
// Deadlines in the past or beyond the horizon are ignored entirely.
const Horizon = 14

// DefaultPeakThreshold is the load score at which a day counts as a peak
const DefaultPeakThreshold = 60

// basePoints maps difficulty 1-5 to base load points
var basePoints = map[int]float64{
	1: 10, // Very Easy
	2: 15, // Easy
	3: 20, // Medium
	4: 25, // Hard
	5: 30, // Very Hard
}

// defaultBasePoints covers missing or out-of-range difficulty values
const defaultBasePoints = 20

// typeMultipliers scale load by deadline kind; unknown types weigh like
// assignments
var typeMultipliers = map[models.DeadlineType]float64{
	models.TypeAssignment: 1.0,
	models.TypeProject:    1.5,
	models.TypeExam:       2.0,
}

// CalculateDailyLoad computes the load score for targetDate from the given
// deadlines. Only deadlines due within [0, Horizon] days of targetDate
// contribute; the rest are excluded from both the score and the breakdown.
// The returned breakdown is sorted ascending by days until due, and the score
// is rounded, then capped at 100.
func CalculateDailyLoad(deadlines []models.Deadline, targetDate time.Time) models.DailyLoad {
	target := models.Midnight(targetDate)

	var total float64
	breakdown := make([]models.DeadlineLoad, 0, len(deadlines))

	for _, d := range deadlines {
		days := DaysUntil(d.DueDate, target)
		if days < 0 || days > Horizon {
			continue
		}

		points := deadlineLoad(d, days)
		total += points

		breakdown = append(breakdown, models.DeadlineLoad{
			DeadlineID: d.ID,
			Title:      d.Title,
			CourseName: courseName(d),
			DaysUntil:  days,
			LoadPoints: math.Round(points*10) / 10,
			Difficulty: d.Difficulty,
			Type:       d.Type,
		})
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].DaysUntil < breakdown[j].DaysUntil
	})

	score := int(math.Round(total))
	if score > 100 {
		score = 100
	}

	return models.DailyLoad{
		Date:           target,
		LoadScore:      score,
		RiskLevel:      models.RiskForScore(score),
		DeadlinesCount: len(breakdown),
		Deadlines:      breakdown,
	}
}

// CalculateLoadRange computes one independent daily snapshot per day,
// starting at start (inclusive), each against the same full deadline set.
// A non-positive days yields an empty series.
func CalculateLoadRange(deadlines []models.Deadline, start time.Time, days int) []models.DailyLoad {
	if days <= 0 {
		return nil
	}

	first := models.Midnight(start)
	series := make([]models.DailyLoad, 0, days)
	for i := 0; i < days; i++ {
		series = append(series, CalculateDailyLoad(deadlines, first.AddDate(0, 0, i)))
	}
	return series
}

// FindPeakLoadDays filters a series to days at or above threshold, highest
// score first. Equal scores keep their original series order.
func FindPeakLoadDays(series []models.DailyLoad, threshold int) []models.DailyLoad {
	var peaks []models.DailyLoad
	for _, day := range series {
		if day.LoadScore >= threshold {
			peaks = append(peaks, day)
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].LoadScore > peaks[j].LoadScore
	})
	return peaks
}

// CalculateClassAverageLoad computes each student's score for date and
// returns the rounded mean. An empty input returns 0.
func CalculateClassAverageLoad(studentDeadlines [][]models.Deadline, date time.Time) int {
	if len(studentDeadlines) == 0 {
		return 0
	}

	total := 0
	for _, deadlines := range studentDeadlines {
		total += CalculateDailyLoad(deadlines, date).LoadScore
	}
	return int(math.Round(float64(total) / float64(len(studentDeadlines))))
}

// DaysUntil returns whole calendar days from target to the deadline's day.
// Both sides are normalized to midnight UTC, so a deadline due later the same
// day is 0 and yesterday's is -1.
func DaysUntil(due, target time.Time) int {
	return int(models.Midnight(due).Sub(models.Midnight(target)) / (24 * time.Hour))
}

// deadlineLoad is basePoints × typeMultiplier × proximityFactor for one
// deadline
func deadlineLoad(d models.Deadline, daysUntil int) float64 {
	base, ok := basePoints[d.Difficulty]
	if !ok {
		base = defaultBasePoints
	}

	mult, ok := typeMultipliers[d.Type]
	if !ok {
		mult = 1.0
	}

	return base * mult * proximityFactor(daysUntil)
}

// proximityFactor scales load by urgency: closer deadlines weigh more.
// The 8-14 band starts slightly above the 4-7 constant (14/9 ≈ 1.56 at day 8)
// before decaying to ≈0.93 at day 14; callers depend on these exact
// breakpoints, so don't smooth them.
func proximityFactor(daysUntil int) float64 {
	switch {
	case daysUntil == 0:
		return 3.0 // Due today
	case daysUntil == 1:
		return 2.5 // Due tomorrow
	case daysUntil <= 3:
		return 2.0
	case daysUntil <= 7:
		return 1.5
	default:
		return 14.0 / float64(daysUntil+1)
	}
}

func courseName(d models.Deadline) string {
	if d.CourseName == "" {
		return "Unknown Course"
	}
	return d.CourseName
}
