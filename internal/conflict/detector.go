// Package conflict detects same-day deadline collisions and proposes
// alternative dates for resolving them. Like the load calculator it is pure:
// grouping uses each deadline's own calendar day, never a reference clock.
package conflict

import (
	"sort"
	"time"

	"github.com/campus-pulse/load-engine/internal/models"
)

// DefaultSuggestionRange is the window scanned around a conflict when
// proposing alternative dates
const DefaultSuggestionRange = 14

// maxSuggestions caps how many alternatives are returned per conflict
const maxSuggestions = 3

// DetectConflicts groups deadlines by calendar day and reports every day
// carrying more than one. Conflicts are ordered by total difficulty,
// heaviest first; equal totals keep first-seen day order.
func DetectConflicts(deadlines []models.Deadline) []models.Conflict {
	byDay := make(map[time.Time][]models.Deadline)
	var order []time.Time

	for _, d := range deadlines {
		day := d.Day()
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], d)
	}

	var conflicts []models.Conflict
	for _, day := range order {
		group := byDay[day]
		if len(group) < 2 {
			continue
		}

		members := make([]models.ConflictDeadline, 0, len(group))
		total := 0
		for _, d := range group {
			total += d.Difficulty
			members = append(members, models.ConflictDeadline{
				ID:         d.ID,
				Title:      d.Title,
				Type:       d.Type,
				Difficulty: d.Difficulty,
				CourseName: d.CourseName,
			})
		}

		conflicts = append(conflicts, models.Conflict{
			Date:            day,
			Count:           len(group),
			Deadlines:       members,
			Severity:        severity(group),
			TotalDifficulty: total,
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].TotalDifficulty > conflicts[j].TotalDifficulty
	})
	return conflicts
}

// severity rules are evaluated top to bottom; the first match wins
func severity(group []models.Deadline) models.ConflictSeverity {
	count := len(group)
	hasExam := false
	sum := 0
	for _, d := range group {
		if d.Type == models.TypeExam {
			hasExam = true
		}
		sum += d.Difficulty
	}

	switch {
	case hasExam && count >= 2:
		return models.SeverityCritical
	case count >= 3:
		return models.SeverityHigh
	case float64(sum)/float64(count) >= 4:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// SuggestAlternativeDates scores the days around a conflict and returns the
// most suitable ones for rescheduling. Offsets are scanned ascending from
// -daysRange/2 to +daysRange/2 using integer division (an odd daysRange scans
// the symmetric ⌊daysRange/2⌋ days each side), and the conflicted day itself
// is never a candidate. Existing deadlines are counted against the full
// allDeadlines set. Suitability ties keep scan order.
func SuggestAlternativeDates(c models.Conflict, allDeadlines []models.Deadline, daysRange int) []models.AlternativeDate {
	if daysRange <= 0 {
		daysRange = DefaultSuggestionRange
	}

	onDay := make(map[time.Time]int, len(allDeadlines))
	for _, d := range allDeadlines {
		onDay[d.Day()]++
	}

	half := daysRange / 2
	conflictDay := models.Midnight(c.Date)

	suggestions := make([]models.AlternativeDate, 0, 2*half)
	for offset := -half; offset <= half; offset++ {
		if offset == 0 {
			continue
		}

		day := conflictDay.AddDate(0, 0, offset)
		existing := onDay[day]
		suggestions = append(suggestions, models.AlternativeDate{
			Date:              day,
			ExistingDeadlines: existing,
			DaysFromConflict:  offset,
			Suitability:       suitability(existing, offset),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Suitability > suggestions[j].Suitability
	})

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// suitability rewards empty days and proximity to the original date.
// Both terms floor at zero independently before summing.
func suitability(existing, offset int) int {
	if offset < 0 {
		offset = -offset
	}

	crowd := 10 - existing*3
	if crowd < 0 {
		crowd = 0
	}

	near := 10 - offset
	if near < 0 {
		near = 0
	}

	return crowd + near
}
