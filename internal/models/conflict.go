package models

import (
	"time"
)

// ConflictSeverity ranks how damaging a same-day collision is
type ConflictSeverity string

const (
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// ConflictDeadline is the summary of one deadline inside a conflict group
type ConflictDeadline struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Type       DeadlineType `json:"type"`
	Difficulty int          `json:"difficulty"`
	CourseName string       `json:"course_name,omitempty"`
}

// Conflict is a calendar day carrying two or more deadlines
type Conflict struct {
	Date            time.Time          `json:"date"`
	Count           int                `json:"count"`
	Deadlines       []ConflictDeadline `json:"deadlines"`
	Severity        ConflictSeverity   `json:"severity"`
	TotalDifficulty int                `json:"total_difficulty"`
}

// AlternativeDate is a candidate reschedule target for a conflicted day
type AlternativeDate struct {
	Date              time.Time `json:"date"`
	ExistingDeadlines int       `json:"existing_deadlines"`
	DaysFromConflict  int       `json:"days_from_conflict"`
	Suitability       int       `json:"suitability_score"`
}
