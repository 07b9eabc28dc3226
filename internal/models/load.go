package models

import (
	"time"
)

// RiskLevel is the stress band derived from a load score
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
)

// RiskForScore maps a bounded load score to its risk band.
// Band lower bounds are inclusive: 70 is danger, 40 is warning.
func RiskForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskDanger
	case score >= 40:
		return RiskWarning
	default:
		return RiskSafe
	}
}

// DeadlineLoad is the contribution of a single deadline to a daily score
type DeadlineLoad struct {
	DeadlineID string       `json:"deadline_id"`
	Title      string       `json:"title"`
	CourseName string       `json:"course_name"`
	DaysUntil  int          `json:"days_until"`
	LoadPoints float64      `json:"load_points"`
	Difficulty int          `json:"difficulty"`
	Type       DeadlineType `json:"type"`
}

// DailyLoad is the computed cognitive load for one student on one day
type DailyLoad struct {
	Date           time.Time      `json:"date"`
	LoadScore      int            `json:"load_score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	DeadlinesCount int            `json:"deadlines_count"`
	Deadlines      []DeadlineLoad `json:"deadlines"`
}

// StudentLoad is a persisted per-(student, date) snapshot of a DailyLoad.
// The (StudentID, Date) pair is unique in the store; the daily job upserts it.
type StudentLoad struct {
	StudentID string `json:"student_id"`
	DailyLoad
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ClassDayLoad is the average load across a course's students for one day
type ClassDayLoad struct {
	Date        time.Time `json:"date"`
	AverageLoad int       `json:"average_load"`
}
