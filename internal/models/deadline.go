package models

import (
	"time"
)

// DeadlineType classifies a deadline for load weighting
type DeadlineType string

const (
	TypeAssignment DeadlineType = "assignment"
	TypeProject    DeadlineType = "project"
	TypeExam       DeadlineType = "exam"
)

// Valid returns true if the type is one of the known values
func (t DeadlineType) Valid() bool {
	return t == TypeAssignment || t == TypeProject || t == TypeExam
}

// Deadline is a graded piece of work due on a calendar day.
// Time-of-day on DueDate is irrelevant everywhere; the engines normalize
// to day granularity before comparing.
type Deadline struct {
	ID         string       `json:"id"`
	CourseID   string       `json:"course_id"`
	Title      string       `json:"title"`
	CourseName string       `json:"course_name,omitempty"`
	DueDate    time.Time    `json:"due_date"`
	Difficulty int          `json:"difficulty"`
	Type       DeadlineType `json:"type"`
	CreatedAt  time.Time    `json:"created_at,omitempty"`
}

// Day returns the deadline's calendar day at midnight UTC
func (d *Deadline) Day() time.Time {
	return Midnight(d.DueDate)
}

// Midnight truncates a timestamp to the start of its calendar day in UTC
func Midnight(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
