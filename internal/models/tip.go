package models

import (
	"time"
)

// TipType classifies a generated advisory text
type TipType string

const (
	TipStudentWorkload     TipType = "student_workload"
	TipProfessorSuggestion TipType = "professor_suggestion"
	TipConflictWarning     TipType = "conflict_warning"
	TipStudyTips           TipType = "study_tips"
)

// TipPriority controls how prominently a tip is surfaced
type TipPriority string

const (
	PriorityLow    TipPriority = "low"
	PriorityMedium TipPriority = "medium"
	PriorityHigh   TipPriority = "high"
)

// Tip is a persisted piece of generated advice with a fixed expiry
type Tip struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Text          string      `json:"text"`
	Type          TipType     `json:"type"`
	Priority      TipPriority `json:"priority"`
	LoadScore     int         `json:"load_score,omitempty"`
	RiskLevel     RiskLevel   `json:"risk_level,omitempty"`
	CourseID      string      `json:"course_id,omitempty"`
	AffectedDates []time.Time `json:"affected_dates,omitempty"`
	IsRead        bool        `json:"is_read"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// Expired reports whether the tip is past its expiry
func (t *Tip) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}
