package models

import (
	"time"
)

// Student is a tracked learner whose deadlines feed load calculation
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Course groups deadlines and is owned by a professor
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProfessorID string    `json:"professor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
