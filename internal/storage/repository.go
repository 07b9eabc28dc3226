package storage

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/load-engine/internal/models"
)

// ErrNotFound is returned when a mutation targets a missing row
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for roster, deadline, snapshot and tip
// persistence
type Repository interface {
	// Roster
	ListActiveStudents(ctx context.Context) ([]*models.Student, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	ListStudentIDsForCourse(ctx context.Context, courseID string) ([]string, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)

	// Deadlines
	CreateDeadline(ctx context.Context, d *models.Deadline) error
	GetDeadline(ctx context.Context, id string) (*models.Deadline, error)
	UpdateDeadline(ctx context.Context, d *models.Deadline) error
	DeleteDeadline(ctx context.Context, id string) error
	ListDeadlinesForCourse(ctx context.Context, courseID string) ([]models.Deadline, error)
	ListDeadlinesForStudent(ctx context.Context, studentID string) ([]models.Deadline, error)

	// Load snapshots, keyed uniquely on (student, date)
	UpsertStudentLoad(ctx context.Context, sl *models.StudentLoad) error
	GetStudentLoad(ctx context.Context, studentID string, date time.Time) (*models.StudentLoad, error)

	// Tips
	CreateTip(ctx context.Context, tip *models.Tip) error
	ListActiveTips(ctx context.Context, userID string, limit int) ([]*models.Tip, error)
	MarkTipRead(ctx context.Context, id string) (*models.Tip, error)
	DeleteExpiredTips(ctx context.Context) (int64, error)

	// API Clients
	GetClientByAPIKey(ctx context.Context, apiKey string) (*models.APIClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
