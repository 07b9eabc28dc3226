// Package tips turns computed load data into short pieces of persisted advice
package tips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/campus-pulse/load-engine/internal/models"
	"github.com/campus-pulse/load-engine/internal/prompts"
)

// ErrTipGeneration wraps failures of the text generator so callers can
// distinguish them from storage errors
var ErrTipGeneration = errors.New("tip generation failed")

// highLoadThreshold is the daily score from which a day feeds a workload tip
const highLoadThreshold = 40

// overloadThreshold is the class-average score from which a day counts as
// overloaded for professor suggestions
const overloadThreshold = 60

// DefaultTipLimit caps tip listings when the caller gives no limit
const DefaultTipLimit = 5

// DefaultTTL is how long a tip stays active when no TTL is configured
const DefaultTTL = 7 * 24 * time.Hour

// encouragements are served when a student's week has nothing worth warning
// about
var encouragements = []string{
	"Your week looks manageable. A good moment to get ahead on reading or revisit notes from earlier lectures.",
	"No heavy deadlines coming up. Use the calm stretch to review material while it's still fresh.",
	"Light load ahead. Consider starting early on the next big assignment so future-you has it easier.",
}

// Generator produces free text from a system and user prompt
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Store is the slice of the repository the tip service needs
type Store interface {
	CreateTip(ctx context.Context, tip *models.Tip) error
	ListActiveTips(ctx context.Context, userID string, limit int) ([]*models.Tip, error)
	MarkTipRead(ctx context.Context, id string) (*models.Tip, error)
}

// Service generates, persists and serves tips
type Service struct {
	store     Store
	generator Generator
	renderer  *prompts.Renderer
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a tip service. A non-positive ttl falls back to DefaultTTL.
func NewService(store Store, generator Generator, renderer *prompts.Renderer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:     store,
		generator: generator,
		renderer:  renderer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GenerateStudentTip produces and stores advice for a student based on their
// upcoming load series. Days below the warning band are ignored; if nothing
// crosses it, a canned encouragement is stored instead of calling the
// generator.
func (s *Service) GenerateStudentTip(ctx context.Context, student *models.Student, series []models.DailyLoad) (*models.Tip, error) {
	var highDays []models.DailyLoad
	for _, day := range series {
		if day.LoadScore >= highLoadThreshold {
			highDays = append(highDays, day)
		}
	}

	if len(highDays) == 0 {
		tip := &models.Tip{
			ID:        uuid.NewString(),
			UserID:    student.ID,
			Text:      encouragements[rand.Intn(len(encouragements))],
			Type:      models.TipStudyTips,
			Priority:  models.PriorityLow,
			CreatedAt: s.now(),
			ExpiresAt: s.now().Add(s.ttl),
		}
		if err := s.store.CreateTip(ctx, tip); err != nil {
			return nil, fmt.Errorf("failed to store tip: %w", err)
		}
		return tip, nil
	}

	system, user, err := s.renderer.Render(prompts.NameStudentTip, prompts.StudentTipData{
		StudentName: student.Name,
		Days:        highDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	text, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTipGeneration, err)
	}

	peak := highDays[0]
	for _, day := range highDays[1:] {
		if day.LoadScore > peak.LoadScore {
			peak = day
		}
	}

	priority := models.PriorityMedium
	if peak.RiskLevel == models.RiskDanger {
		priority = models.PriorityHigh
	}

	dates := make([]time.Time, 0, len(highDays))
	for _, day := range highDays {
		dates = append(dates, day.Date)
	}

	tip := &models.Tip{
		ID:            uuid.NewString(),
		UserID:        student.ID,
		Text:          text,
		Type:          models.TipStudentWorkload,
		Priority:      priority,
		LoadScore:     peak.LoadScore,
		RiskLevel:     peak.RiskLevel,
		AffectedDates: dates,
		CreatedAt:     s.now(),
		ExpiresAt:     s.now().Add(s.ttl),
	}

	if err := s.store.CreateTip(ctx, tip); err != nil {
		return nil, fmt.Errorf("failed to store tip: %w", err)
	}

	slog.Info("student tip generated",
		"student_id", student.ID,
		"priority", tip.Priority,
		"high_days", len(highDays))
	return tip, nil
}

// GenerateProfessorSuggestion produces and stores scheduling advice for the
// professor of a course, driven by class-average overload days and detected
// deadline conflicts.
func (s *Service) GenerateProfessorSuggestion(ctx context.Context, course *models.Course, classDays []models.ClassDayLoad, deadlines []models.Deadline, conflicts []models.Conflict) (*models.Tip, error) {
	var overloaded []models.ClassDayLoad
	for _, day := range classDays {
		if day.AverageLoad >= overloadThreshold {
			overloaded = append(overloaded, day)
		}
	}

	system, user, err := s.renderer.Render(prompts.NameProfessorSuggestion, prompts.ProfessorSuggestionData{
		CourseName:     course.Name,
		OverloadedDays: overloaded,
		Deadlines:      deadlines,
		Conflicts:      conflicts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	text, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTipGeneration, err)
	}

	priority := models.PriorityMedium
	if len(overloaded) > 3 {
		priority = models.PriorityHigh
	}

	dates := make([]time.Time, 0, len(overloaded))
	for _, day := range overloaded {
		dates = append(dates, day.Date)
	}

	tip := &models.Tip{
		ID:            uuid.NewString(),
		UserID:        course.ProfessorID,
		Text:          text,
		Type:          models.TipProfessorSuggestion,
		Priority:      priority,
		CourseID:      course.ID,
		AffectedDates: dates,
		CreatedAt:     s.now(),
		ExpiresAt:     s.now().Add(s.ttl),
	}

	if err := s.store.CreateTip(ctx, tip); err != nil {
		return nil, fmt.Errorf("failed to store tip: %w", err)
	}

	slog.Info("professor suggestion generated",
		"course_id", course.ID,
		"professor_id", course.ProfessorID,
		"overloaded_days", len(overloaded))
	return tip, nil
}

// UserTips returns the newest unexpired tips for a user. A non-positive limit
// falls back to DefaultTipLimit.
func (s *Service) UserTips(ctx context.Context, userID string, limit int) ([]*models.Tip, error) {
	if limit <= 0 {
		limit = DefaultTipLimit
	}
	return s.store.ListActiveTips(ctx, userID, limit)
}

// MarkRead flags a tip as read and returns the updated record
func (s *Service) MarkRead(ctx context.Context, id string) (*models.Tip, error) {
	return s.store.MarkTipRead(ctx, id)
}
