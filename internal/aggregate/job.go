// Package aggregate runs the recurring job that recomputes every active
// student's load snapshot, persists it, and generates tips for students in
// trouble.
package aggregate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campus-pulse/load-engine/internal/events"
	"github.com/campus-pulse/load-engine/internal/load"
	"github.com/campus-pulse/load-engine/internal/models"
)

// DefaultInterval is how often the job runs when no interval is configured
const DefaultInterval = 24 * time.Hour

// DefaultConcurrency bounds how many students are processed at once
const DefaultConcurrency = 4

// tipSeriesDays is how far ahead the tip-feeding load series looks
const tipSeriesDays = 7

// Store is the slice of the repository the job needs
type Store interface {
	ListActiveStudents(ctx context.Context) ([]*models.Student, error)
	ListDeadlinesForStudent(ctx context.Context, studentID string) ([]models.Deadline, error)
	UpsertStudentLoad(ctx context.Context, sl *models.StudentLoad) error
	DeleteExpiredTips(ctx context.Context) (int64, error)
}

// TipGenerator produces advice for one student from their load series
type TipGenerator interface {
	GenerateStudentTip(ctx context.Context, student *models.Student, series []models.DailyLoad) (*models.Tip, error)
}

// Summary reports what one job cycle did
type Summary struct {
	Students      int
	Processed     int
	TipsGenerated int
	Failed        int
	ExpiredTips   int64
}

// Job recomputes student loads on a fixed interval
type Job struct {
	store       Store
	tips        TipGenerator
	bus         events.Publisher
	interval    time.Duration
	concurrency int
	now         func() time.Time
}

// NewJob creates the aggregation job. Non-positive interval or concurrency
// fall back to the defaults.
func NewJob(store Store, tips TipGenerator, bus events.Publisher, interval time.Duration, concurrency int) *Job {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &Job{
		store:       store,
		tips:        tips,
		bus:         bus,
		interval:    interval,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Start runs the job immediately and then on every interval tick until the
// context is cancelled
func (j *Job) Start(ctx context.Context) {
	go func() {
		slog.Info("aggregation job started", "interval", j.interval, "concurrency", j.concurrency)

		j.runCycle(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("aggregation job stopped")
				return
			case <-ticker.C:
				j.runCycle(ctx)
			}
		}
	}()
}

func (j *Job) runCycle(ctx context.Context) {
	summary, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("aggregation cycle failed", "error", err)
		return
	}
	slog.Info("aggregation cycle complete",
		"students", summary.Students,
		"processed", summary.Processed,
		"tips", summary.TipsGenerated,
		"failed", summary.Failed,
		"expired_tips", summary.ExpiredTips)
}

// RunOnce executes a single aggregation cycle: one snapshot per active
// student, tips for students in the warning band or above, then an expired-tip
// sweep. Per-student failures are logged and counted but never abort the
// cycle.
func (j *Job) RunOnce(ctx context.Context) (Summary, error) {
	students, err := j.store.ListActiveStudents(ctx)
	if err != nil {
		return Summary{}, err
	}

	var processed, tipsGenerated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, student := range students {
		student := student
		g.Go(func() error {
			generatedTip, err := j.processStudent(gctx, student)
			if err != nil {
				slog.Error("failed to process student", "student_id", student.ID, "error", err)
				failed.Add(1)
				return nil
			}
			processed.Add(1)
			if generatedTip {
				tipsGenerated.Add(1)
			}
			return nil
		})
	}

	// Workers swallow their own errors, so this only waits
	_ = g.Wait()

	expired, err := j.store.DeleteExpiredTips(ctx)
	if err != nil {
		slog.Error("failed to delete expired tips", "error", err)
	}

	return Summary{
		Students:      len(students),
		Processed:     int(processed.Load()),
		TipsGenerated: int(tipsGenerated.Load()),
		Failed:        int(failed.Load()),
		ExpiredTips:   expired,
	}, nil
}

func (j *Job) processStudent(ctx context.Context, student *models.Student) (bool, error) {
	deadlines, err := j.store.ListDeadlinesForStudent(ctx, student.ID)
	if err != nil {
		return false, err
	}

	today := models.Midnight(j.now())
	daily := load.CalculateDailyLoad(deadlines, today)

	snapshot := &models.StudentLoad{
		StudentID: student.ID,
		DailyLoad: daily,
		UpdatedAt: j.now(),
	}
	if err := j.store.UpsertStudentLoad(ctx, snapshot); err != nil {
		return false, err
	}

	j.bus.Publish(ctx, events.Event{
		Type:      events.TypeSnapshot,
		StudentID: student.ID,
		Date:      daily.Date,
		LoadScore: daily.LoadScore,
		RiskLevel: daily.RiskLevel,
	})

	if daily.RiskLevel == models.RiskSafe {
		return false, nil
	}

	series := load.CalculateLoadRange(deadlines, today, tipSeriesDays)
	tip, err := j.tips.GenerateStudentTip(ctx, student, series)
	if err != nil {
		// The snapshot is already stored; a failed tip is not worth failing
		// the student over
		slog.Warn("failed to generate tip", "student_id", student.ID, "error", err)
		return false, nil
	}

	j.bus.Publish(ctx, events.Event{
		Type:      events.TypeTipCreated,
		StudentID: student.ID,
		TipID:     tip.ID,
		Priority:  tip.Priority,
	})
	return true, nil
}
