package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/load-engine/internal/events"
	"github.com/campus-pulse/load-engine/internal/models"
)

type fakeStore struct {
	mu sync.Mutex

	students  []*models.Student
	deadlines map[string][]models.Deadline

	deadlineErr map[string]error
	upserts     []*models.StudentLoad
	expired     int64
}

func (f *fakeStore) ListActiveStudents(context.Context) ([]*models.Student, error) {
	return f.students, nil
}

func (f *fakeStore) ListDeadlinesForStudent(_ context.Context, studentID string) ([]models.Deadline, error) {
	if err := f.deadlineErr[studentID]; err != nil {
		return nil, err
	}
	return f.deadlines[studentID], nil
}

func (f *fakeStore) UpsertStudentLoad(_ context.Context, sl *models.StudentLoad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, sl)
	return nil
}

func (f *fakeStore) DeleteExpiredTips(context.Context) (int64, error) {
	return f.expired, nil
}

type fakeTips struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeTips) GenerateStudentTip(_ context.Context, student *models.Student, _ []models.DailyLoad) (*models.Tip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, student.ID)
	return &models.Tip{ID: "tip-" + student.ID, UserID: student.ID, Priority: models.PriorityHigh}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, ev events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func newTestJob(store *fakeStore, tips *fakeTips, bus events.Publisher) *Job {
	j := NewJob(store, tips, bus, time.Hour, 2)
	j.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return j
}

func examTomorrow(courseID string) models.Deadline {
	return models.Deadline{
		ID:       "d-" + courseID,
		CourseID: courseID,
		Title:    "Exam",
		Type:     models.TypeExam,
		// difficulty 5 exam due tomorrow scores 150 -> capped at 100
		Difficulty: 5,
		DueDate:    time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunOnceSnapshotsEveryStudent(t *testing.T) {
	store := &fakeStore{
		students: []*models.Student{{ID: "a"}, {ID: "b"}},
		deadlines: map[string][]models.Deadline{
			"a": {examTomorrow("c1")},
		},
		expired: 3,
	}
	tips := &fakeTips{}
	bus := &recordingBus{}

	summary, err := newTestJob(store, tips, bus).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Students)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int64(3), summary.ExpiredTips)
	assert.Len(t, store.upserts, 2)

	// Student a is at danger, student b has nothing due
	assert.Equal(t, 1, summary.TipsGenerated)
	assert.Equal(t, []string{"a"}, tips.calls)
}

func TestRunOnceFailureDoesNotAbortOthers(t *testing.T) {
	store := &fakeStore{
		students:    []*models.Student{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		deadlineErr: map[string]error{"b": errors.New("connection reset")},
	}
	tips := &fakeTips{}

	summary, err := newTestJob(store, tips, events.Nop{}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, store.upserts, 2)
}

func TestRunOnceSafeStudentsGetNoTip(t *testing.T) {
	store := &fakeStore{
		students: []*models.Student{{ID: "a"}},
		deadlines: map[string][]models.Deadline{
			"a": {{
				ID:         "d1",
				Title:      "Reading",
				Type:       models.TypeAssignment,
				Difficulty: 1,
				// 10 points in ten days, nowhere near the warning band
				DueDate: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			}},
		},
	}
	tips := &fakeTips{}

	summary, err := newTestJob(store, tips, events.Nop{}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TipsGenerated)
	assert.Empty(t, tips.calls)
}

func TestRunOnceTipFailureStillCountsStudent(t *testing.T) {
	store := &fakeStore{
		students: []*models.Student{{ID: "a"}},
		deadlines: map[string][]models.Deadline{
			"a": {examTomorrow("c1")},
		},
	}
	tips := &fakeTips{err: errors.New("generator down")}

	summary, err := newTestJob(store, tips, events.Nop{}).RunOnce(context.Background())
	require.NoError(t, err)

	// The snapshot still lands even though the tip did not
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.TipsGenerated)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, store.upserts, 1)
}

func TestRunOncePublishesEvents(t *testing.T) {
	store := &fakeStore{
		students: []*models.Student{{ID: "a"}},
		deadlines: map[string][]models.Deadline{
			"a": {examTomorrow("c1")},
		},
	}
	bus := &recordingBus{}

	_, err := newTestJob(store, &fakeTips{}, bus).RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, bus.events, 2)
	assert.Equal(t, events.TypeSnapshot, bus.events[0].Type)
	assert.Equal(t, "a", bus.events[0].StudentID)
	assert.Equal(t, 100, bus.events[0].LoadScore)
	assert.Equal(t, events.TypeTipCreated, bus.events[1].Type)
	assert.Equal(t, "tip-a", bus.events[1].TipID)
}
