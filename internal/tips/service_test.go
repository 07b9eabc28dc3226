package tips

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/load-engine/internal/models"
	"github.com/campus-pulse/load-engine/internal/prompts"
)

type fakeGenerator struct {
	text string
	err  error

	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeGenerator) Generate(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	return f.text, f.err
}

type fakeStore struct {
	created []*models.Tip
	tips    []*models.Tip

	createErr error
	lastLimit int
}

func (f *fakeStore) CreateTip(_ context.Context, tip *models.Tip) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, tip)
	return nil
}

func (f *fakeStore) ListActiveTips(_ context.Context, _ string, limit int) ([]*models.Tip, error) {
	f.lastLimit = limit
	return f.tips, nil
}

func (f *fakeStore) MarkTipRead(_ context.Context, id string) (*models.Tip, error) {
	for _, tip := range f.tips {
		if tip.ID == id {
			tip.IsRead = true
			return tip, nil
		}
	}
	return nil, errors.New("record not found")
}

func newTestService(store *fakeStore, gen *fakeGenerator) *Service {
	svc := NewService(store, gen, prompts.NewRenderer(), 7*24*time.Hour)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func day(date time.Time, score int) models.DailyLoad {
	return models.DailyLoad{
		Date:      date,
		LoadScore: score,
		RiskLevel: models.RiskForScore(score),
	}
}

func TestGenerateStudentTipHighLoad(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{text: "Start the exam prep on Monday."}
	svc := newTestService(store, gen)

	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	series := []models.DailyLoad{
		day(monday, 20),
		day(monday.AddDate(0, 0, 1), 85),
		day(monday.AddDate(0, 0, 2), 45),
	}

	tip, err := svc.GenerateStudentTip(context.Background(), &models.Student{ID: "stu-1", Name: "Alex"}, series)
	require.NoError(t, err)

	assert.Equal(t, "Start the exam prep on Monday.", tip.Text)
	assert.Equal(t, models.TipStudentWorkload, tip.Type)
	assert.Equal(t, models.PriorityHigh, tip.Priority)
	assert.Equal(t, 85, tip.LoadScore)
	assert.Equal(t, models.RiskDanger, tip.RiskLevel)
	// Only the two days at or above the warning band are affected
	assert.Len(t, tip.AffectedDates, 2)

	require.Len(t, store.created, 1)
	assert.Equal(t, "stu-1", store.created[0].UserID)
	assert.Equal(t, tip.CreatedAt.Add(7*24*time.Hour), tip.ExpiresAt)

	// The quiet day must not leak into the prompt
	assert.NotContains(t, gen.lastUser, "20% load")
	assert.Contains(t, gen.lastUser, "85% load")
}

func TestGenerateStudentTipMediumPriority(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{text: "Spread the work out."}
	svc := newTestService(store, gen)

	series := []models.DailyLoad{day(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), 55)}

	tip, err := svc.GenerateStudentTip(context.Background(), &models.Student{ID: "stu-1"}, series)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, tip.Priority)
}

func TestGenerateStudentTipQuietWeek(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{text: "should not be used"}
	svc := newTestService(store, gen)

	series := []models.DailyLoad{
		day(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 10),
		day(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), 39),
	}

	tip, err := svc.GenerateStudentTip(context.Background(), &models.Student{ID: "stu-1"}, series)
	require.NoError(t, err)

	assert.Equal(t, models.TipStudyTips, tip.Type)
	assert.Equal(t, models.PriorityLow, tip.Priority)
	assert.NotEmpty(t, tip.Text)
	assert.Zero(t, gen.calls, "quiet weeks must not call the generator")
	assert.Len(t, store.created, 1)
}

func TestGenerateStudentTipGeneratorFailure(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{err: errors.New("upstream timeout")}
	svc := newTestService(store, gen)

	series := []models.DailyLoad{day(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), 80)}

	_, err := svc.GenerateStudentTip(context.Background(), &models.Student{ID: "stu-1"}, series)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTipGeneration)
	assert.Empty(t, store.created)
}

func TestGenerateProfessorSuggestion(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{text: "Move the project deadline a week out."}
	svc := newTestService(store, gen)

	course := &models.Course{ID: "crs-1", Name: "Databases", ProfessorID: "prof-1"}
	classDays := []models.ClassDayLoad{
		{Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), AverageLoad: 75},
		{Date: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), AverageLoad: 30},
	}

	tip, err := svc.GenerateProfessorSuggestion(context.Background(), course, classDays, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "prof-1", tip.UserID)
	assert.Equal(t, "crs-1", tip.CourseID)
	assert.Equal(t, models.TipProfessorSuggestion, tip.Type)
	assert.Equal(t, models.PriorityMedium, tip.Priority)
	assert.Len(t, tip.AffectedDates, 1)

	assert.Contains(t, gen.lastUser, "Databases")
	assert.Contains(t, gen.lastUser, "75% average load")
	assert.NotContains(t, gen.lastUser, "30% average load")
}

func TestGenerateProfessorSuggestionHighPriority(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{text: "Rebalance the schedule."}
	svc := newTestService(store, gen)

	course := &models.Course{ID: "crs-1", Name: "Databases", ProfessorID: "prof-1"}
	var classDays []models.ClassDayLoad
	for i := 0; i < 4; i++ {
		classDays = append(classDays, models.ClassDayLoad{
			Date:        time.Date(2025, 3, 12+i, 0, 0, 0, 0, time.UTC),
			AverageLoad: 70,
		})
	}

	tip, err := svc.GenerateProfessorSuggestion(context.Background(), course, classDays, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, tip.Priority)
}

func TestUserTipsDefaultLimit(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeGenerator{})

	_, err := svc.UserTips(context.Background(), "stu-1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTipLimit, store.lastLimit)

	_, err = svc.UserTips(context.Background(), "stu-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.lastLimit)
}

func TestMarkRead(t *testing.T) {
	store := &fakeStore{tips: []*models.Tip{{ID: "tip-1"}}}
	svc := newTestService(store, &fakeGenerator{})

	tip, err := svc.MarkRead(context.Background(), "tip-1")
	require.NoError(t, err)
	assert.True(t, tip.IsRead)
}
