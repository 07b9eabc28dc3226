package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campus-pulse/load-engine/internal/conflict"
	"github.com/campus-pulse/load-engine/internal/load"
	"github.com/campus-pulse/load-engine/internal/models"
	"github.com/campus-pulse/load-engine/internal/storage"
	"github.com/campus-pulse/load-engine/internal/tips"
)

// defaultLoadDays is how far ahead a student load series looks when the
// caller gives no range
const defaultLoadDays = 30

// defaultCourseLoadDays is the default range for class-average series
const defaultCourseLoadDays = 14

// maxLoadDays caps requested series length
const maxLoadDays = 90

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// queryInt parses a positive integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return def
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	checks := make(map[string]string, len(results))
	ready := true
	for name, err := range results {
		if err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// Load handlers

func (s *Server) handleStudentLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	days := queryInt(r, "days", defaultLoadDays)
	if days > maxLoadDays {
		days = maxLoadDays
	}

	student, err := s.repo.GetStudent(r.Context(), id)
	if err != nil {
		slog.Error("failed to get student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "not_found", "student not found")
		return
	}

	today := models.Midnight(time.Now())

	series, hit := s.cachedSeries(r, id, today, days)
	if !hit {
		deadlines, err := s.repo.ListDeadlinesForStudent(r.Context(), id)
		if err != nil {
			slog.Error("failed to list deadlines", "error", err, "student_id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute load")
			return
		}
		series = load.CalculateLoadRange(deadlines, today, days)
		if s.cache != nil {
			s.cache.SetSeries(r.Context(), id, today, days, series)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"student_id": id,
		"days":       days,
		"series":     series,
		"peak_days":  load.FindPeakLoadDays(series, load.DefaultPeakThreshold),
	})
}

func (s *Server) cachedSeries(r *http.Request, studentID string, start time.Time, days int) ([]models.DailyLoad, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.GetSeries(r.Context(), studentID, start, days)
}

func (s *Server) handleStudentLoadToday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	student, err := s.repo.GetStudent(r.Context(), id)
	if err != nil {
		slog.Error("failed to get student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "not_found", "student not found")
		return
	}

	// Prefer the snapshot the aggregation job persisted for today; compute
	// live only when the job has not covered this student yet
	snapshot, err := s.repo.GetStudentLoad(r.Context(), id, time.Now())
	if err != nil {
		slog.Error("failed to get load snapshot", "error", err, "student_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get load")
		return
	}
	if snapshot != nil {
		respondJSON(w, http.StatusOK, snapshot)
		return
	}

	deadlines, err := s.repo.ListDeadlinesForStudent(r.Context(), id)
	if err != nil {
		slog.Error("failed to list deadlines", "error", err, "student_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute load")
		return
	}

	daily := load.CalculateDailyLoad(deadlines, time.Now())
	respondJSON(w, http.StatusOK, models.StudentLoad{
		StudentID: id,
		DailyLoad: daily,
	})
}

func (s *Server) handleCourseLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course id is required")
		return
	}

	days := queryInt(r, "days", defaultCourseLoadDays)
	if days > maxLoadDays {
		days = maxLoadDays
	}

	course, err := s.repo.GetCourse(r.Context(), id)
	if err != nil {
		slog.Error("failed to get course", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get course")
		return
	}
	if course == nil {
		respondError(w, http.StatusNotFound, "not_found", "course not found")
		return
	}

	perStudent, err := s.courseStudentDeadlines(r, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute class load")
		return
	}

	today := models.Midnight(time.Now())
	series := make([]models.ClassDayLoad, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i)
		series = append(series, models.ClassDayLoad{
			Date:        date,
			AverageLoad: load.CalculateClassAverageLoad(perStudent, date),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"course_id": id,
		"students":  len(perStudent),
		"days":      days,
		"series":    series,
	})
}

func (s *Server) courseStudentDeadlines(r *http.Request, courseID string) ([][]models.Deadline, error) {
	studentIDs, err := s.repo.ListStudentIDsForCourse(r.Context(), courseID)
	if err != nil {
		slog.Error("failed to list course students", "error", err, "course_id", courseID)
		return nil, err
	}

	perStudent := make([][]models.Deadline, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		deadlines, err := s.repo.ListDeadlinesForStudent(r.Context(), studentID)
		if err != nil {
			slog.Error("failed to list deadlines", "error", err, "student_id", studentID)
			return nil, err
		}
		perStudent = append(perStudent, deadlines)
	}
	return perStudent, nil
}

// Conflict handlers

type conflictWithSuggestions struct {
	models.Conflict
	SuggestedDates []models.AlternativeDate `json:"suggested_dates"`
}

func (s *Server) handleCourseConflicts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course id is required")
		return
	}

	course, err := s.repo.GetCourse(r.Context(), id)
	if err != nil {
		slog.Error("failed to get course", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get course")
		return
	}
	if course == nil {
		respondError(w, http.StatusNotFound, "not_found", "course not found")
		return
	}

	deadlines, err := s.repo.ListDeadlinesForCourse(r.Context(), id)
	if err != nil {
		slog.Error("failed to list deadlines", "error", err, "course_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to detect conflicts")
		return
	}

	conflicts := conflict.DetectConflicts(deadlines)
	out := make([]conflictWithSuggestions, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictWithSuggestions{
			Conflict:       c,
			SuggestedDates: conflict.SuggestAlternativeDates(c, deadlines, conflict.DefaultSuggestionRange),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"course_id": id,
		"conflicts": out,
		"total":     len(out),
	})
}

// Deadline handlers

type deadlineRequest struct {
	CourseID   string     `json:"course_id"`
	Title      string     `json:"title"`
	CourseName string     `json:"course_name"`
	DueDate    *time.Time `json:"due_date"`
	Difficulty int        `json:"difficulty"`
	Type       string     `json:"type"`
}

func (s *Server) handleCreateDeadline(w http.ResponseWriter, r *http.Request) {
	var req deadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.CourseID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course_id is required")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "title is required")
		return
	}
	if req.DueDate == nil || req.DueDate.IsZero() {
		respondError(w, http.StatusBadRequest, "validation_error", "due_date is required")
		return
	}

	difficulty := req.Difficulty
	if difficulty == 0 {
		difficulty = 3
	}
	if difficulty < 1 || difficulty > 5 {
		respondError(w, http.StatusBadRequest, "validation_error", "difficulty must be between 1 and 5")
		return
	}

	dtype := models.DeadlineType(req.Type)
	if req.Type == "" {
		dtype = models.TypeAssignment
	} else if !dtype.Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "type must be assignment, project or exam")
		return
	}

	d := &models.Deadline{
		ID:         uuid.NewString(),
		CourseID:   req.CourseID,
		Title:      req.Title,
		CourseName: req.CourseName,
		DueDate:    *req.DueDate,
		Difficulty: difficulty,
		Type:       dtype,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateDeadline(r.Context(), d); err != nil {
		slog.Error("failed to create deadline", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create deadline")
		return
	}

	s.invalidateCourseLoads(r, d.CourseID)
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDeadline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "deadline id is required")
		return
	}

	d, err := s.repo.GetDeadline(r.Context(), id)
	if err != nil {
		slog.Error("failed to get deadline", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get deadline")
		return
	}
	if d == nil {
		respondError(w, http.StatusNotFound, "not_found", "deadline not found")
		return
	}

	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDeadline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "deadline id is required")
		return
	}

	d, err := s.repo.GetDeadline(r.Context(), id)
	if err != nil {
		slog.Error("failed to get deadline", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get deadline")
		return
	}
	if d == nil {
		respondError(w, http.StatusNotFound, "not_found", "deadline not found")
		return
	}

	var req deadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Partial update: absent fields keep their stored values
	if req.Title != "" {
		d.Title = req.Title
	}
	if req.CourseName != "" {
		d.CourseName = req.CourseName
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		d.DueDate = *req.DueDate
	}
	if req.Difficulty != 0 {
		if req.Difficulty < 1 || req.Difficulty > 5 {
			respondError(w, http.StatusBadRequest, "validation_error", "difficulty must be between 1 and 5")
			return
		}
		d.Difficulty = req.Difficulty
	}
	if req.Type != "" {
		dtype := models.DeadlineType(req.Type)
		if !dtype.Valid() {
			respondError(w, http.StatusBadRequest, "validation_error", "type must be assignment, project or exam")
			return
		}
		d.Type = dtype
	}

	if err := s.repo.UpdateDeadline(r.Context(), d); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "deadline not found")
			return
		}
		slog.Error("failed to update deadline", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update deadline")
		return
	}

	s.invalidateCourseLoads(r, d.CourseID)
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDeadline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "deadline id is required")
		return
	}

	d, err := s.repo.GetDeadline(r.Context(), id)
	if err != nil {
		slog.Error("failed to get deadline", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete deadline")
		return
	}
	if d == nil {
		respondError(w, http.StatusNotFound, "not_found", "deadline not found")
		return
	}

	if err := s.repo.DeleteDeadline(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "deadline not found")
			return
		}
		slog.Error("failed to delete deadline", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete deadline")
		return
	}

	s.invalidateCourseLoads(r, d.CourseID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "deadline deleted",
	})
}

func (s *Server) handleCourseDeadlines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course id is required")
		return
	}

	deadlines, err := s.repo.ListDeadlinesForCourse(r.Context(), id)
	if err != nil {
		slog.Error("failed to list deadlines", "error", err, "course_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list deadlines")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deadlines": deadlines,
		"total":     len(deadlines),
	})
}

// invalidateCourseLoads drops cached load series for every student enrolled
// in the course. Failures only log; cached entries expire on their own.
func (s *Server) invalidateCourseLoads(r *http.Request, courseID string) {
	if s.cache == nil {
		return
	}

	studentIDs, err := s.repo.ListStudentIDsForCourse(r.Context(), courseID)
	if err != nil {
		slog.Warn("failed to list students for cache invalidation", "error", err, "course_id", courseID)
		return
	}
	if err := s.cache.InvalidateStudents(r.Context(), studentIDs...); err != nil {
		slog.Warn("failed to invalidate cached loads", "error", err, "course_id", courseID)
	}
}

// Tip handlers

type studentTipRequest struct {
	StudentID string `json:"student_id"`
	Days      int    `json:"days"`
}

func (s *Server) handleGenerateStudentTip(w http.ResponseWriter, r *http.Request) {
	var req studentTipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student_id is required")
		return
	}

	days := req.Days
	if days <= 0 {
		days = 7
	}
	if days > maxLoadDays {
		days = maxLoadDays
	}

	student, err := s.repo.GetStudent(r.Context(), req.StudentID)
	if err != nil {
		slog.Error("failed to get student", "error", err, "id", req.StudentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "not_found", "student not found")
		return
	}

	deadlines, err := s.repo.ListDeadlinesForStudent(r.Context(), req.StudentID)
	if err != nil {
		slog.Error("failed to list deadlines", "error", err, "student_id", req.StudentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute load")
		return
	}

	series := load.CalculateLoadRange(deadlines, time.Now(), days)
	tip, err := s.tips.GenerateStudentTip(r.Context(), student, series)
	if err != nil {
		if errors.Is(err, tips.ErrTipGeneration) {
			respondError(w, http.StatusBadGateway, "tip_generation_failed", "advice generator is unavailable")
			return
		}
		slog.Error("failed to generate student tip", "error", err, "student_id", req.StudentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate tip")
		return
	}

	respondJSON(w, http.StatusCreated, tip)
}

type professorTipRequest struct {
	CourseID string `json:"course_id"`
	Days     int    `json:"days"`
}

func (s *Server) handleProfessorSuggestion(w http.ResponseWriter, r *http.Request) {
	var req professorTipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CourseID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course_id is required")
		return
	}

	days := req.Days
	if days <= 0 {
		days = defaultCourseLoadDays
	}
	if days > maxLoadDays {
		days = maxLoadDays
	}

	course, err := s.repo.GetCourse(r.Context(), req.CourseID)
	if err != nil {
		slog.Error("failed to get course", "error", err, "id", req.CourseID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get course")
		return
	}
	if course == nil {
		respondError(w, http.StatusNotFound, "not_found", "course not found")
		return
	}

	deadlines, err := s.repo.ListDeadlinesForCourse(r.Context(), req.CourseID)
	if err != nil {
		slog.Error("failed to list deadlines", "error", err, "course_id", req.CourseID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list deadlines")
		return
	}

	perStudent, err := s.courseStudentDeadlines(r, req.CourseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute class load")
		return
	}

	today := models.Midnight(time.Now())
	classDays := make([]models.ClassDayLoad, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i)
		classDays = append(classDays, models.ClassDayLoad{
			Date:        date,
			AverageLoad: load.CalculateClassAverageLoad(perStudent, date),
		})
	}

	tip, err := s.tips.GenerateProfessorSuggestion(r.Context(), course, classDays, deadlines, conflict.DetectConflicts(deadlines))
	if err != nil {
		if errors.Is(err, tips.ErrTipGeneration) {
			respondError(w, http.StatusBadGateway, "tip_generation_failed", "advice generator is unavailable")
			return
		}
		slog.Error("failed to generate professor suggestion", "error", err, "course_id", req.CourseID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate suggestion")
		return
	}

	respondJSON(w, http.StatusCreated, tip)
}

func (s *Server) handleUserTips(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user id is required")
		return
	}

	limit := queryInt(r, "limit", 0)

	userTips, err := s.tips.UserTips(r.Context(), id, limit)
	if err != nil {
		slog.Error("failed to list tips", "error", err, "user_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list tips")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tips":  userTips,
		"total": len(userTips),
	})
}

func (s *Server) handleMarkTipRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "tip id is required")
		return
	}

	tip, err := s.tips.MarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "tip not found")
			return
		}
		slog.Error("failed to mark tip read", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to mark tip read")
		return
	}

	respondJSON(w, http.StatusOK, tip)
}
