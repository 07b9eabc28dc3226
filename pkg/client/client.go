// Package client is a Go SDK for the load-engine API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a Go SDK for the load-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new load-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DeadlineLoad is one deadline's contribution to a daily score
type DeadlineLoad struct {
	DeadlineID string  `json:"deadline_id"`
	Title      string  `json:"title"`
	CourseName string  `json:"course_name"`
	DaysUntil  int     `json:"days_until"`
	LoadPoints float64 `json:"load_points"`
	Difficulty int     `json:"difficulty"`
	Type       string  `json:"type"`
}

// DailyLoad is one day of a student's computed load
type DailyLoad struct {
	Date           time.Time      `json:"date"`
	LoadScore      int            `json:"load_score"`
	RiskLevel      string         `json:"risk_level"`
	DeadlinesCount int            `json:"deadlines_count"`
	Deadlines      []DeadlineLoad `json:"deadlines"`
}

// LoadReport is a student's load series with its peak days
type LoadReport struct {
	StudentID string      `json:"student_id"`
	Days      int         `json:"days"`
	Series    []DailyLoad `json:"series"`
	PeakDays  []DailyLoad `json:"peak_days"`
}

// ClassDayLoad is a course's average student load for one day
type ClassDayLoad struct {
	Date        time.Time `json:"date"`
	AverageLoad int       `json:"average_load"`
}

// ClassLoadReport is a course's class-average load series
type ClassLoadReport struct {
	CourseID string         `json:"course_id"`
	Students int            `json:"students"`
	Days     int            `json:"days"`
	Series   []ClassDayLoad `json:"series"`
}

// ConflictDeadline is one member of a conflicting deadline group
type ConflictDeadline struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Difficulty int    `json:"difficulty"`
	CourseName string `json:"course_name"`
}

// AlternativeDate is a scored relocation suggestion for a conflict
type AlternativeDate struct {
	Date              time.Time `json:"date"`
	ExistingDeadlines int       `json:"existing_deadlines"`
	DaysFromConflict  int       `json:"days_from_conflict"`
	Suitability       int       `json:"suitability_score"`
}

// Conflict is a day with multiple deadlines due at once
type Conflict struct {
	Date            time.Time          `json:"date"`
	Count           int                `json:"count"`
	Deadlines       []ConflictDeadline `json:"deadlines"`
	Severity        string             `json:"severity"`
	TotalDifficulty int                `json:"total_difficulty"`
	SuggestedDates  []AlternativeDate  `json:"suggested_dates"`
}

// Deadline is a course deadline
type Deadline struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	CourseName string    `json:"course_name,omitempty"`
	DueDate    time.Time `json:"due_date"`
	Difficulty int       `json:"difficulty"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tip is a generated piece of advice
type Tip struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Text          string      `json:"text"`
	Type          string      `json:"type"`
	Priority      string      `json:"priority"`
	LoadScore     int         `json:"load_score,omitempty"`
	RiskLevel     string      `json:"risk_level,omitempty"`
	CourseID      string      `json:"course_id,omitempty"`
	AffectedDates []time.Time `json:"affected_dates,omitempty"`
	IsRead        bool        `json:"is_read"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// CreateDeadlineRequest creates a new deadline
type CreateDeadlineRequest struct {
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	CourseName string    `json:"course_name,omitempty"`
	DueDate    time.Time `json:"due_date"`
	Difficulty int       `json:"difficulty,omitempty"`
	Type       string    `json:"type,omitempty"`
}

// UpdateDeadlineRequest partially updates a deadline; zero fields keep their
// stored values
type UpdateDeadlineRequest struct {
	Title      string     `json:"title,omitempty"`
	CourseName string     `json:"course_name,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Difficulty int        `json:"difficulty,omitempty"`
	Type       string     `json:"type,omitempty"`
}

// StudentLoad retrieves a student's load series with peak days
func (c *Client) StudentLoad(ctx context.Context, studentID string, days int) (*LoadReport, error) {
	path := fmt.Sprintf("/api/v1/students/%s/load", studentID)
	if days > 0 {
		path += fmt.Sprintf("?days=%d", days)
	}

	var report LoadReport
	if err := c.get(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// StudentLoadToday retrieves a student's load computed for today
func (c *Client) StudentLoadToday(ctx context.Context, studentID string) (*DailyLoad, error) {
	var daily DailyLoad
	if err := c.get(ctx, fmt.Sprintf("/api/v1/students/%s/load/today", studentID), &daily); err != nil {
		return nil, err
	}
	return &daily, nil
}

// CourseConflicts retrieves a course's deadline conflicts with relocation
// suggestions
func (c *Client) CourseConflicts(ctx context.Context, courseID string) ([]Conflict, error) {
	var data struct {
		Conflicts []Conflict `json:"conflicts"`
		Total     int        `json:"total"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/v1/courses/%s/conflicts", courseID), &data); err != nil {
		return nil, err
	}
	return data.Conflicts, nil
}

// CourseLoad retrieves a course's class-average load series
func (c *Client) CourseLoad(ctx context.Context, courseID string, days int) (*ClassLoadReport, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/load", courseID)
	if days > 0 {
		path += fmt.Sprintf("?days=%d", days)
	}

	var report ClassLoadReport
	if err := c.get(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CourseDeadlines lists a course's deadlines
func (c *Client) CourseDeadlines(ctx context.Context, courseID string) ([]Deadline, error) {
	var data struct {
		Deadlines []Deadline `json:"deadlines"`
		Total     int        `json:"total"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/v1/courses/%s/deadlines", courseID), &data); err != nil {
		return nil, err
	}
	return data.Deadlines, nil
}

// CreateDeadline creates a new deadline
func (c *Client) CreateDeadline(ctx context.Context, req CreateDeadlineRequest) (*Deadline, error) {
	var d Deadline
	if err := c.do(ctx, "POST", "/api/v1/deadlines", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeadline retrieves a deadline by ID
func (c *Client) GetDeadline(ctx context.Context, id string) (*Deadline, error) {
	var d Deadline
	if err := c.get(ctx, fmt.Sprintf("/api/v1/deadlines/%s", id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDeadline updates a deadline
func (c *Client) UpdateDeadline(ctx context.Context, id string, req UpdateDeadlineRequest) (*Deadline, error) {
	var d Deadline
	if err := c.do(ctx, "PUT", fmt.Sprintf("/api/v1/deadlines/%s", id), req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDeadline removes a deadline
func (c *Client) DeleteDeadline(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/api/v1/deadlines/%s", id), nil, nil)
}

// GenerateStudentTip generates and stores advice for a student
func (c *Client) GenerateStudentTip(ctx context.Context, studentID string, days int) (*Tip, error) {
	req := map[string]interface{}{"student_id": studentID}
	if days > 0 {
		req["days"] = days
	}

	var tip Tip
	if err := c.do(ctx, "POST", "/api/v1/tips/student", req, &tip); err != nil {
		return nil, err
	}
	return &tip, nil
}

// GenerateProfessorSuggestion generates scheduling advice for a course's
// professor
func (c *Client) GenerateProfessorSuggestion(ctx context.Context, courseID string, days int) (*Tip, error) {
	req := map[string]interface{}{"course_id": courseID}
	if days > 0 {
		req["days"] = days
	}

	var tip Tip
	if err := c.do(ctx, "POST", "/api/v1/tips/professor", req, &tip); err != nil {
		return nil, err
	}
	return &tip, nil
}

// UserTips lists a user's newest unexpired tips
func (c *Client) UserTips(ctx context.Context, userID string, limit int) ([]Tip, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tips", userID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var data struct {
		Tips  []Tip `json:"tips"`
		Total int   `json:"total"`
	}
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Tips, nil
}

// MarkTipRead flags a tip as read
func (c *Client) MarkTipRead(ctx context.Context, id string) (*Tip, error) {
	var tip Tip
	if err := c.do(ctx, "PUT", fmt.Sprintf("/api/v1/tips/%s/read", id), nil, &tip); err != nil {
		return nil, err
	}
	return &tip, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "GET", "/health", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, "GET", path, nil, out)
}

// do performs a request and decodes the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("HTTP %d: failed to unmarshal response: %w", resp.StatusCode, err)
	}

	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}
