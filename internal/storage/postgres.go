package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/load-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Roster

// ListActiveStudents returns every student the daily aggregation should cover
func (r *PostgresRepository) ListActiveStudents(ctx context.Context) ([]*models.Student, error) {
	query := `
		SELECT id, name, email, active, created_at
		FROM students
		WHERE active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		var st models.Student
		var email sql.NullString
		if err := rows.Scan(&st.ID, &st.Name, &email, &st.Active, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		st.Email = email.String
		students = append(students, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}

	return students, nil
}

// GetStudent retrieves a student by ID
func (r *PostgresRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	query := `
		SELECT id, name, email, active, created_at
		FROM students
		WHERE id = $1
	`

	var st models.Student
	var email sql.NullString
	err := r.pool.QueryRow(ctx, query, id).Scan(&st.ID, &st.Name, &email, &st.Active, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	st.Email = email.String

	return &st, nil
}

// ListStudentIDsForCourse returns the IDs of students enrolled in a course
func (r *PostgresRepository) ListStudentIDsForCourse(ctx context.Context, courseID string) ([]string, error) {
	query := `SELECT student_id FROM enrollments WHERE course_id = $1`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetCourse retrieves a course by ID
func (r *PostgresRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, name, professor_id, created_at
		FROM courses
		WHERE id = $1
	`

	var c models.Course
	var professorID sql.NullString
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &professorID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	c.ProfessorID = professorID.String

	return &c, nil
}

// Deadlines

const deadlineColumns = `d.id, d.course_id, d.title, c.name, d.due_date, d.difficulty, d.type, d.created_at`

// CreateDeadline creates a new deadline record
func (r *PostgresRepository) CreateDeadline(ctx context.Context, d *models.Deadline) error {
	query := `
		INSERT INTO deadlines (id, course_id, title, due_date, difficulty, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.CourseID,
		d.Title,
		d.DueDate,
		d.Difficulty,
		string(d.Type),
		d.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create deadline: %w", err)
	}

	return nil
}

// GetDeadline retrieves a deadline by ID
func (r *PostgresRepository) GetDeadline(ctx context.Context, id string) (*models.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines d
		JOIN courses c ON c.id = d.course_id
		WHERE d.id = $1
	`

	d, err := scanDeadline(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get deadline: %w", err)
	}

	return d, nil
}

// UpdateDeadline updates an existing deadline
func (r *PostgresRepository) UpdateDeadline(ctx context.Context, d *models.Deadline) error {
	query := `
		UPDATE deadlines
		SET title = $2, due_date = $3, difficulty = $4, type = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, d.ID, d.Title, d.DueDate, d.Difficulty, string(d.Type))
	if err != nil {
		return fmt.Errorf("failed to update deadline: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteDeadline removes a deadline
func (r *PostgresRepository) DeleteDeadline(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM deadlines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deadline: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListDeadlinesForCourse returns all deadlines belonging to a course
func (r *PostgresRepository) ListDeadlinesForCourse(ctx context.Context, courseID string) ([]models.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines d
		JOIN courses c ON c.id = d.course_id
		WHERE d.course_id = $1
		ORDER BY d.due_date ASC
	`

	return r.queryDeadlines(ctx, query, courseID)
}

// ListDeadlinesForStudent returns all deadlines across a student's enrolled
// courses
func (r *PostgresRepository) ListDeadlinesForStudent(ctx context.Context, studentID string) ([]models.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines d
		JOIN courses c ON c.id = d.course_id
		JOIN enrollments e ON e.course_id = d.course_id
		WHERE e.student_id = $1
		ORDER BY d.due_date ASC
	`

	return r.queryDeadlines(ctx, query, studentID)
}

func (r *PostgresRepository) queryDeadlines(ctx context.Context, query string, args ...any) ([]models.Deadline, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deadlines: %w", err)
	}
	defer rows.Close()

	var deadlines []models.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deadline: %w", err)
		}
		deadlines = append(deadlines, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deadlines: %w", err)
	}

	return deadlines, nil
}

func scanDeadline(row pgx.Row) (*models.Deadline, error) {
	var d models.Deadline
	var typeStr string

	err := row.Scan(
		&d.ID,
		&d.CourseID,
		&d.Title,
		&d.CourseName,
		&d.DueDate,
		&d.Difficulty,
		&typeStr,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = models.DeadlineType(typeStr)
	return &d, nil
}

// Load snapshots

// UpsertStudentLoad writes a per-(student, date) snapshot. The unique key
// makes concurrent upserts for the same day idempotent.
func (r *PostgresRepository) UpsertStudentLoad(ctx context.Context, sl *models.StudentLoad) error {
	breakdownJSON, err := json.Marshal(sl.Deadlines)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO student_loads (student_id, date, load_score, risk_level, deadlines_count, breakdown, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (student_id, date) DO UPDATE
		SET load_score = EXCLUDED.load_score,
		    risk_level = EXCLUDED.risk_level,
		    deadlines_count = EXCLUDED.deadlines_count,
		    breakdown = EXCLUDED.breakdown,
		    updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		sl.StudentID,
		models.Midnight(sl.Date),
		sl.LoadScore,
		string(sl.RiskLevel),
		sl.DeadlinesCount,
		breakdownJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert student load: %w", err)
	}

	return nil
}

// GetStudentLoad retrieves the persisted snapshot for one student and day
func (r *PostgresRepository) GetStudentLoad(ctx context.Context, studentID string, date time.Time) (*models.StudentLoad, error) {
	query := `
		SELECT student_id, date, load_score, risk_level, deadlines_count, breakdown, updated_at
		FROM student_loads
		WHERE student_id = $1 AND date = $2
	`

	var sl models.StudentLoad
	var riskStr string
	var breakdownJSON []byte

	err := r.pool.QueryRow(ctx, query, studentID, models.Midnight(date)).Scan(
		&sl.StudentID,
		&sl.Date,
		&sl.LoadScore,
		&riskStr,
		&sl.DeadlinesCount,
		&breakdownJSON,
		&sl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get student load: %w", err)
	}

	sl.RiskLevel = models.RiskLevel(riskStr)
	if err := json.Unmarshal(breakdownJSON, &sl.Deadlines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}

	return &sl, nil
}

// Tips

// CreateTip persists a generated tip
func (r *PostgresRepository) CreateTip(ctx context.Context, tip *models.Tip) error {
	datesJSON, err := json.Marshal(tip.AffectedDates)
	if err != nil {
		return fmt.Errorf("failed to marshal affected dates: %w", err)
	}

	query := `
		INSERT INTO tips (id, user_id, tip_text, tip_type, priority, load_score, risk_level, course_id, affected_dates, is_read, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		tip.ID,
		tip.UserID,
		tip.Text,
		string(tip.Type),
		string(tip.Priority),
		tip.LoadScore,
		nullString(string(tip.RiskLevel)),
		nullString(tip.CourseID),
		datesJSON,
		tip.IsRead,
		tip.CreatedAt,
		tip.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create tip: %w", err)
	}

	return nil
}

// ListActiveTips returns a user's unexpired tips, newest first
func (r *PostgresRepository) ListActiveTips(ctx context.Context, userID string, limit int) ([]*models.Tip, error) {
	query := `
		SELECT id, user_id, tip_text, tip_type, priority, load_score, risk_level, course_id, affected_dates, is_read, created_at, expires_at
		FROM tips
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tips: %w", err)
	}
	defer rows.Close()

	var tips []*models.Tip
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tip: %w", err)
		}
		tips = append(tips, tip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tips: %w", err)
	}

	return tips, nil
}

// MarkTipRead flags a tip as read and returns the updated record
func (r *PostgresRepository) MarkTipRead(ctx context.Context, id string) (*models.Tip, error) {
	query := `
		UPDATE tips
		SET is_read = TRUE
		WHERE id = $1
		RETURNING id, user_id, tip_text, tip_type, priority, load_score, risk_level, course_id, affected_dates, is_read, created_at, expires_at
	`

	tip, err := scanTip(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark tip read: %w", err)
	}

	return tip, nil
}

// DeleteExpiredTips removes tips past their expiry and reports how many
func (r *PostgresRepository) DeleteExpiredTips(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM tips WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tips: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanTip(row pgx.Row) (*models.Tip, error) {
	var tip models.Tip
	var typeStr, priorityStr string
	var riskStr, courseID sql.NullString
	var datesJSON []byte

	err := row.Scan(
		&tip.ID,
		&tip.UserID,
		&tip.Text,
		&typeStr,
		&priorityStr,
		&tip.LoadScore,
		&riskStr,
		&courseID,
		&datesJSON,
		&tip.IsRead,
		&tip.CreatedAt,
		&tip.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	tip.Type = models.TipType(typeStr)
	tip.Priority = models.TipPriority(priorityStr)
	tip.RiskLevel = models.RiskLevel(riskStr.String)
	tip.CourseID = courseID.String

	if datesJSON != nil {
		if err := json.Unmarshal(datesJSON, &tip.AffectedDates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal affected dates: %w", err)
		}
	}

	return &tip, nil
}

// API Clients

// GetClientByAPIKey retrieves an active API client by its key
func (r *PostgresRepository) GetClientByAPIKey(ctx context.Context, apiKey string) (*models.APIClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions
		FROM api_clients
		WHERE api_key = $1
	`

	var c models.APIClient
	var lastUsed sql.NullTime

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&c.ID,
		&c.Name,
		&c.APIKey,
		&c.IsActive,
		&c.CreatedAt,
		&lastUsed,
		&c.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}

	return &c, nil
}

// UpdateClientLastUsed stamps the client's last_used_at
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// Helpers

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
