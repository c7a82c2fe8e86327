package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pledgecam/pledgecam-api/internal/models"
)

// ErrAlreadySubmitted is returned when a submission transaction targets a
// student whose video was already recorded as submitted.
var ErrAlreadySubmitted = fmt.Errorf("student already submitted")

// StudentRepository manages persistence for roster records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, name, grade, pledge_code, favorite_celebrity, video_submitted, url, created_at, updated_at"

// ListNotSubmitted returns students whose video has not been submitted yet,
// optionally restricted to a grade, ordered by name for a stable UI.
func (r *StudentRepository) ListNotSubmitted(ctx context.Context, grade models.Grade) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE video_submitted = false", studentColumns)
	args := []interface{}{}
	if grade != "" {
		query += " AND grade = $1"
		args = append(args, string(grade))
	}
	query += " ORDER BY name ASC"

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a single student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// MarkSubmitted flips the submission flag and records the celebrity and video
// reference in a single guarded UPDATE so the transition applies at most once
// and never half-applies. Returns sql.ErrNoRows when the id does not exist
// and ErrAlreadySubmitted when the student was submitted before.
func (r *StudentRepository) MarkSubmitted(ctx context.Context, id, celebrity, videoRef string) error {
	const query = `UPDATE students
        SET video_submitted = true, favorite_celebrity = $2, url = $3, updated_at = $4
        WHERE id = $1 AND video_submitted = false`
	res, err := r.db.ExecContext(ctx, query, id, celebrity, videoRef, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark submitted rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// The guard rejected the write: distinguish a missing id from a repeat.
	var exists int
	err = r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE id = $1 LIMIT 1", id)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("check student: %w", err)
	}
	return ErrAlreadySubmitted
}

// Create inserts a new roster record. Used by the seeder.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, grade, pledge_code, favorite_celebrity, video_submitted, url, created_at, updated_at)
        VALUES (:id, :name, :grade, :pledge_code, :favorite_celebrity, :video_submitted, :url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ListAll returns every roster record, ordered by grade then name. Feeds the
// admin submissions report.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY grade ASC, name ASC", studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// CountByGrade returns submitted/total counts per grade for the report header.
func (r *StudentRepository) CountByGrade(ctx context.Context) (map[string][2]int, error) {
	const query = `SELECT grade,
        COUNT(*) FILTER (WHERE video_submitted) AS submitted,
        COUNT(*) AS total
        FROM students GROUP BY grade ORDER BY grade ASC`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by grade: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string][2]int)
	for rows.Next() {
		var grade string
		var submitted, total int
		if err := rows.Scan(&grade, &submitted, &total); err != nil {
			return nil, fmt.Errorf("scan grade counts: %w", err)
		}
		counts[strings.TrimSpace(grade)] = [2]int{submitted, total}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grade counts: %w", err)
	}
	return counts, nil
}
