package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

const exportJobColumns = `id, type, format, status, progress, file_path, result_url, error_message, created_by, created_at, finished_at`

// ExportRepository persists export job metadata.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (:id, :type, :format, :status, :progress, :file_path, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// ExportJobUpdate lists the mutable fields of a job; nil fields are left untouched.
type ExportJobUpdate struct {
	Status       *models.ExportStatus
	Progress     *int
	FilePath     *string
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ExportRepository) Update(ctx context.Context, id string, params ExportJobUpdate) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.FilePath != nil {
		add("file_path", *params.FilePath)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ExportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job row.
func (r *ExportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM export_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete export job: %w", err)
	}
	return nil
}

// ListQueued returns jobs still waiting for a worker, oldest first.
func (r *ExportRepository) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued export jobs: %w", err)
	}
	return jobs, nil
}
