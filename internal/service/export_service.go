package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/export"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
	"github.com/noah-isme/mentorship-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.ExportJobUpdate) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
	Delete(ctx context.Context, id string) error
}

type exportRowSource interface {
	ExportRequests(ctx context.Context) ([]repository.RequestExportRow, error)
	ExportMentorships(ctx context.Context) ([]repository.MentorshipExportRow, error)
	ExportUsers(ctx context.Context) ([]repository.UserExportRow, error)
}

type exportFileStore interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	CleanupOlderThan(prefix string, ttl time.Duration) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportConfig tunes export jobs.
type ExportConfig struct {
	PublicBaseURL string
	APIPrefix     string
	RetainFor     time.Duration
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService queues roster exports, renders them on the worker pool and
// serves the finished files behind signed tokens.
type ExportService struct {
	jobs      exportJobStore
	rows      exportRowSource
	files     exportFileStore
	signer    *storage.SignedURLSigner
	queue     jobDispatcher
	renderers map[models.ExportFormat]export.Renderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. The queue is attached later
// with AttachQueue because the queue itself needs Handle and Fail.
func NewExportService(jobStore exportJobStore, rows exportRowSource, files exportFileStore, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		jobs:   jobStore,
		rows:   rows,
		files:  files,
		signer: signer,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVRenderer(),
			models.ExportFormatPDF: export.NewPDFRenderer(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AttachQueue sets the dispatcher used by Request.
func (s *ExportService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// Request persists a queued job and hands it to the worker pool.
func (s *ExportService) Request(ctx context.Context, req dto.ExportRequest, actorID string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "type must be users, requests or mentorships and format csv or pdf")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	job := &models.ExportJob{
		Type:      req.Type,
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		s.markFailed(ctx, job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export job")
	}
	s.logger.Info("export queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("format", string(job.Format)))
	return job, nil
}

// Status reports the job and, once finished, its signed download URL.
func (s *ExportService) Status(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	resp := &dto.ExportStatusResponse{ExportJob: job}
	if job.Status == models.ExportStatusFinished && job.ResultURL != nil {
		resp.DownloadURL = *job.ResultURL
	}
	return resp, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, key, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, "/"+token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	contentType := "application/octet-stream"
	if renderer, ok := s.renderers[job.Format]; ok {
		contentType = renderer.ContentType()
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(key),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPending requeues jobs left behind by a previous process.
func (s *ExportService) RecoverPending(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.jobs.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to list pending export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// Handle renders one queued export. Errors are retried by the queue.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := s.jobs.Update(ctx, record.ID, repository.ExportJobUpdate{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	renderer, ok := s.renderers[record.Format]
	if !ok {
		return fmt.Errorf("unsupported export format %q", record.Format)
	}
	dataset, err := s.dataset(ctx, record.Type)
	if err != nil {
		return err
	}
	body, err := renderer.Render(dataset)
	if err != nil {
		return fmt.Errorf("render %s export: %w", record.Format, err)
	}

	key := fmt.Sprintf("%s/%s-%s%s", record.Type, record.Type, s.now().UTC().Format("20060102-150405"), renderer.Extension())
	if _, err := s.files.Save(key, body); err != nil {
		return err
	}
	token, _, err := s.signer.Generate(record.ID, key)
	if err != nil {
		return fmt.Errorf("sign export download: %w", err)
	}

	finished := models.ExportStatusFinished
	progress = 100
	url := fmt.Sprintf("%s%s/exports/download/%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), strings.TrimRight(s.cfg.APIPrefix, "/"), token)
	finishedAt := s.now().UTC()
	clear := ""
	if err := s.jobs.Update(ctx, record.ID, repository.ExportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		FilePath:     &key,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &finishedAt,
	}); err != nil {
		return err
	}
	s.metrics.RecordExport(models.ExportStatusFinished)
	s.logger.Info("export finished", zap.String("job_id", record.ID), zap.Int("rows", len(dataset.Rows)))
	return nil
}

// Fail marks a job that exhausted its retries.
func (s *ExportService) Fail(ctx context.Context, job jobs.Job, cause error) {
	s.markFailed(ctx, job.ID, cause)
}

// Cleanup removes finished exports older than the retention window and
// returns how many jobs were purged.
func (s *ExportService) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.RetainFor)
	purged := 0
	for {
		batch, err := s.jobs.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			return purged, err
		}
		for _, job := range batch {
			if job.FilePath != nil && *job.FilePath != "" {
				if err := s.files.Delete(*job.FilePath); err != nil {
					s.logger.Warn("failed to delete export file", zap.String("job_id", job.ID), zap.Error(err))
				}
			}
			if err := s.jobs.Delete(ctx, job.ID); err != nil {
				return purged, err
			}
			purged++
		}
		if len(batch) < 100 {
			break
		}
	}
	for _, exportType := range []models.ExportType{models.ExportTypeUsers, models.ExportTypeRequests, models.ExportTypeMentorships} {
		if _, err := s.files.CleanupOlderThan(string(exportType), s.cfg.RetainFor); err != nil {
			s.logger.Warn("export directory sweep failed", zap.String("type", string(exportType)), zap.Error(err))
		}
	}
	return purged, nil
}

func (s *ExportService) markFailed(ctx context.Context, id string, cause error) {
	failed := models.ExportStatusFailed
	progress := 100
	msg := "export failed"
	if cause != nil {
		msg = cause.Error()
	}
	now := s.now().UTC()
	if err := s.jobs.Update(ctx, id, repository.ExportJobUpdate{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", id), zap.Error(err))
	}
	s.metrics.RecordExport(models.ExportStatusFailed)
}

func (s *ExportService) dataset(ctx context.Context, exportType models.ExportType) (export.Dataset, error) {
	switch exportType {
	case models.ExportTypeRequests:
		rows, err := s.rows.ExportRequests(ctx)
		if err != nil {
			return export.Dataset{}, err
		}
		data := export.Dataset{
			Title: "Mentorship requests",
			Columns: []export.Column{
				{Key: "id", Label: "Request ID", Width: 2},
				{Key: "mentee", Label: "Mentee", Width: 1.5},
				{Key: "mentor", Label: "Mentor", Width: 1.5},
				{Key: "status", Label: "Status"},
				{Key: "created_at", Label: "Sent"},
				{Key: "updated_at", Label: "Updated"},
			},
		}
		for _, row := range rows {
			data.AddRow(map[string]string{
				"id":         row.ID,
				"mentee":     row.MenteeName,
				"mentor":     row.MentorName,
				"status":     row.Status,
				"created_at": exportTime(&row.CreatedAt),
				"updated_at": exportTime(&row.UpdatedAt),
			})
		}
		return data, nil
	case models.ExportTypeMentorships:
		rows, err := s.rows.ExportMentorships(ctx)
		if err != nil {
			return export.Dataset{}, err
		}
		data := export.Dataset{
			Title: "Mentorships",
			Columns: []export.Column{
				{Key: "id", Label: "Mentorship ID", Width: 2},
				{Key: "mentor", Label: "Mentor", Width: 1.5},
				{Key: "mentee", Label: "Mentee", Width: 1.5},
				{Key: "started_at", Label: "Started"},
				{Key: "ended_at", Label: "Ended"},
				{Key: "open", Label: "Open", Width: 0.5},
			},
		}
		for _, row := range rows {
			data.AddRow(map[string]string{
				"id":         row.ID,
				"mentor":     row.MentorName,
				"mentee":     row.MenteeName,
				"started_at": exportTime(&row.StartedAt),
				"ended_at":   exportTime(row.EndedAt),
				"open":       strconv.FormatBool(row.EndedAt == nil),
			})
		}
		return data, nil
	case models.ExportTypeUsers:
		rows, err := s.rows.ExportUsers(ctx)
		if err != nil {
			return export.Dataset{}, err
		}
		data := export.Dataset{
			Title: "Users",
			Columns: []export.Column{
				{Key: "id", Label: "User ID", Width: 2},
				{Key: "full_name", Label: "Name", Width: 1.5},
				{Key: "email", Label: "Email", Width: 2},
				{Key: "role", Label: "Role", Width: 0.75},
				{Key: "created_at", Label: "Joined"},
			},
		}
		for _, row := range rows {
			data.AddRow(map[string]string{
				"id":         row.ID,
				"full_name":  row.FullName,
				"email":      row.Email,
				"role":       row.Role,
				"created_at": exportTime(&row.CreatedAt),
			})
		}
		return data, nil
	default:
		return export.Dataset{}, fmt.Errorf("unsupported export type %q", exportType)
	}
}

func exportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
