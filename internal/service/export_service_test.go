package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
	"github.com/noah-isme/mentorship-api/pkg/storage"
)

type fakeExportJobs struct {
	jobs    map[string]*models.ExportJob
	deleted []string
	nextID  int
}

func newFakeExportJobs() *fakeExportJobs {
	return &fakeExportJobs{jobs: map[string]*models.ExportJob{}}
}

func (f *fakeExportJobs) Create(_ context.Context, job *models.ExportJob) error {
	f.nextID++
	job.ID = "export-" + string(rune('0'+f.nextID))
	job.CreatedAt = time.Now().UTC()
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *fakeExportJobs) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *fakeExportJobs) Update(_ context.Context, id string, params repository.ExportJobUpdate) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeExportJobs) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range f.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeExportJobs) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range f.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeExportJobs) Delete(_ context.Context, id string) error {
	delete(f.jobs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type stubExportRows struct {
	err error
}

func (s stubExportRows) ExportRequests(context.Context) ([]repository.RequestExportRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []repository.RequestExportRow{
		{ID: "req-1", MenteeName: "Ravi", MentorName: "Dr. Mehta", Status: "pending", CreatedAt: now, UpdatedAt: now},
	}, nil
}

func (s stubExportRows) ExportMentorships(context.Context) ([]repository.MentorshipExportRow, error) {
	return []repository.MentorshipExportRow{
		{ID: "ms-1", MentorName: "Dr. Mehta", MenteeName: "Ravi", StartedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func (s stubExportRows) ExportUsers(context.Context) ([]repository.UserExportRow, error) {
	return []repository.UserExportRow{
		{ID: "u-1", FullName: "Ravi", Email: "ravi@uni.edu", Role: "mentee", CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
	}, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T, rows exportRowSource) (*ExportService, *fakeExportJobs, *recordingQueue, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := newFakeExportJobs()
	queue := &recordingQueue{}
	svc := NewExportService(store, rows, files, storage.NewSignedURLSigner("secret", time.Hour), nil, ExportConfig{
		PublicBaseURL: "https://mentor.uni.edu",
		APIPrefix:     "/api/v1",
		RetainFor:     time.Hour,
	}, nil, nil)
	svc.AttachQueue(queue)
	return svc, store, queue, files
}

func TestExportRequestQueuesJob(t *testing.T) {
	svc, store, queue, _ := newExportFixture(t, stubExportRows{})

	job, err := svc.Request(context.Background(), dto.ExportRequest{Type: models.ExportTypeRequests, Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, "admin-1", store.jobs[job.ID].CreatedBy)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestExportRequestRejectsUnknownType(t *testing.T) {
	svc, _, queue, _ := newExportFixture(t, stubExportRows{})

	_, err := svc.Request(context.Background(), dto.ExportRequest{Type: "grades", Format: models.ExportFormatCSV}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.enqueued)
}

func TestExportRequestMarksFailedWhenQueueClosed(t *testing.T) {
	svc, store, queue, _ := newExportFixture(t, stubExportRows{})
	queue.err = jobs.ErrQueueClosed

	_, err := svc.Request(context.Background(), dto.ExportRequest{Type: models.ExportTypeUsers, Format: models.ExportFormatPDF}, "dean-1")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportHandleRendersAndSignsDownload(t *testing.T) {
	svc, store, _, _ := newExportFixture(t, stubExportRows{})
	ctx := context.Background()

	job, err := svc.Request(ctx, dto.ExportRequest{Type: models.ExportTypeRequests, Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: job.ID}))

	stored := store.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "https://mentor.uni.edu/api/v1/exports/download/"))

	status, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, *stored.ResultURL, status.DownloadURL)

	token := (*stored.ResultURL)[strings.LastIndex(*stored.ResultURL, "/")+1:]
	download, err := svc.Download(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Dr. Mehta")
}

func TestExportHandleSourceErrorIsRetryable(t *testing.T) {
	svc, store, _, _ := newExportFixture(t, stubExportRows{err: errors.New("db down")})
	ctx := context.Background()

	job, err := svc.Request(ctx, dto.ExportRequest{Type: models.ExportTypeRequests, Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)

	err = svc.Handle(ctx, jobs.Job{ID: job.ID})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusProcessing, store.jobs[job.ID].Status)

	svc.Fail(ctx, jobs.Job{ID: job.ID}, err)
	assert.Equal(t, models.ExportStatusFailed, store.jobs[job.ID].Status)
	require.NotNil(t, store.jobs[job.ID].ErrorMessage)
	assert.Equal(t, "db down", *store.jobs[job.ID].ErrorMessage)
}

func TestExportDownloadRejectsForeignToken(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, stubExportRows{})

	other := storage.NewSignedURLSigner("other-secret", time.Hour)
	token, _, err := other.Generate("export-1", "requests/requests.csv")
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportDownloadBeforeFinish(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, stubExportRows{})
	ctx := context.Background()

	job, err := svc.Request(ctx, dto.ExportRequest{Type: models.ExportTypeUsers, Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)
	token, _, err := svc.signer.Generate(job.ID, "users/users.csv")
	require.NoError(t, err)

	_, err = svc.Download(ctx, token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportStatusUnknownJob(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, stubExportRows{})

	_, err := svc.Status(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCleanupPurgesExpiredJobs(t *testing.T) {
	svc, store, _, files := newExportFixture(t, stubExportRows{})
	ctx := context.Background()

	job, err := svc.Request(ctx, dto.ExportRequest{Type: models.ExportTypeMentorships, Format: models.ExportFormatPDF}, "hod-1")
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: job.ID}))
	key := *store.jobs[job.ID].FilePath

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	purged, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, []string{job.ID}, store.deleted)

	_, err = files.Open(key)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExportRecoverPendingRequeues(t *testing.T) {
	svc, store, queue, _ := newExportFixture(t, stubExportRows{})
	store.jobs["export-9"] = &models.ExportJob{ID: "export-9", Type: models.ExportTypeUsers, Format: models.ExportFormatCSV, Status: models.ExportStatusQueued}

	svc.RecoverPending(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "export-9", queue.enqueued[0].ID)
}
