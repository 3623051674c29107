package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type fakeExportSrv struct {
	requested *dto.ExportRequest
	filePath  string
}

func (f *fakeExportSrv) Request(_ context.Context, req dto.ExportRequest, actorID string) (*models.ExportJob, error) {
	f.requested = &req
	return &models.ExportJob{ID: "export-1", Type: req.Type, Format: req.Format, Status: models.ExportStatusQueued, CreatedBy: actorID}, nil
}

func (f *fakeExportSrv) Status(_ context.Context, id string) (*dto.ExportStatusResponse, error) {
	if id != "export-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &dto.ExportStatusResponse{ExportJob: &models.ExportJob{ID: id, Status: models.ExportStatusFinished, Progress: 100}, DownloadURL: "https://mentor.uni.edu/api/v1/exports/download/tok"}, nil
}

func (f *fakeExportSrv) Download(_ context.Context, token string) (*service.ExportDownload, error) {
	if token != "tok" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := os.Open(f.filePath)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{File: file, Filename: "requests-20260302.csv", ContentType: "text/csv", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestExportCreateAccepted(t *testing.T) {
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)
	c, rec := testContext(http.MethodPost, "/exports", jsonBody(map[string]string{"type": "requests", "format": "csv"}), "admin-1", models.RoleAdmin)

	h.Create(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, srv.requested)
	assert.Equal(t, models.ExportTypeRequests, srv.requested.Type)
	assert.Equal(t, "QUEUED", decodeEnvelope(rec).Data["status"])
}

func TestExportStatusIncludesDownloadURL(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{})
	c, rec := testContext(http.MethodGet, "/exports/export-1", nil, "dean-1", models.RoleDean)
	c.Params = gin.Params{{Key: "id", Value: "export-1"}}

	h.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(rec)
	assert.Equal(t, "https://mentor.uni.edu/api/v1/exports/download/tok", envelope.Data["download_url"])
	assert.EqualValues(t, 100, envelope.Data["progress"])
}

func TestExportDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,mentee,mentor\nreq-1,Ravi,Dr. Mehta\n"), 0o600))
	h := NewExportHandler(&fakeExportSrv{filePath: path})
	c, rec := testContext(http.MethodGet, "/exports/download/tok", nil, "", "")
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	h.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="requests-20260302.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Dr. Mehta")
}

func TestExportDownloadBadToken(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{})
	c, rec := testContext(http.MethodGet, "/exports/download/forged", nil, "", "")
	c.Params = gin.Params{{Key: "token", Value: "forged"}}

	h.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
