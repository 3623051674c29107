package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

type listEnvelope struct {
	Data       []map[string]interface{} `json:"data"`
	Pagination *struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalCount int `json:"total_count"`
	} `json:"pagination"`
}

func decodeEnvelope(rec *httptest.ResponseRecorder) responseEnvelope {
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return envelope
}

func decodeList(rec *httptest.ResponseRecorder) listEnvelope {
	var envelope listEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return envelope
}

func jsonBody(v interface{}) io.Reader {
	raw, _ := json.Marshal(v)
	return bytes.NewReader(raw)
}

// testContext builds a gin context for method/target, authenticated as
// userID with role when userID is not empty.
func testContext(method, target string, body io.Reader, userID string, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
	}
	return c, rec
}
