package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"grnsync/internal/models"

	"github.com/gin-gonic/gin"
)

type stubRunService struct {
	summary models.RunSummary
	err     error
	calls   int
}

func (s *stubRunService) Run(ctx context.Context) (models.RunSummary, error) {
	s.calls++
	if s.err != nil {
		return models.RunSummary{}, s.err
	}
	return s.summary, nil
}

func newRunRouter(t *testing.T, service *stubRunService) *gin.Engine {
	t.Helper()

	router := newTestRouter(t)
	controller, err := NewRunController(service)
	if err != nil {
		t.Fatalf("NewRunController: %v", err)
	}
	if err := controller.RegisterRoutes(router); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return router
}

func TestRunReturnsSummary(t *testing.T) {
	service := &stubRunService{
		summary: models.RunSummary{
			FilesProcessed: 2,
			FilesFailed:    1,
			RowsAppended:   40,
			HarvestSuccess: true,
			IngestSuccess:  true,
			OverallSuccess: true,
		},
	}
	router := newRunRouter(t, service)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/run", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
	if service.calls != 1 {
		t.Fatalf("run calls = %d, want 1", service.calls)
	}

	var summary models.RunSummary
	if err := json.Unmarshal(recorder.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.FilesProcessed != 2 || !summary.OverallSuccess {
		t.Fatalf("summary = %+v", summary)
	}
}

// A run with per-file failures still responds 200; the summary flags carry
// the verdict.
func TestRunPartialFailureIsOK(t *testing.T) {
	service := &stubRunService{
		summary: models.RunSummary{FilesFailed: 3, HarvestSuccess: true, IngestSuccess: true, OverallSuccess: true},
	}
	router := newRunRouter(t, service)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/run", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
}

func TestRunServiceError(t *testing.T) {
	router := newRunRouter(t, &stubRunService{err: errors.New("not wired")})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/run", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusInternalServerError)
	}
}

func TestNewRunControllerNilService(t *testing.T) {
	if _, err := NewRunController(nil); err == nil {
		t.Fatalf("nil service: expected error")
	}
}
