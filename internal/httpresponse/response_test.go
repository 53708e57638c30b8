package httpresponse

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/saga-coordinator/internal/apperrors"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestSuccess_Writes200(t *testing.T) {
	c, w := newTestContext()
	Success(c, map[string]string{"x": "y"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreated_Writes201(t *testing.T) {
	c, w := newTestContext()
	Created(c, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestError_MapsSagaNotFoundTo404(t *testing.T) {
	c, w := newTestContext()
	Error(c, apperrors.ErrSagaNotFound)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestError_MapsInvalidParamsTo400(t *testing.T) {
	c, w := newTestContext()
	Error(c, apperrors.ErrInvalidParams)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestError_MapsInternalErrorTo500(t *testing.T) {
	c, w := newTestContext()
	Error(c, apperrors.ErrInternal)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
