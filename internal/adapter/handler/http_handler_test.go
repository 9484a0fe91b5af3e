package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/backoffice/internal/core/service"
)

func newTestHandler() *HTTPHandler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHTTPHandler(nil, nil, nil, nil, log)
}

func TestWriteError_KindMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{service.ErrInvalidStatus, http.StatusBadRequest, "InvalidStatus"},
		{service.ErrOrderNotFound, http.StatusNotFound, "NotFound"},
		{service.ErrAlertNotFound, http.StatusNotFound, "NotFound"},
		{service.ErrProductNotFound, http.StatusNotFound, "NotFound"},
		{service.ErrIllegalTransition, http.StatusConflict, "IllegalTransition"},
		{service.ErrStaleOrder, http.StatusUnprocessableEntity, "StaleOrderModification"},
		{service.ErrDeletionRestricted, http.StatusConflict, "DeletionRestricted"},
		{service.ErrDuplicateRequest, http.StatusConflict, "DuplicateRequest"},
		{service.ErrInvalidAdjustment, http.StatusBadRequest, "InvalidAdjustment"},
		{service.ErrInvalidQuantity, http.StatusBadRequest, "InvalidAdjustment"},
		{errors.New("database exploded"), http.StatusInternalServerError, "InternalError"},
	}

	h := newTestHandler()
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		h.writeError(c, tc.err)

		if w.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
		var body struct {
			Error errorBody `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: invalid response body: %v", tc.err, err)
		}
		if body.Error.Kind != tc.kind {
			t.Errorf("%v: expected kind %s, got %s", tc.err, tc.kind, body.Error.Kind)
		}
	}
}

func TestWriteError_InternalDetailNotExposed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandler()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.writeError(c, errors.New("dsn user:password@tcp leaked"))

	var body struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Error.Message != "internal error" {
		t.Errorf("internal detail must not leak, got %q", body.Error.Message)
	}
}

func TestActor_HeaderAndDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := actor(c); got != "system" {
		t.Errorf("expected default actor system, got %q", got)
	}

	c.Request.Header.Set("X-Admin-Actor", "jane.admin")
	if got := actor(c); got != "jane.admin" {
		t.Errorf("expected header actor, got %q", got)
	}
}
