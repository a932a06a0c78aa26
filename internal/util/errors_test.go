package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		kind   ErrorKind
		status int
	}{
		{ErrQuizNotFound, KindNotFound, http.StatusNotFound},
		{ErrQuizNotActive, KindInvalidState, http.StatusBadRequest},
		{ErrAttemptAlreadySubmitted, KindAlreadySubmitted, http.StatusBadRequest},
		{ErrMaxAttemptsReached, KindLimitExceeded, http.StatusBadRequest},
		{Validation("bad"), KindValidation, http.StatusBadRequest},
		{ErrPermissionDenied, KindPermission, http.StatusForbidden},
		{ErrEmailRegistered, KindConflict, http.StatusConflict},
		{ErrAttemptStartContended, KindConflict, http.StatusConflict},
		{Persistence(errors.New("disk")), KindPersistence, http.StatusInternalServerError},
		{errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.kind)
		}
		if got := tt.kind.HTTPStatus(); got != tt.status {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", tt.kind, got, tt.status)
		}
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", ErrAttemptExpired)
	if KindOf(wrapped) != KindInvalidState {
		t.Fatalf("KindOf(wrapped) = %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrAttemptExpired) {
		t.Fatalf("errors.Is lost the sentinel")
	}
}

func TestPersistenceKeepsDomainErrors(t *testing.T) {
	if Persistence(nil) != nil {
		t.Fatalf("Persistence(nil) should stay nil")
	}
	if got := Persistence(ErrQuizNotFound); got != ErrQuizNotFound {
		t.Fatalf("Persistence rewrapped a domain error: %v", got)
	}

	cause := errors.New("connection reset")
	err := Persistence(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Persistence should unwrap to its cause")
	}
	if err.Error() != "persistence failure: connection reset" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestIsInvalidState(t *testing.T) {
	if !IsInvalidState(ErrQuizNotActive) || !IsInvalidState(ErrAttemptAlreadySubmitted) {
		t.Fatalf("invalid state kinds not matched")
	}
	if IsInvalidState(ErrMaxAttemptsReached) || IsInvalidState(nil) {
		t.Fatalf("unexpected invalid state match")
	}
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err     error
		status  int
		kind    string
		message string
	}{
		{ErrQuizNotActive, http.StatusBadRequest, "InvalidStateError", "quiz is not active"},
		{ErrAttemptNotFound, http.StatusNotFound, "NotFoundError", "attempt not found"},
		{ErrPermissionDenied, http.StatusForbidden, "PermissionError", "permission denied"},
		{Persistence(errors.New("secret dsn")), http.StatusInternalServerError, "", "Internal server error"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleError(c, tt.err)

		if w.Code != tt.status {
			t.Fatalf("%v: status = %d, want %d", tt.err, w.Code, tt.status)
		}
		var body Response
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != tt.kind || body.Message != tt.message {
			t.Fatalf("%v: body = %+v", tt.err, body)
		}
	}
}

func TestPaging(t *testing.T) {
	tests := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", DefaultPage, DefaultLimit},
		{"3", "10", 3, 10},
		{"-1", "0", DefaultPage, DefaultLimit},
		{"x", "1000", DefaultPage, MaxLimit},
	}
	for _, tt := range tests {
		page, limit := Paging(tt.page, tt.limit)
		if page != tt.wantPage || limit != tt.wantLimit {
			t.Fatalf("Paging(%q, %q) = %d, %d", tt.page, tt.limit, page, limit)
		}
	}
}

func TestRoundAndPercent(t *testing.T) {
	if got := Round(66.666, 1); got != 66.7 {
		t.Fatalf("Round = %v", got)
	}
	if got := Round(2.25, 1); got != 2.3 {
		t.Fatalf("Round half = %v", got)
	}
	if got := Percent(1, 3); Round(got, 2) != 33.33 {
		t.Fatalf("Percent = %v", got)
	}
	if got := Percent(5, 0); got != 0 {
		t.Fatalf("Percent over zero = %v", got)
	}
}
