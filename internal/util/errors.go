package util

import (
	"errors"
	"net/http"
)

// ErrorKind is the closed set of failure categories the HTTP layer knows how to translate.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindAlreadySubmitted
	KindLimitExceeded
	KindValidation
	KindPermission
	KindConflict
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFoundError"
	case KindInvalidState:
		return "InvalidStateError"
	case KindAlreadySubmitted:
		return "AlreadySubmittedError"
	case KindLimitExceeded:
		return "LimitExceededError"
	case KindValidation:
		return "ValidationError"
	case KindPermission:
		return "PermissionError"
	case KindConflict:
		return "ConflictError"
	case KindPersistence:
		return "PersistenceError"
	}
	return "InternalError"
}

// HTTPStatus maps a kind onto the status code returned to clients.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindAlreadySubmitted, KindLimitExceeded, KindValidation:
		return http.StatusBadRequest
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Persistence wraps a storage failure. Nil stays nil.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindPersistence, Message: "persistence failure", Err: err}
}

// Validation builds a request-level error carrying message back to the client.
func Validation(message string) error {
	return NewError(KindValidation, message)
}

// KindOf resolves the kind of err through any wrapping; unknown errors are internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsInvalidState also matches AlreadySubmitted, which specializes it.
func IsInvalidState(err error) bool {
	k := KindOf(err)
	return k == KindInvalidState || k == KindAlreadySubmitted
}

var (
	ErrUserNotFound     = NewError(KindNotFound, "user not found")
	ErrEmailRegistered  = NewError(KindConflict, "email already registered")
	ErrInvalidLogin     = NewError(KindValidation, "invalid credentials")
	ErrPermissionDenied = NewError(KindPermission, "permission denied")

	ErrCourseNotFound   = NewError(KindNotFound, "course not found")
	ErrCourseCodeTaken  = NewError(KindConflict, "course code already exists")
	ErrClassNotFound    = NewError(KindNotFound, "class not found")
	ErrQuestionNotFound = NewError(KindNotFound, "question not found")

	ErrQuizNotFound          = NewError(KindNotFound, "quiz not found")
	ErrQuizNotActive         = NewError(KindInvalidState, "quiz is not active")
	ErrQuizNotAvailable      = NewError(KindInvalidState, "quiz is not available at this time")
	ErrQuizHasNoQuestions    = NewError(KindInvalidState, "cannot publish quiz with no questions")
	ErrInvalidQuizTransition = NewError(KindInvalidState, "quiz status cannot move backward")

	ErrAttemptNotFound         = NewError(KindNotFound, "attempt not found")
	ErrMaxAttemptsReached      = NewError(KindLimitExceeded, "maximum attempts reached")
	ErrAttemptStartContended   = NewError(KindConflict, "attempt could not be started, try again")
	ErrAttemptAlreadySubmitted = NewError(KindAlreadySubmitted, "attempt already submitted")
	ErrAttemptNotSubmitted     = NewError(KindInvalidState, "attempt not yet submitted")
	ErrAttemptExpired          = NewError(KindInvalidState, "attempt time limit exceeded")
	ErrAttemptNotGradable      = NewError(KindInvalidState, "attempt cannot be graded in its current state")
)
