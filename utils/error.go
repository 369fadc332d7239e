package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind partitions engine failures so callers can tell apart bad input,
// benign conflicts, missing rows and broken master data. Infra errors are
// never wrapped; they propagate raw and roll the transaction back.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindConflict   ErrorKind = "CONFLICT"
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindSetup      ErrorKind = "SETUP"
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func ValidationError(format string, args ...any) error {
	return &AppError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) error {
	return &AppError{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) error {
	return &AppError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// SetupError flags missing/inactive master data (purpose mappings, accounts).
// Operators fix configuration; retrying the call is pointless.
func SetupError(format string, args ...any) error {
	return &AppError{Kind: ErrorKindSetup, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's kind, or "" for infra/unknown errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ""
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
