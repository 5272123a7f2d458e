package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for clients.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindAuth          ErrorKind = "AUTH_ERROR"
	KindForbidden     ErrorKind = "FORBIDDEN"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindTotalMismatch ErrorKind = "TOTAL_MISMATCH"
	KindStock         ErrorKind = "STOCK_ERROR"
	KindNetwork       ErrorKind = "NETWORK_ERROR"
	KindUnknown       ErrorKind = "UNKNOWN"
)

// AppError is an error with a kind and the HTTP status it maps to.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another *AppError of the same kind, so errors.Is can be used
// against the Err* kind sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation    = &AppError{Kind: KindValidation}
	ErrAuth          = &AppError{Kind: KindAuth}
	ErrForbidden     = &AppError{Kind: KindForbidden}
	ErrNotFound      = &AppError{Kind: KindNotFound}
	ErrTotalMismatch = &AppError{Kind: KindTotalMismatch}
	ErrStock         = &AppError{Kind: KindStock}
	ErrNetwork       = &AppError{Kind: KindNetwork}
	ErrUnknown       = &AppError{Kind: KindUnknown}
)

func NewValidationError(format string, args ...any) *AppError {
	return &AppError{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewAuthError(format string, args ...any) *AppError {
	return &AppError{Kind: KindAuth, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...any) *AppError {
	return &AppError{Kind: KindForbidden, Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewTotalMismatchError(format string, args ...any) *AppError {
	return &AppError{Kind: KindTotalMismatch, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewStockError(format string, args ...any) *AppError {
	return &AppError{Kind: KindStock, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewNetworkError(err error, format string, args ...any) *AppError {
	return &AppError{Kind: KindNetwork, Status: http.StatusServiceUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewUnknownError(err error, format string, args ...any) *AppError {
	return &AppError{Kind: KindUnknown, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsAppError returns err as an *AppError. Errors outside the taxonomy
// become UNKNOWN.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewUnknownError(err, "Server error")
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Code    ErrorKind `json:"code"`
	Message string    `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err using the taxonomy. Details of unknown errors are
// not leaked to the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, ErrorResponse{Success: false, Code: appErr.Kind, Message: appErr.Message})
}
