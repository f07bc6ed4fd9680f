package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"ink/api/internal/auth"
	"ink/api/internal/notes"
	"ink/api/internal/session"
	"ink/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func errNotFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *notes.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), map[string]any{"field": validationErr.Field}
	}
	switch {
	case errors.Is(err, notes.ErrNoNote), errors.Is(err, notes.ErrNoSource), errors.Is(err, notes.ErrNoContext):
		return http.StatusNotFound, "NOT_FOUND", err.Error(), nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case store.IsUniqueViolation(err):
		return http.StatusConflict, "CONFLICT", "Already exists", map[string]any{"constraint": store.ConstraintName(err)}
	case store.IsForeignKeyViolation(err):
		return http.StatusNotFound, "NOT_FOUND", "Referenced entity not found", map[string]any{"constraint": store.ConstraintName(err)}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
