package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"sharelist/api/internal/access"
	"sharelist/api/internal/auth"
	"sharelist/api/internal/authpw"
	"sharelist/api/internal/export"
	"sharelist/api/internal/store"
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

var errUserInactive = domainError(http.StatusForbidden, "USER_INACTIVE", "User account is inactive", nil)

func notFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func validationError(field, message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, map[string]any{"field": field})
}

func conflict(message string) *DomainError {
	return domainError(http.StatusConflict, "CONFLICT", message, nil)
}

// mapError translates any service error into the HTTP error contract.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validation *authpw.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validation.Message, map[string]any{"field": validation.Field}
	}
	switch {
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "List not found", nil
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, authpw.ErrEmailTaken), errors.Is(err, authpw.ErrUsernameTaken):
		return http.StatusConflict, "CONFLICT", err.Error(), nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Conflict", nil
	case errors.Is(err, authpw.ErrInvalidCredentials), errors.Is(err, authpw.ErrInactive):
		return http.StatusUnauthorized, "UNAUTHORIZED", authpw.ErrInvalidCredentials.Error(), nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
