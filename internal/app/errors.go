package app

import (
	"errors"
	"fmt"
	"net/http"

	"lexicon/api/internal/ranges"
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

// fromEngine translates the ranges engine's error taxonomy into the HTTP
// domain: NotFound -> 404, Validation -> 422, Database -> 503.
func fromEngine(err error) *DomainError {
	var nf *ranges.NotFoundError
	if errors.As(err, &nf) {
		return domainError(http.StatusNotFound, "NOT_FOUND", nf.Error(), nil)
	}
	var ve *ranges.ValidationError
	if errors.As(err, &ve) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", ve.Message, ve.Details)
	}
	var de *ranges.DatabaseError
	if errors.As(err, &de) {
		return domainError(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", de.Error(), nil)
	}
	return domainError(http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
}
