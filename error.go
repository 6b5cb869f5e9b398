package harvest

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// The first three are generic; the rest form the crawl failure taxonomy.
// Rejection codes (EOVERSIZED, ETOOSHORT, EDUPLICATE) mark content that is
// skipped without counting as a failure; failure codes (ETRANSIENT,
// ERATELIMITED, EHTTP) mark URLs consumed by an unsuccessful fetch.
const (
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"

	ETRANSIENT   = "transient_network"
	ERATELIMITED = "rate_limited"
	EHTTP        = "http_error"
	EOVERSIZED   = "oversized_response"
	ETOOSHORT    = "content_too_short"
	EDUPLICATE   = "duplicate_content"
	EPERSISTENCE = "persistence_error"
)

// Error represents an application-specific error. Errors carry a machine
// readable code and a human readable message.
type Error struct {
	// Machine readable error code.
	Code string

	// Human readable message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("harvest error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRejection reports whether err marks content that was skipped rather
// than failed: oversized responses, too-short extractions and duplicates.
func IsRejection(err error) bool {
	switch ErrorCode(err) {
	case EOVERSIZED, ETOOSHORT, EDUPLICATE:
		return true
	}
	return false
}
