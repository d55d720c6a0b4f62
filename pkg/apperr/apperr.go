// Package apperr carries the stable error kinds the workflow engines return.
// Every rejected operation surfaces one of these kinds plus a human-readable
// reason; the HTTP layer maps kinds to status codes and the caller (UI) owns
// presentation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotAMember              Kind = "NOT_A_MEMBER"
	KindForbidden               Kind = "FORBIDDEN"
	KindNotADescendant          Kind = "NOT_A_DESCENDANT"
	KindCycleDetected           Kind = "CYCLE_DETECTED"
	KindForbiddenTransition     Kind = "FORBIDDEN_TRANSITION"
	KindExtensionAlreadyPending Kind = "EXTENSION_ALREADY_PENDING"
	KindAlreadyReviewed         Kind = "ALREADY_REVIEWED"
	KindTemplateSetNotFound     Kind = "TEMPLATE_SET_NOT_FOUND"
	KindInvalidAmount           Kind = "INVALID_AMOUNT"
	KindNotFound                Kind = "NOT_FOUND"
)

// Error pairs a stable kind with a reason string. All engine rejections are
// recoverable by the caller; none crash the request.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Reason
}

// New builds an Error with a formatted reason.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, reporting false for non-engine errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is lets errors.Is match two engine errors by kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus maps a kind to the status code the response envelope uses.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotAMember, KindForbidden:
		return http.StatusForbidden
	case KindNotADescendant, KindInvalidAmount:
		return http.StatusBadRequest
	case KindForbiddenTransition, KindExtensionAlreadyPending, KindAlreadyReviewed:
		return http.StatusConflict
	case KindTemplateSetNotFound, KindNotFound:
		return http.StatusNotFound
	case KindCycleDetected:
		// data-integrity fault, not a caller mistake
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
