package booking

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies booking failures for callers and transports.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindDuplicateIdentity Kind = "duplicate_identity"
	KindAuthMismatch      Kind = "auth_mismatch"
	KindNotFound          Kind = "not_found"
)

// Error is the typed failure returned by every booking operation.
type Error struct {
	Kind        Kind
	Message     string
	FieldErrors map[string]string
	// QuestionID names the question that rejected a capacity check.
	QuestionID uint
}

func (e *Error) Error() string {
	return e.Message
}

// Status maps the failure to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindCapacityExceeded, KindDuplicateIdentity:
		return http.StatusConflict
	case KindAuthMismatch:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is a booking Error of kind k.
func IsKind(err error, k Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == k
}

func validationError(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, FieldErrors: fields}
}

func capacityError(questionID uint, label string, quantity int) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Message:    fmt.Sprintf("Sorry, \"%s\" is full (all %d slots taken).", label, quantity),
		QuestionID: questionID,
	}
}

func eventFullError() *Error {
	return &Error{Kind: KindCapacityExceeded, Message: "Sorry, this event has reached its RSVP limit."}
}

func duplicatePinError() *Error {
	return &Error{
		Kind:    KindDuplicateIdentity,
		Message: "That PIN is already in use for this event. Please choose a different one.",
		FieldErrors: map[string]string{
			"pin": "That PIN is already in use for this event.",
		},
	}
}

// Unknown RSVP IDs and wrong PINs are indistinguishable to the caller.
var errAuthMismatch = &Error{Kind: KindAuthMismatch, Message: "Invalid RSVP ID or PIN."}

var errEventNotFound = &Error{Kind: KindNotFound, Message: "Event not found."}

func questionNotFound(id uint) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Question %d does not belong to this event.", id), QuestionID: id}
}
