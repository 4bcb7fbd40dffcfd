package email

import (
	"errors"
	"fmt"
)

type ErrorReason string

const (
	REASON_UNKNOWN           ErrorReason = "UNKNOWN_ERROR"
	REASON_RATE_LIMITED      ErrorReason = "RATE_LIMITED"
	REASON_INVALID_EMAIL     ErrorReason = "INVALID_EMAIL"
	REASON_UNVERIFIED_DOMAIN ErrorReason = "UNVERIFIED_DOMAIN"
	REASON_MESSAGE_REJECTED  ErrorReason = "MESSAGE_REJECTED"
	REASON_SERVICE_ERROR     ErrorReason = "SERVICE_ERROR"
	REASON_VALIDATION_ERROR  ErrorReason = "VALIDATION_ERROR"
	REASON_AUTH_ERROR        ErrorReason = "AUTH_ERROR"

	REASON_CONFIG_ERROR    ErrorReason = "CONFIG_ERROR"
	REASON_INVALID_MESSAGE ErrorReason = "INVALID_MESSAGE"
	REASON_UNKNOWN_LIST    ErrorReason = "UNKNOWN_LIST"
	REASON_PROVIDER_ERROR  ErrorReason = "PROVIDER_ERROR"
)

var _ error = &Error{}

type Error struct {
	Message string
	Reason  ErrorReason
	// Field is the message field that failed validation, if any.
	Field string
	// Token is the unresolved recipient entry for UNKNOWN_LIST errors.
	Token string
	Cause error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s.", e.Reason, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" Cause: %s", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsReason reports whether any *Error in err's chain carries reason.
func IsReason(err error, reason ErrorReason) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Reason == reason {
			return true
		}
		err = e.Cause
	}
	return false
}

func newError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Message: message,
		Reason:  reason,
		Cause:   cause,
	}
}

func NewUnknownError(message string, cause error) *Error {
	return newError(REASON_UNKNOWN, message, cause)
}

func NewRateLimitedError(message string, cause error) *Error {
	return newError(REASON_RATE_LIMITED, message, cause)
}

func NewInvalidEmailError(message string, cause error) *Error {
	return newError(REASON_INVALID_EMAIL, message, cause)
}

func NewUnverifiedDomainError(message string, cause error) *Error {
	return newError(REASON_UNVERIFIED_DOMAIN, message, cause)
}

func NewMessageRejectedError(message string, cause error) *Error {
	return newError(REASON_MESSAGE_REJECTED, message, cause)
}

func NewServiceError(message string, cause error) *Error {
	return newError(REASON_SERVICE_ERROR, message, cause)
}

func NewValidationError(message string, cause error) *Error {
	return newError(REASON_VALIDATION_ERROR, message, cause)
}

func NewAuthError(message string, cause error) *Error {
	return newError(REASON_AUTH_ERROR, message, cause)
}

func NewConfigError(message string, cause error) *Error {
	return newError(REASON_CONFIG_ERROR, message, cause)
}

// NewInvalidMessageError reports a missing or mistyped message field along
// with a printable dump of the whole input.
func NewInvalidMessageError(field, dump string) *Error {
	e := newError(REASON_INVALID_MESSAGE, fmt.Sprintf("invalid %s value: %s", field, dump), nil)
	e.Field = field
	return e
}

func NewUnknownListError(token string) *Error {
	e := newError(REASON_UNKNOWN_LIST, fmt.Sprintf("invalid email list: %s", token), nil)
	e.Token = token
	return e
}

// NewProviderError wraps a failed provider call. payload is the serialized
// outgoing message.
func NewProviderError(payload string, cause error) *Error {
	return newError(REASON_PROVIDER_ERROR, "error sending email: "+payload, cause)
}
