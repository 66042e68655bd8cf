package failure

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Kind classifies a normalized failure.
type Kind string

const (
	KindNetwork    Kind = "NETWORK_ERROR"
	KindValidation Kind = "VALIDATION_ERROR"
	KindConnection Kind = "CONNECTION_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindDuplicate  Kind = "DUPLICATE_ERROR"
	KindUnknown    Kind = "UNKNOWN"
)

// Fixed messages used when the underlying error does not carry a usable one.
const (
	MessageNetwork    = "Network request failed. Please check your configuration and connectivity."
	MessageConnection = "Unable to reach the marketplace service. Please try again later."
	MessageUnknown    = "An unexpected error occurred"
)

// Error is the single failure shape returned by the marketplace facade.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	// Code is the remote-reported code, when there was one.
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToGoError converts the failure into a categorized go-errors value carrying the
// HTTP status the transport layer should answer with.
func (e *Error) ToGoError() *goerrors.Error {
	return goerrors.Wrap(e, categoryFor(e.Kind), e.Message).
		WithTextCode(string(e.Kind)).
		WithCode(StatusFor(e.Kind))
}

// New creates a failure of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation creates a VALIDATION_ERROR with a detail naming the failed constraint.
func Validation(message, detail string) *Error {
	return &Error{Kind: KindValidation, Message: message, Detail: detail}
}

// Connection wraps a failed connectivity probe.
func Connection(err error) *Error {
	e := &Error{Kind: KindConnection, Message: MessageConnection, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// StatusFor maps a kind to the HTTP status used by transport adapters.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindDuplicate:
		return http.StatusConflict
	case KindNetwork, KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func categoryFor(kind Kind) goerrors.Category {
	switch kind {
	case KindValidation:
		return goerrors.CategoryValidation
	case KindAuth:
		return goerrors.CategoryAuth
	case KindDuplicate:
		return goerrors.CategoryConflict
	case KindNetwork, KindConnection:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}
