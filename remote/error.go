package remote

import (
	"errors"
	"fmt"
)

// Codes reported by the hosted service that callers branch on.
const (
	// CodeNoRows is returned when a single-row read matched nothing.
	CodeNoRows             = "PGRST116"
	CodeUniqueViolation    = "23505"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserAlreadyExists  = "user_already_exists"
	CodeNotAuthenticated   = "not_authenticated"
)

// Error is a well-formed failure reported by the remote service, as opposed
// to a transport failure where no answer was received.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsNoRows reports whether err is a single-row read that found nothing.
func IsNoRows(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == CodeNoRows
}

// NotAuthenticated is returned by operations that need a signed-in user.
func NotAuthenticated() *Error {
	return &Error{Code: CodeNotAuthenticated, Message: "not authenticated", Status: 401}
}
