package failure

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/goliatone/go-carmarket/remote"
)

var duplicateCodes = map[string]bool{
	remote.CodeUniqueViolation:   true,
	remote.CodeUserAlreadyExists: true,
	"email_exists":               true,
}

var authCodes = map[string]bool{
	"PGRST301":                    true,
	"PGRST302":                    true,
	"42501":                       true,
	"28000":                       true,
	"28P01":                       true,
	remote.CodeInvalidCredentials: true,
	remote.CodeNotAuthenticated:   true,
	"session_not_found":           true,
}

// Normalize collapses any error into an *Error. Rules apply in order:
// transport failures, remote-reported failures mapped by code, then a
// generic fallback. A nil error stays nil.
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if isTransport(err) {
		return &Error{Kind: KindNetwork, Message: MessageNetwork, Detail: err.Error(), Err: err}
	}

	var re *remote.Error
	if errors.As(err, &re) {
		return &Error{
			Kind:    kindForCode(re.Code),
			Message: messageOr(re.Message, MessageUnknown),
			Detail:  re.Details,
			Code:    re.Code,
			Err:     err,
		}
	}

	return &Error{Kind: KindUnknown, Message: MessageUnknown, Detail: err.Error(), Err: err}
}

func kindForCode(code string) Kind {
	switch {
	case duplicateCodes[code]:
		return KindDuplicate
	case authCodes[code]:
		return KindAuth
	case len(code) == 5 && strings.HasPrefix(code, "08"):
		// SQLSTATE class 08: connection exception
		return KindConnection
	default:
		return KindUnknown
	}
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
