package bunclient

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-carmarket/remote"
)

// translateError turns driver failures into the remote error shape. Errors
// that are not reported by the database, such as dial failures, pass through
// unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &remote.Error{
			Code:    remote.CodeNoRows,
			Message: "JSON object requested, multiple (or no) rows returned",
			Details: "The result contains 0 rows",
			Status:  http.StatusNotAcceptable,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &remote.Error{
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
			Status:  statusForSQLState(string(pqErr.Code)),
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return translateSQLite(liteErr)
	}

	return err
}

func translateSQLite(err sqlite3.Error) *remote.Error {
	switch err.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return &remote.Error{
			Code:    remote.CodeUniqueViolation,
			Message: "duplicate key value violates unique constraint",
			Details: err.Error(),
			Status:  http.StatusConflict,
		}
	case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintForeignKey:
		return &remote.Error{
			Code:    "23000",
			Message: "integrity constraint violation",
			Details: err.Error(),
			Status:  http.StatusBadRequest,
		}
	}

	switch err.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
		return &remote.Error{
			Code:    "08006",
			Message: "unable to open database",
			Details: err.Error(),
			Status:  http.StatusServiceUnavailable,
		}
	case sqlite3.ErrAuth, sqlite3.ErrPerm:
		return &remote.Error{
			Code:    "42501",
			Message: "permission denied",
			Details: err.Error(),
			Status:  http.StatusForbidden,
		}
	}

	return &remote.Error{
		Code:    "sqlite_" + strconv.Itoa(int(err.ExtendedCode)),
		Message: err.Code.Error(),
		Details: err.Error(),
		Status:  http.StatusInternalServerError,
	}
}

func statusForSQLState(code string) int {
	switch {
	case code == remote.CodeUniqueViolation:
		return http.StatusConflict
	case len(code) >= 2 && code[:2] == "08":
		return http.StatusServiceUnavailable
	case code == "42501" || code == "28000" || code == "28P01":
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
