package bunclient

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-carmarket/remote"
)

func TestTranslateError(t *testing.T) {
	dial := errors.New("dial tcp: connection refused")

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), code: remote.CodeNoRows, status: http.StatusNotAcceptable},
		{name: "pq unique", err: &pq.Error{Code: "23505", Message: "duplicate key"}, code: "23505", status: http.StatusConflict},
		{name: "pq connection", err: &pq.Error{Code: "08006", Message: "connection failure"}, code: "08006", status: http.StatusServiceUnavailable},
		{name: "pq auth", err: &pq.Error{Code: "28P01", Message: "password authentication failed"}, code: "28P01", status: http.StatusForbidden},
		{name: "pq other", err: &pq.Error{Code: "42P01", Message: "relation does not exist"}, code: "42P01", status: http.StatusBadRequest},
		{name: "sqlite unique", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, code: remote.CodeUniqueViolation, status: http.StatusConflict},
		{name: "sqlite primary key", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, code: remote.CodeUniqueViolation, status: http.StatusConflict},
		{name: "sqlite not null", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, code: "23000", status: http.StatusBadRequest},
		{name: "sqlite cant open", err: sqlite3.Error{Code: sqlite3.ErrCantOpen}, code: "08006", status: http.StatusServiceUnavailable},
		{name: "sqlite perm", err: sqlite3.Error{Code: sqlite3.ErrPerm}, code: "42501", status: http.StatusForbidden},
		{name: "sqlite busy", err: sqlite3.Error{Code: sqlite3.ErrBusy, ExtendedCode: sqlite3.ErrBusyRecovery}, code: fmt.Sprintf("sqlite_%d", int(sqlite3.ErrBusyRecovery)), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var re *remote.Error
			if !errors.As(translateError(tt.err), &re) {
				t.Fatalf("expected *remote.Error, got %T", translateError(tt.err))
			}
			if re.Code != tt.code {
				t.Errorf("code = %q, want %q", re.Code, tt.code)
			}
			if re.Status != tt.status {
				t.Errorf("status = %d, want %d", re.Status, tt.status)
			}
		})
	}

	if got := translateError(dial); got != dial {
		t.Errorf("transport errors should pass through, got %v", got)
	}
	if translateError(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestFilterExpr(t *testing.T) {
	tests := []struct {
		filter remote.Filter
		expr   string
		args   int
	}{
		{remote.Filter{Column: "make", Op: remote.OpEq, Value: "Ford"}, "?TableAlias.? = ?", 2},
		{remote.Filter{Column: "dealer_id", Op: remote.OpEq, Value: nil}, "?TableAlias.? IS NULL", 1},
		{remote.Filter{Column: "dealer_id", Op: remote.OpNeq, Value: nil}, "?TableAlias.? IS NOT NULL", 1},
		{remote.Filter{Column: "price", Op: remote.OpLte, Value: 100}, "?TableAlias.? <= ?", 2},
		{remote.Filter{Column: "make", Op: remote.OpILike, Value: "%f%"}, "LOWER(?TableAlias.?) LIKE LOWER(?) ESCAPE ?", 3},
		{remote.Filter{Column: "id", Op: remote.OpIn, Value: []string{"a"}}, "?TableAlias.? IN (?)", 2},
	}

	for _, tt := range tests {
		expr, args, err := filterExpr(tt.filter, true)
		if err != nil {
			t.Fatalf("filterExpr(%+v): %v", tt.filter, err)
		}
		if expr != tt.expr {
			t.Errorf("filterExpr(%+v) = %q, want %q", tt.filter, expr, tt.expr)
		}
		if len(args) != tt.args {
			t.Errorf("filterExpr(%+v) args = %d, want %d", tt.filter, len(args), tt.args)
		}
	}

	expr, _, err := filterExpr(remote.Filter{Column: "id", Op: remote.OpEq, Value: "x"}, false)
	if err != nil || expr != "? = ?" {
		t.Errorf("unqualified expr = %q, %v", expr, err)
	}
}

func TestDeleteCriteria(t *testing.T) {
	q := remote.From("bookmarks").Or(remote.Filter{Column: "id", Op: remote.OpEq, Value: "x"})
	if _, err := deleteCriteria(q); err == nil {
		t.Error("expected OR deletes to be rejected")
	}

	criteria, err := deleteCriteria(remote.From("bookmarks").Eq("id", "x").Eq("user_id", "u"))
	if err != nil {
		t.Fatalf("deleteCriteria: %v", err)
	}
	if len(criteria) != 2 {
		t.Errorf("expected 2 criteria, got %d", len(criteria))
	}
}

func TestSelectCriteriaCount(t *testing.T) {
	q := remote.From("listings").
		Select("id", "make").
		With("Dealer").
		Eq("status", "active").
		Or(remote.Filter{Column: "make", Op: remote.OpILike, Value: "%a%"}).
		Order("created_at", false).
		Range(0, 9)

	criteria, err := selectCriteria(q)
	if err != nil {
		t.Fatalf("selectCriteria: %v", err)
	}
	// columns, relation, filter, or-group, order, range
	if len(criteria) != 6 {
		t.Errorf("expected 6 criteria, got %d", len(criteria))
	}
}
