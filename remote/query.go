package remote

import "strings"

// Operator names a filter comparison.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// Order is a single ORDER BY term.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a read or delete against a named collection. It is built
// with the chainable methods below, mirroring the hosted client builder:
//
//	remote.From("listings").Select("id", "make").Eq("status", "active").
//		Order("created_at", false).Range(0, 9)
type Query struct {
	Table   string
	Columns []string
	Expand  []string
	Filters []Filter
	// AnyOf is a single OR group, AND-ed with Filters.
	AnyOf  []Filter
	Orders []Order
	Offset int
	// Limit of zero means unbounded.
	Limit int
}

// From starts a query on table.
func From(table string) *Query {
	return &Query{Table: table}
}

// Select restricts the returned columns. No columns means all.
func (q *Query) Select(columns ...string) *Query {
	q.Columns = append(q.Columns, columns...)
	return q
}

// With requests related records to be attached, e.g. a listing's dealer.
func (q *Query) With(relations ...string) *Query {
	q.Expand = append(q.Expand, relations...)
	return q
}

func (q *Query) Eq(column string, value any) *Query  { return q.where(column, OpEq, value) }
func (q *Query) Neq(column string, value any) *Query { return q.where(column, OpNeq, value) }
func (q *Query) Gt(column string, value any) *Query  { return q.where(column, OpGt, value) }
func (q *Query) Gte(column string, value any) *Query { return q.where(column, OpGte, value) }
func (q *Query) Lt(column string, value any) *Query  { return q.where(column, OpLt, value) }
func (q *Query) Lte(column string, value any) *Query { return q.where(column, OpLte, value) }
func (q *Query) In(column string, values any) *Query { return q.where(column, OpIn, values) }

// ILike adds a case-insensitive pattern match. Use ContainsPattern to build
// a substring pattern from user text.
func (q *Query) ILike(column, pattern string) *Query {
	return q.where(column, OpILike, pattern)
}

// Or adds filters that match when any one of them holds.
func (q *Query) Or(filters ...Filter) *Query {
	q.AnyOf = append(q.AnyOf, filters...)
	return q
}

// Order appends an ordering term.
func (q *Query) Order(column string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Ascending: ascending})
	return q
}

// Range selects rows from..to inclusive, like the hosted client.
func (q *Query) Range(from, to int) *Query {
	q.Offset = from
	q.Limit = to - from + 1
	if q.Limit < 0 {
		q.Limit = 0
	}
	return q
}

func (q *Query) where(column string, op Operator, value any) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// LikeEscape is the escape character used by ContainsPattern.
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern escapes LIKE wildcards in text and wraps it for a substring match.
func ContainsPattern(text string) string {
	return "%" + likeReplacer.Replace(text) + "%"
}
