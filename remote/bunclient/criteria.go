package bunclient

import (
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-carmarket/remote"
)

var comparisons = map[remote.Operator]string{
	remote.OpEq:  "=",
	remote.OpNeq: "<>",
	remote.OpGt:  ">",
	remote.OpGte: ">=",
	remote.OpLt:  "<",
	remote.OpLte: "<=",
}

// column renders a column reference. Select queries run against a model and
// qualify columns with its alias so joined relations cannot shadow them.
func column(name string, qualified bool) (string, []any) {
	if qualified {
		return "?TableAlias.?", []any{bun.Ident(name)}
	}
	return "?", []any{bun.Ident(name)}
}

// filterExpr renders f as a bun query fragment and its arguments.
func filterExpr(f remote.Filter, qualified bool) (string, []any, error) {
	col, args := column(f.Column, qualified)

	switch f.Op {
	case remote.OpEq, remote.OpNeq:
		if f.Value == nil {
			if f.Op == remote.OpEq {
				return col + " IS NULL", args, nil
			}
			return col + " IS NOT NULL", args, nil
		}
		return col + " " + comparisons[f.Op] + " ?", append(args, f.Value), nil
	case remote.OpGt, remote.OpGte, remote.OpLt, remote.OpLte:
		return col + " " + comparisons[f.Op] + " ?", append(args, f.Value), nil
	case remote.OpILike:
		return "LOWER(" + col + ") LIKE LOWER(?) ESCAPE ?", append(args, f.Value, remote.LikeEscape), nil
	case remote.OpIn:
		return col + " IN (?)", append(args, bun.In(f.Value)), nil
	default:
		return "", nil, fmt.Errorf("bunclient: unsupported operator %q on %s", f.Op, f.Column)
	}
}

// selectCriteria translates q into criteria applied to a model select.
func selectCriteria(q *remote.Query) ([]repository.SelectCriteria, error) {
	var criteria []repository.SelectCriteria

	if len(q.Columns) > 0 {
		columns := q.Columns
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Column(columns...)
		})
	}

	for _, rel := range q.Expand {
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Relation(rel)
		})
	}

	for _, f := range q.Filters {
		expr, args, err := filterExpr(f, true)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where(expr, args...)
		})
	}

	if len(q.AnyOf) > 0 {
		exprs := make([]string, len(q.AnyOf))
		args := make([][]any, len(q.AnyOf))
		for i, f := range q.AnyOf {
			expr, a, err := filterExpr(f, true)
			if err != nil {
				return nil, err
			}
			exprs[i], args[i] = expr, a
		}
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
				for i := range exprs {
					g = g.WhereOr(exprs[i], args[i]...)
				}
				return g
			})
		})
	}

	for _, o := range q.Orders {
		direction := "DESC"
		if o.Ascending {
			direction = "ASC"
		}
		col := o.Column
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("?TableAlias.? "+direction, bun.Ident(col))
		})
	}

	if q.Limit > 0 || q.Offset > 0 {
		limit, offset := q.Limit, q.Offset
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			if limit > 0 {
				sq = sq.Limit(limit)
			}
			if offset > 0 {
				sq = sq.Offset(offset)
			}
			return sq
		})
	}

	return criteria, nil
}

// deleteCriteria translates q's filters for a table delete. OR groups are
// not used by deletes and are rejected.
func deleteCriteria(q *remote.Query) ([]repository.DeleteCriteria, error) {
	if len(q.AnyOf) > 0 {
		return nil, fmt.Errorf("bunclient: OR filters are not supported on delete from %s", q.Table)
	}
	if len(q.Filters) == 0 {
		return nil, fmt.Errorf("bunclient: refusing unfiltered delete from %s", q.Table)
	}

	criteria := make([]repository.DeleteCriteria, 0, len(q.Filters))
	for _, f := range q.Filters {
		expr, args, err := filterExpr(f, false)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, func(dq *bun.DeleteQuery) *bun.DeleteQuery {
			return dq.Where(expr, args...)
		})
	}
	return criteria, nil
}
