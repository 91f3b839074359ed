package runquery

import (
	"errors"
	"fmt"
	"strings"
)

// orderBy is appended to every compiled query.
const orderBy = " ORDER BY seq ASC, id COLLATE BINARY ASC"

// Compile converts p into a SELECT of selectColumns from the runs table.
// Returns (sql, params, error). A nil predicate selects every run.
func Compile(selectColumns string, p Predicate) (string, []any, error) {
	if selectColumns == "" {
		return "", nil, errors.New("runquery: no columns to select")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectColumns)
	b.WriteString(" FROM runs")

	var params []any
	if p != nil {
		where, args, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		if where != "" {
			b.WriteString(" WHERE ")
			b.WriteString(where)
			params = args
		}
	}
	b.WriteString(orderBy)
	return b.String(), params, nil
}

// compilePredicate returns the WHERE fragment for p. An empty fragment
// means p matches every row.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if err := checkColumn(pred.Column); err != nil {
			return "", nil, err
		}
		param, err := toParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("runquery: %s: %w", pred.Column, err)
		}
		return string(pred.Column) + " = ?", []any{param}, nil
	case IsNull:
		if err := checkColumn(pred.Column); err != nil {
			return "", nil, err
		}
		return string(pred.Column) + " IS NULL", nil, nil
	case NotNull:
		if err := checkColumn(pred.Column); err != nil {
			return "", nil, err
		}
		return string(pred.Column) + " IS NOT NULL", nil, nil
	case And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("runquery: unsupported predicate %T", p)
	}
}

func compileAnd(and And) (string, []any, error) {
	var parts []string
	var params []any
	for _, p := range and.Predicates {
		frag, args, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		if frag == "" {
			continue
		}
		if _, nested := p.(And); nested {
			frag = "(" + frag + ")"
		}
		parts = append(parts, frag)
		params = append(params, args...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func checkColumn(c Column) error {
	if !columns[c] {
		return fmt.Errorf("runquery: unknown column %q", c)
	}
	return nil
}

// toParam converts a predicate value to a driver parameter. Seeds are
// stored as their int64 bit pattern.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case uint64:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
