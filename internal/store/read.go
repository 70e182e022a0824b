package store

import (
	"context"
	"fmt"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/querysql"
)

var scopeFilter = map[Scope]querysql.Filter{
	ScopeAsserted: querysql.FilterAsserted,
	ScopeDerived:  querysql.FilterDerived,
	ScopeAll:      querysql.FilterAny,
}

// Match returns every triple in scope that matches p.
// Results are ordered deterministically: ORDER BY subject, predicate, object
// COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *SQLite) Match(ctx context.Context, p ir.Pattern, scope Scope) ([]ir.Match, error) {
	filter, ok := scopeFilter[scope]
	if !ok {
		return nil, fmt.Errorf("match with %s: %w", scope, ErrInvalidScope)
	}

	query, params, err := s.compiler.Compile(p, filter)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &IOError{Op: "match", Err: err}
	}
	defer rows.Close()

	matches := []ir.Match{}
	for rows.Next() {
		var subj, pred, obj string
		if err := rows.Scan(&subj, &pred, &obj); err != nil {
			return nil, &IOError{Op: "match", Err: fmt.Errorf("scan triple: %w", err)}
		}
		t := ir.T(s.reg.Intern(subj), s.reg.Intern(pred), s.reg.Intern(obj))
		b, ok := p.Match(t, nil)
		if !ok {
			// Bound slots and repeated variables are filtered in SQL.
			return nil, &IOError{Op: "match", Err: fmt.Errorf("row %s does not match %s", t, p)}
		}
		matches = append(matches, ir.Match{Triple: t, Bindings: b})
	}

	if err := rows.Err(); err != nil {
		return nil, &IOError{Op: "match", Err: fmt.Errorf("iterate triples: %w", err)}
	}
	return matches, nil
}

// Len counts the triples in scope.
func (s *SQLite) Len(ctx context.Context, scope Scope) (int, error) {
	filter, ok := scopeFilter[scope]
	if !ok {
		return 0, fmt.Errorf("len with %s: %w", scope, ErrInvalidScope)
	}
	query, params, err := s.compiler.CompileCount(filter)
	if err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, &IOError{Op: "len", Err: err}
	}
	return n, nil
}

// restorePrefixes registers the prefixes saved by SavePrefixes. Prefixes
// already registered with a different namespace are left alone.
func (s *SQLite) restorePrefixes(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prefix, namespace FROM prefixes
		ORDER BY prefix COLLATE BINARY ASC
	`)
	if err != nil {
		return &IOError{Op: "restore prefixes", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var prefix, ns string
		if err := rows.Scan(&prefix, &ns); err != nil {
			return &IOError{Op: "restore prefixes", Err: err}
		}
		if _, exists := s.reg.Namespace(prefix); !exists {
			s.reg.AddPrefix(prefix, ns)
		}
	}
	if err := rows.Err(); err != nil {
		return &IOError{Op: "restore prefixes", Err: err}
	}
	return nil
}
