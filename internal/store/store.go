package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/entail/internal/ir"
)

// Scope selects which flag a store operation reads or writes.
type Scope int

const (
	// ScopeAsserted selects triples put there by callers.
	ScopeAsserted Scope = iota + 1
	// ScopeDerived selects triples put there by the engine.
	ScopeDerived
	// ScopeAll selects every present triple. Not valid for Insert.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeAsserted:
		return "asserted"
	case ScopeDerived:
		return "derived"
	case ScopeAll:
		return "all"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ErrInvalidScope is returned for a scope an operation does not accept.
var ErrInvalidScope = errors.New("invalid scope")

// ErrInvalidTriple is returned when writing a triple with an unissued term.
var ErrInvalidTriple = errors.New("invalid triple")

// Store is the triple retrieval and update interface the engine consumes.
//
// Match returns hits in Triple.Less order for the Memory backend and in
// lexical order for SQLite; callers must not rely on either.
// Insert sets the scope's flag and reports whether it was newly set.
// Delete clears the scope's flag (both flags for ScopeAll) and reports
// whether any was set. A triple with no flags left is removed.
type Store interface {
	Match(ctx context.Context, p ir.Pattern, scope Scope) ([]ir.Match, error)
	Insert(ctx context.Context, t ir.Triple, scope Scope) (bool, error)
	Delete(ctx context.Context, t ir.Triple, scope Scope) (bool, error)
	Len(ctx context.Context, scope Scope) (int, error)
}

// IOError reports a failure of the backing storage. The engine returns it to
// callers unchanged.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err is or wraps an *IOError.
func IsIOError(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe)
}

// All returns every triple in scope as a set.
func All(ctx context.Context, st Store, scope Scope) (ir.TripleSet, error) {
	matches, err := st.Match(ctx, ir.P(ir.Var("s"), ir.Var("p"), ir.Var("o")), scope)
	if err != nil {
		return nil, err
	}
	out := make(ir.TripleSet, len(matches))
	for _, m := range matches {
		out.Add(m.Triple)
	}
	return out, nil
}

// Contains reports whether t is present in scope.
func Contains(ctx context.Context, st Store, t ir.Triple, scope Scope) (bool, error) {
	matches, err := st.Match(ctx, ir.P(ir.Bound(t.S), ir.Bound(t.P), ir.Bound(t.O)), scope)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func checkWrite(op string, t ir.Triple, scope Scope, allowAll bool) error {
	if !t.Valid() {
		return fmt.Errorf("%s %s: %w", op, t, ErrInvalidTriple)
	}
	switch scope {
	case ScopeAsserted, ScopeDerived:
		return nil
	case ScopeAll:
		if allowAll {
			return nil
		}
	}
	return fmt.Errorf("%s with %s: %w", op, scope, ErrInvalidScope)
}
