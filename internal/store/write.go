package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/entail/internal/ir"
)

var flagColumn = map[Scope]string{
	ScopeAsserted: "asserted",
	ScopeDerived:  "derived",
}

// Insert sets t's flag for scope. Uses ON CONFLICT DO UPDATE guarded by the
// flag's current value, so the affected row count tells whether the flag was
// newly set.
func (s *SQLite) Insert(ctx context.Context, t ir.Triple, scope Scope) (bool, error) {
	if err := checkWrite("insert", t, scope, false); err != nil {
		return false, err
	}
	subj, pred, obj, err := s.lexicalTriple(t)
	if err != nil {
		return false, err
	}
	col := flagColumn[scope]

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO triples (subject, predicate, object, %[1]s)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(subject, predicate, object) DO UPDATE SET %[1]s = 1
		WHERE %[1]s = 0
	`, col), subj, pred, obj)
	if err != nil {
		return false, &IOError{Op: "insert", Err: err}
	}
	return affected(res, "insert")
}

// Delete clears t's flag for scope (both flags for ScopeAll) and removes the
// row once neither flag is set. Runs in one transaction.
func (s *SQLite) Delete(ctx context.Context, t ir.Triple, scope Scope) (bool, error) {
	if err := checkWrite("delete", t, scope, true); err != nil {
		return false, err
	}
	subj, pred, obj, err := s.lexicalTriple(t)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, &IOError{Op: "delete", Err: err}
	}
	defer tx.Rollback()

	var res sql.Result
	if scope == ScopeAll {
		res, err = tx.ExecContext(ctx, `
			DELETE FROM triples
			WHERE subject = ? AND predicate = ? AND object = ?
		`, subj, pred, obj)
	} else {
		res, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE triples SET %[1]s = 0
			WHERE subject = ? AND predicate = ? AND object = ? AND %[1]s = 1
		`, flagColumn[scope]), subj, pred, obj)
	}
	if err != nil {
		return false, &IOError{Op: "delete", Err: err}
	}
	removed, err := affected(res, "delete")
	if err != nil {
		return false, err
	}

	if removed && scope != ScopeAll {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM triples
			WHERE subject = ? AND predicate = ? AND object = ?
			AND asserted = 0 AND derived = 0
		`, subj, pred, obj); err != nil {
			return false, &IOError{Op: "delete", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, &IOError{Op: "delete", Err: err}
	}
	return removed, nil
}

// SavePrefixes records the registry's prefixes so a later Open restores
// them before any pattern is compiled.
func (s *SQLite) SavePrefixes(ctx context.Context) error {
	for _, p := range s.reg.Prefixes() {
		ns, _ := s.reg.Namespace(p)
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO prefixes (prefix, namespace) VALUES (?, ?)
			ON CONFLICT(prefix) DO UPDATE SET namespace = excluded.namespace
		`, p, ns); err != nil {
			return &IOError{Op: "save prefixes", Err: err}
		}
	}
	return nil
}

func (s *SQLite) lexicalTriple(t ir.Triple) (string, string, string, error) {
	subj, err := s.reg.Resolve(t.S)
	if err != nil {
		return "", "", "", err
	}
	pred, err := s.reg.Resolve(t.P)
	if err != nil {
		return "", "", "", err
	}
	obj, err := s.reg.Resolve(t.O)
	if err != nil {
		return "", "", "", err
	}
	return subj, pred, obj, nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, &IOError{Op: op, Err: err}
	}
	return n > 0, nil
}
