// Package querysql compiles triple patterns to parameterized SQL over the
// triples table.
//
// Every query includes ORDER BY subject, predicate, object with COLLATE BINARY
// so results are identical across runs. Term values are always passed as
// parameters, never interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/entail/internal/ir"
)

// Filter restricts a query to rows carrying a flag.
type Filter int

const (
	// FilterAny matches every stored triple.
	FilterAny Filter = iota
	// FilterAsserted matches triples with the asserted flag.
	FilterAsserted
	// FilterDerived matches triples with the derived flag.
	FilterDerived
)

// LexicalFunc returns the stored lexical form of a term.
type LexicalFunc func(ir.Term) (string, error)

var columns = [3]string{"subject", "predicate", "object"}

// SQLCompiler compiles triple patterns to SQL for SQLite.
type SQLCompiler struct {
	// Lexical resolves bound pattern terms to the text stored in the table.
	Lexical LexicalFunc
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler(lexical LexicalFunc) *SQLCompiler {
	return &SQLCompiler{Lexical: lexical}
}

// Compile converts a pattern to a SELECT over the triples table.
// Returns (sql, params, error).
//
// Bound slots become "column = ?" predicates. A variable repeated across
// slots becomes a column equality so the database does the consistency
// check that ir.Pattern.Match would otherwise do.
func (c *SQLCompiler) Compile(p ir.Pattern, f Filter) (string, []any, error) {
	where, params, err := c.compileWhere(p, f)
	if err != nil {
		return "", nil, err
	}

	sql := "SELECT subject, predicate, object FROM triples"
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " ORDER BY " + stableOrderKey()
	return sql, params, nil
}

// CompileCount converts a filter to a COUNT query.
func (c *SQLCompiler) CompileCount(f Filter) (string, []any, error) {
	flag, err := compileFilter(f)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT COUNT(*) FROM triples"
	if flag != "" {
		sql += " WHERE " + flag
	}
	return sql, nil, nil
}

func (c *SQLCompiler) compileWhere(p ir.Pattern, f Filter) (string, []any, error) {
	var parts []string
	var params []any

	firstSeen := make(map[string]string, 3)
	for i, s := range p.Slots() {
		col := columns[i]
		if s.IsVar() {
			if prev, ok := firstSeen[s.Var]; ok {
				parts = append(parts, fmt.Sprintf("%s = %s", col, prev))
			} else {
				firstSeen[s.Var] = col
			}
			continue
		}
		if c.Lexical == nil {
			return "", nil, fmt.Errorf("compile %s: no lexical resolver", col)
		}
		lex, err := c.Lexical(s.Term)
		if err != nil {
			return "", nil, fmt.Errorf("compile %s: %w", col, err)
		}
		parts = append(parts, col+" = ?")
		params = append(params, lex)
	}

	flag, err := compileFilter(f)
	if err != nil {
		return "", nil, err
	}
	if flag != "" {
		parts = append(parts, flag)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compileFilter(f Filter) (string, error) {
	switch f {
	case FilterAny:
		return "", nil
	case FilterAsserted:
		return "asserted = 1", nil
	case FilterDerived:
		return "derived = 1", nil
	default:
		return "", fmt.Errorf("unsupported filter: %d", f)
	}
}

// stableOrderKey returns the ORDER BY clause body. Every SELECT uses it.
func stableOrderKey() string {
	return "subject COLLATE BINARY ASC, predicate COLLATE BINARY ASC, object COLLATE BINARY ASC"
}
