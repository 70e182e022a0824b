// Package testutil provides fixtures shared by package tests: a registry
// with the example namespace, triple builders over prefixed names, and
// deterministic run ids.
package testutil

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// ExampleNS is the namespace bound to the "ex" prefix in fixtures.
const ExampleNS = "http://www.example.org/#"

// Registry returns a registry with the ex prefix registered.
func Registry() *vocab.Registry {
	return vocab.New(vocab.WithPrefix("ex", ExampleNS))
}

// Triple interns s, p and o.
func Triple(reg *vocab.Registry, s, p, o string) ir.Triple {
	return ir.T(reg.Intern(s), reg.Intern(p), reg.Intern(o))
}

// Triples parses whitespace-separated "s p o" lines. Quoted literals may
// contain spaces. An optional trailing "." is ignored. Panics on a
// malformed line.
func Triples(reg *vocab.Registry, lines ...string) []ir.Triple {
	out := make([]ir.Triple, 0, len(lines))
	for _, line := range lines {
		fields, ok := splitTerms(strings.TrimSuffix(strings.TrimSpace(line), "."))
		if !ok || len(fields) != 3 {
			panic(fmt.Sprintf("testutil: malformed triple %q", line))
		}
		out = append(out, Triple(reg, fields[0], fields[1], fields[2]))
	}
	return out
}

// splitTerms splits on whitespace outside double quotes. Reports false for an
// unterminated literal.
func splitTerms(line string) ([]string, bool) {
	var out []string
	var cur strings.Builder
	quoted, escaped := false, false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out, !quoted
}

// Lines renders triples with reg.Format, sorted lexically. Useful for
// readable assertions and diffs.
func Lines(reg *vocab.Registry, ts []ir.Triple) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = reg.Format(t)
	}
	sort.Strings(out)
	return out
}

// SetLines renders a triple set like Lines.
func SetLines(reg *vocab.Registry, s ir.TripleSet) []string {
	ts := make([]ir.Triple, 0, len(s))
	for t := range s {
		ts = append(ts, t)
	}
	return Lines(reg, ts)
}
