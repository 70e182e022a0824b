package ntriples

import (
	"bufio"
	"fmt"
	"io"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// Style selects how IRIs are written.
type Style int

const (
	// Compact writes prefixed names where a registered prefix matches and
	// starts the output with the registry's prefix directives.
	Compact Style = iota
	// Full writes every IRI as <iri>, which is plain N-Triples.
	Full
)

// Write renders ts one per line in the given style. Triples are written in
// the order given; callers sort for stable output.
func Write(w io.Writer, reg *vocab.Registry, ts []ir.Triple, style Style) error {
	bw := bufio.NewWriter(w)
	if style == Compact && len(ts) > 0 {
		for _, p := range reg.Prefixes() {
			ns, _ := reg.Namespace(p)
			if _, err := fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p, ns); err != nil {
				return err
			}
		}
	}
	for _, t := range ts {
		line, err := FormatTriple(reg, t, style)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatTriple renders t as "s p o ." in the given style.
func FormatTriple(reg *vocab.Registry, t ir.Triple, style Style) (string, error) {
	if style == Compact {
		return reg.Format(t) + " .", nil
	}
	var parts [3]string
	for i, term := range [3]ir.Term{t.S, t.P, t.O} {
		lex, err := reg.Resolve(term)
		if err != nil {
			return "", err
		}
		if ir.KindOf(lex) == ir.KindIRI {
			lex = "<" + lex + ">"
		}
		parts[i] = lex
	}
	return parts[0] + " " + parts[1] + " " + parts[2] + " .", nil
}
