package ntriples

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// ParseError reports a malformed line.
type ParseError struct {
	Line    int    // 1-based line number
	Col     int    // 1-based column of the offending token, 0 if unknown
	Message string // What went wrong
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Col > 0 {
		return fmt.Sprintf("line %d col %d: %s", e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Reader parses triples line by line, interning terms in a registry.
type Reader struct {
	scanner *bufio.Scanner
	reg     *vocab.Registry
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, reg *vocab.Registry) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: sc, reg: reg}
}

// Read returns the next triple. Returns io.EOF when the input is exhausted.
func (r *Reader) Read() (ir.Triple, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(norm.NFC.String(r.scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isDirective(line) {
			if err := r.directive(line); err != nil {
				return ir.Triple{}, err
			}
			continue
		}
		return r.triple(line)
	}
	if err := r.scanner.Err(); err != nil {
		return ir.Triple{}, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return ir.Triple{}, io.EOF
}

// ReadAll returns every remaining triple in input order.
func (r *Reader) ReadAll() ([]ir.Triple, error) {
	var out []ir.Triple
	for {
		t, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
}

// Parse reads every triple from r.
func Parse(r io.Reader, reg *vocab.Registry) ([]ir.Triple, error) {
	return NewReader(r, reg).ReadAll()
}

// ParseString reads every triple from s.
func ParseString(s string, reg *vocab.Registry) ([]ir.Triple, error) {
	return Parse(strings.NewReader(s), reg)
}

func isDirective(line string) bool {
	return strings.HasPrefix(line, "@prefix") || strings.HasPrefix(strings.ToUpper(line), "PREFIX ")
}

// directive handles "@prefix p: <ns> ." and "PREFIX p: <ns>".
func (r *Reader) directive(line string) error {
	fields := strings.Fields(strings.TrimSuffix(line, "."))
	if len(fields) != 3 {
		return r.errorf(0, "malformed prefix directive")
	}
	prefix, ok := strings.CutSuffix(fields[1], ":")
	if !ok {
		return r.errorf(0, "prefix %q must end with ':'", fields[1])
	}
	ns := fields[2]
	if !strings.HasPrefix(ns, "<") || !strings.HasSuffix(ns, ">") || len(ns) < 3 {
		return r.errorf(0, "namespace %q must be an <iri>", ns)
	}
	r.reg.AddPrefix(prefix, ns[1:len(ns)-1])
	return nil
}

func (r *Reader) triple(line string) (ir.Triple, error) {
	lx := &lexer{src: line}
	var terms [3]ir.Term
	for i := range terms {
		lx.skipSpace()
		col := lx.pos + 1
		tok, err := lx.term()
		if err != nil {
			return ir.Triple{}, r.errorf(col, "%v", err)
		}
		if tok == "" {
			return ir.Triple{}, r.errorf(col, "expected 3 terms, got %d", i)
		}
		lexical, err := r.lexical(tok, i)
		if err != nil {
			return ir.Triple{}, r.errorf(col, "%v", err)
		}
		terms[i] = r.reg.Intern(lexical)
	}

	lx.skipSpace()
	rest := strings.TrimSpace(lx.src[lx.pos:])
	if rest != "" && rest != "." {
		return ir.Triple{}, r.errorf(lx.pos+1, "unexpected %q after object", rest)
	}
	return ir.T(terms[0], terms[1], terms[2]), nil
}

// lexical validates a token for its position and returns the form to intern.
func (r *Reader) lexical(tok string, pos int) (string, error) {
	kind := ir.KindOf(tok)
	switch {
	case pos == 1 && tok == "a":
		return vocab.RDFNamespace + "type", nil
	case kind == ir.KindLiteral && pos != 2:
		return "", fmt.Errorf("literal %s only allowed as object", tok)
	case kind == ir.KindBlank && pos == 1:
		return "", fmt.Errorf("blank node %s not allowed as predicate", tok)
	case kind == ir.KindLiteral:
		return r.literal(tok)
	case kind == ir.KindIRI && !strings.HasPrefix(tok, "<"):
		if err := r.checkPrefixed(tok); err != nil {
			return "", err
		}
	}
	return tok, nil
}

// literal expands a prefixed datatype so "1"^^xsd:int and
// "1"^^<...#int> intern to the same term.
func (r *Reader) literal(tok string) (string, error) {
	i := strings.LastIndex(tok, `"^^`)
	if i < 0 {
		return tok, nil
	}
	dt := tok[i+3:]
	if strings.HasPrefix(dt, "<") {
		return tok, nil
	}
	if err := r.checkPrefixed(dt); err != nil {
		return "", err
	}
	return tok[:i+3] + "<" + r.reg.Normalize(dt) + ">", nil
}

func (r *Reader) checkPrefixed(tok string) error {
	prefix, _, ok := strings.Cut(tok, ":")
	if !ok {
		return fmt.Errorf("%q is not an <iri> or prefixed name", tok)
	}
	if _, known := r.reg.Namespace(prefix); !known {
		return fmt.Errorf("unknown prefix %q", prefix)
	}
	return nil
}

func (r *Reader) errorf(col int, format string, args ...any) error {
	return &ParseError{Line: r.line, Col: col, Message: fmt.Sprintf(format, args...)}
}

// lexer splits one line into terms.
type lexer struct {
	src string
	pos int
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
}

// term returns the next term token, or "" at end of line or a lone ".".
func (l *lexer) term() (string, error) {
	if l.pos >= len(l.src) {
		return "", nil
	}
	start := l.pos
	switch l.src[l.pos] {
	case '.':
		if l.pos == len(l.src)-1 {
			return "", nil
		}
	case '<':
		end := strings.IndexByte(l.src[l.pos:], '>')
		if end < 0 {
			return "", errors.New("unterminated <iri>")
		}
		l.pos += end + 1
		return l.src[start:l.pos], nil
	case '"':
		if err := l.quoted(); err != nil {
			return "", err
		}
		l.suffix()
		return l.src[start:l.pos], nil
	}
	for l.pos < len(l.src) && l.src[l.pos] != ' ' && l.src[l.pos] != '\t' {
		l.pos++
	}
	tok := l.src[start:l.pos]
	// "ex:o." with no space before the terminator.
	if l.pos == len(l.src) && len(tok) > 1 && strings.HasSuffix(tok, ".") {
		tok = tok[:len(tok)-1]
		l.pos--
	}
	return tok, nil
}

func (l *lexer) quoted() error {
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
			continue
		case '"':
			l.pos++
			return nil
		}
		l.pos++
	}
	return errors.New("unterminated literal")
}

// suffix consumes @lang or ^^datatype after a literal.
func (l *lexer) suffix() {
	rest := l.src[l.pos:]
	switch {
	case strings.HasPrefix(rest, "@"):
		l.pos++
		for l.pos < len(l.src) && isLangChar(l.src[l.pos]) {
			l.pos++
		}
	case strings.HasPrefix(rest, "^^<"):
		if end := strings.IndexByte(rest, '>'); end > 0 {
			l.pos += end + 1
		}
	case strings.HasPrefix(rest, "^^"):
		l.pos += 2
		for l.pos < len(l.src) && l.src[l.pos] != ' ' && l.src[l.pos] != '\t' {
			l.pos++
		}
		if l.pos == len(l.src) && strings.HasSuffix(l.src, ".") {
			l.pos--
		}
	}
}

func isLangChar(c byte) bool {
	return c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
