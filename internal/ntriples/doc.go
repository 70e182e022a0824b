// Package ntriples reads and writes the line-oriented triple format used by
// the CLI and test scenarios.
//
// The format is N-Triples with two Turtle conveniences:
//
//	@prefix ex: <http://www.example.org/#> .
//	PREFIX ex: <http://www.example.org/#>
//	ex:book2 a ex:Article .
//	<http://www.example.org/#book1> ex:title "Moby Dick"@en .
//
// One triple per line, terminated by an optional ".". Lines starting with
// "#" are comments. "a" in predicate position means rdf:type. Prefix
// directives register the prefix with the registry, so later lines and
// Compact output can use it.
//
// Input is NFC-normalized before tokenizing so that literals differing only
// in Unicode composition intern to the same term.
package ntriples
