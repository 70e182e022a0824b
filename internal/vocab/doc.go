// Package vocab interns RDF terms into compact ir.Term ids.
//
// A Registry is constructed explicitly by its owner and passed by reference;
// there is no process-wide vocabulary. Lexical forms are normalized before
// interning so that equal terms always share one id:
//
//   - Unicode NFC normalization (golang.org/x/text/unicode/norm)
//   - "<iri>" brackets stripped
//   - registered prefixes expanded ("rdf:type" → full rdf namespace IRI)
//
// The rdf and rdfs prefixes and the RDFS vocabulary used by the built-in rules
// are registered by New. Applications add their own prefixes with WithPrefix
// and their own predicates or classes (for example a custom subClassOf) with
// Extend, before building rules that mention them.
//
// Ids are dense and stable for the lifetime of the Registry. Resolving an id
// the Registry never issued is a programming error: Resolve reports it as
// *UnknownTermError and MustResolve panics.
package vocab
