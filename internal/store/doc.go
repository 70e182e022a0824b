// Package store holds the triples the reasoner reads and writes.
//
// A stored triple carries two flags: asserted (put there by a caller) and
// derived (put there by the engine). A triple with either flag set is
// present; clearing the last flag removes it. The engine reads through
// Match and writes through Insert and Delete, so any backend implementing
// Store can sit under it.
//
// Two backends are provided:
//   - Memory: maps with subject, predicate and object indexes
//   - SQLite: a single triples table keyed by lexical form
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Term ids are local to a vocab.Registry, so the SQLite backend stores
// lexical forms and re-interns them on read. Queries order rows by
// subject, predicate, object with COLLATE BINARY.
package store
