// Package ir provides the value types shared by every layer of the reasoner:
// terms, triples, patterns, constraints, rules and justifications.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ir; ir imports nothing internal. This keeps IR the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Terms are opaque interned ids; package vocab owns their lexical forms
//   - Triple and Pattern are comparable values and can be used as map keys
//   - Justification identity is (rule, binding), never wall-clock time
//   - All JSON tags use snake_case
package ir
