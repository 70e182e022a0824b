package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainJustification = "entail/justification/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// JustificationID computes the identity of a (rule, binding) pair.
//
// The derived triple and source triples are not hashed: they are functions
// of the rule and the binding, so hashing them would only add cost. Two
// rounds that find the same binding for the same rule produce the same ID,
// which is what makes recording idempotent.
func JustificationID(rule string, b Bindings) string {
	data := make([]byte, 0, len(rule)+1+16*len(b))
	data = append(data, rule...)
	data = append(data, 0x00)
	data = append(data, b.Key()...)
	return hashWithDomain(DomainJustification, data)
}
