// Package transform reshapes ssllabs-scan output into the normalized scan
// structure scored by package pqc.
//
// Architecture overview:
//   - ssllabs.go: the host report as printed by the tool
//   - transform.go: protocol, suite, curve and chain extraction
//   - suites.go: suite name splitting and inline scoring
//   - certs.go, handshake.go: certificate and handshake signatures
//   - dedup.go: structural list deduplication over a tagged JSON tree
//   - document.go: the scored document and the client facing result
package transform
