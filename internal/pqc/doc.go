// Package pqc scores TLS cryptography for post-quantum resistance.
//
// Architecture overview:
//
//   - Classifier functions (ClassifyKex, ClassifySymmetric, ClassifySignature,
//     ClassifyHash) normalize raw names reported by scanners into canonical
//     identifiers present in the resistance tables.
//   - Score turns one canonical identifier plus its context (key size, curve,
//     list position) into an immutable AlgorithmScore.
//   - Aggregate groups scores into per-category ComponentAnalysis values,
//     omitting categories that have nothing scored.
//   - Builder combines components into a FinalReport with readiness flags and
//     compliance verdicts. Analyze drives the whole pipeline from an
//     AnalysisInput produced by the transform package.
//
// Every function in this package is pure: the tables are initialized once at
// package load and never mutated, so callers may score concurrently.
package pqc
