// Package constants centralizes defaults shared by cmd/ and internal/.
//
// File permissions for stored batches, reports and telemetry live here along
// with the cap on probe error text, so packages can share them without
// import cycles.
package constants
