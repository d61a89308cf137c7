// Package services defines shared utilities consumed by the enrichment
// pipeline and the external service clients beneath it: context helpers that
// stamp run and request identifiers for logging, and structured error
// markers that classify failures without string matching.
package services
