// Package daemon runs deckhand as a long-lived service: it enforces
// single-instance execution with a file lock and exposes a small JSON API
// for triggering enrichment and distribution runs remotely.
package daemon
