// Package testsupport provides shared helpers for tests: a fake AnkiConnect
// backend with in-memory profiles, config builders seeded with temp
// directories, and store helpers.
package testsupport
