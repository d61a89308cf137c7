// Package store persists mutable runtime settings and enrichment run
// history in a SQLite database under the data directory. File
// configuration supplies defaults; values written here override them at
// runtime.
package store
