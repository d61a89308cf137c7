// Package notes defines the flashcard note model the portal curates: the
// field schema, the UUID identity used to correlate notes across profiles,
// deterministic media filenames, and the search-query grammar helpers.
package notes
