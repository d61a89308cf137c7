// Package anki wraps the desktop flashcard application's local HTTP
// automation endpoint (AnkiConnect) in typed request/response methods.
//
// The wire protocol is a JSON action/params envelope with a version
// discriminator; failures arrive as a nullable error string rather than an
// HTTP status, so every call checks both.
package anki
