package notes

import (
	"fmt"
	"strings"
)

// The backend's search grammar treats double quotes as term delimiters, so
// embedded quotes are escaped and backslashes doubled.
func escapeTerm(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// DeckQuery matches every note in a deck.
func DeckQuery(deck string) string {
	return fmt.Sprintf("deck:%q", escapeTerm(deck))
}

// FieldQuery matches notes in a deck whose field equals value exactly.
// The backend compares field terms case-insensitively. Field names containing
// spaces force whole-term quoting.
func FieldQuery(deck, field, value string) string {
	if strings.ContainsRune(field, ' ') {
		return fmt.Sprintf("deck:%q %q", escapeTerm(deck), field+":"+escapeTerm(value))
	}
	return fmt.Sprintf("deck:%q %s:%q", escapeTerm(deck), field, escapeTerm(value))
}

// TextQuery matches notes in a deck containing the free text anywhere.
// Used for identity lookup: the UUID appears in exactly one field.
func TextQuery(deck, text string) string {
	return fmt.Sprintf("deck:%q %q", escapeTerm(deck), escapeTerm(text))
}
