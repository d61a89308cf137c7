package notes

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Field names of the vocabulary note model. The portal only ever writes
// these; unknown fields on the model are left untouched.
const (
	FieldWord                = "Word"
	FieldNoteID              = "Note ID"
	FieldDefinition          = "Definition"
	FieldTranslation         = "Translation"
	FieldSentence            = "Sentence"
	FieldSentenceHighlighted = "Sentence (Highlighted)"
	FieldSentenceCloze       = "Sentence (Cloze)"
	FieldAudio               = "Audio"
	FieldSentenceAudio       = "Sentence Audio"
	FieldPicture             = "Picture"
)

// Note is one flashcard as the automation backend reports it. The numeric ID
// is profile-local; the Note ID field carries the portable UUID identity.
type Note struct {
	ID     int64
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// Identity returns the cross-profile UUID identity, or "" when the note was
// created without one and cannot be correlated.
func (n Note) Identity() string {
	return strings.TrimSpace(n.Fields[FieldNoteID])
}

// Word returns the trimmed word field.
func (n Note) Word() string {
	return strings.TrimSpace(n.Fields[FieldWord])
}

// Sentence returns the trimmed example sentence, "" when not yet generated.
func (n Note) Sentence() string {
	return strings.TrimSpace(n.Fields[FieldSentence])
}

// NewIdentity generates a fresh UUID for the Note ID field. Once assigned it
// is never regenerated.
func NewIdentity() string {
	return uuid.NewString()
}

var foldCaser = cases.Fold()

// WordKey folds a word for case-insensitive comparison. Duplicate detection
// and word matching use this; identity comparison never does.
func WordKey(word string) string {
	return foldCaser.String(strings.TrimSpace(word))
}

// SameWord reports whether two words are equal ignoring case.
func SameWord(a, b string) bool {
	return WordKey(a) == WordKey(b)
}
