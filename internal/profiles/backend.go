package profiles

import (
	"context"

	"deckhand/internal/notes"
	"deckhand/internal/services/anki"
)

// Backend is the subset of the automation client the distribution protocol
// drives. *anki.Client satisfies it.
type Backend interface {
	DeckNames(ctx context.Context) ([]string, error)
	ModelNames(ctx context.Context) ([]string, error)
	LoadProfile(ctx context.Context, name string) (bool, error)
	FindNotes(ctx context.Context, query string) ([]int64, error)
	NotesInfo(ctx context.Context, ids []int64) ([]notes.Note, error)
	AddNote(ctx context.Context, note anki.NewNote) (int64, error)
	UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error
	StoreMediaFile(ctx context.Context, filename, base64Data string) (string, error)
}
