package anki

import (
	"context"
	"strings"

	"deckhand/internal/notes"
)

// Version reports the automation protocol version of the running backend.
// It doubles as the connectivity probe.
func (c *Client) Version(ctx context.Context) (int, error) {
	var version int
	if err := c.invoke(ctx, "version", nil, &version); err != nil {
		return 0, err
	}
	return version, nil
}

// DeckNames lists the decks of the active profile.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelNames lists the note types of the active profile.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelFieldNames lists the ordered field names of a note type.
func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var names []string
	params := map[string]string{"modelName": model}
	if err := c.invoke(ctx, "modelFieldNames", params, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates a deck in the active profile; existing decks are a no-op.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	return c.invoke(ctx, "createDeck", map[string]string{"deck": name}, nil)
}

// FindNotes returns the note IDs matching a search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	if err := c.invoke(ctx, "findNotes", map[string]string{"query": query}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type noteInfo struct {
	NoteID    int64    `json:"noteId"`
	ModelName string   `json:"modelName"`
	Tags      []string `json:"tags"`
	Fields    map[string]struct {
		Value string `json:"value"`
		Order int    `json:"order"`
	} `json:"fields"`
}

// NotesInfo fetches full note data for the given IDs.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]notes.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var infos []noteInfo
	if err := c.invoke(ctx, "notesInfo", map[string]any{"notes": ids}, &infos); err != nil {
		return nil, err
	}
	result := make([]notes.Note, 0, len(infos))
	for _, info := range infos {
		fields := make(map[string]string, len(info.Fields))
		for name, field := range info.Fields {
			fields[name] = field.Value
		}
		result = append(result, notes.Note{
			ID:     info.NoteID,
			Model:  info.ModelName,
			Fields: fields,
			Tags:   info.Tags,
		})
	}
	return result, nil
}

// NewNote describes a note to create.
type NewNote struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

func (n NewNote) params() map[string]any {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"deckName":  n.Deck,
		"modelName": n.Model,
		"fields":    n.Fields,
		"tags":      tags,
		"options": map[string]any{
			"allowDuplicate": false,
			"duplicateScope": "deck",
		},
	}
}

// AddNote creates a single note and returns its backend-assigned ID.
// A null result from the backend maps to ErrDuplicateNote.
func (c *Client) AddNote(ctx context.Context, note NewNote) (int64, error) {
	var id *int64
	if err := c.invoke(ctx, "addNote", map[string]any{"note": note.params()}, &id); err != nil {
		return 0, err
	}
	if id == nil || *id == 0 {
		return 0, ErrDuplicateNote
	}
	return *id, nil
}

// AddNotes creates notes in bulk. The returned slice is positional; a zero ID
// marks a per-note failure (duplicate) without failing the batch.
func (c *Client) AddNotes(ctx context.Context, newNotes []NewNote) ([]int64, error) {
	if len(newNotes) == 0 {
		return nil, nil
	}
	params := make([]map[string]any, 0, len(newNotes))
	for _, note := range newNotes {
		params = append(params, note.params())
	}
	var ids []*int64
	if err := c.invoke(ctx, "addNotes", map[string]any{"notes": params}, &ids); err != nil {
		return nil, err
	}
	result := make([]int64, len(ids))
	for i, id := range ids {
		if id != nil {
			result[i] = *id
		}
	}
	return result, nil
}

// UpdateNoteFields overwrites the supplied fields of an existing note,
// leaving all other fields untouched.
func (c *Client) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	params := map[string]any{
		"note": map[string]any{
			"id":     id,
			"fields": fields,
		},
	}
	return c.invoke(ctx, "updateNoteFields", params, nil)
}

// StoreMediaFile uploads a base64 payload into the active profile's media
// collection, overwriting any file with the same name.
func (c *Client) StoreMediaFile(ctx context.Context, filename, base64Data string) (string, error) {
	params := map[string]any{
		"filename": filename,
		"data":     base64Data,
	}
	var stored string
	if err := c.invoke(ctx, "storeMediaFile", params, &stored); err != nil {
		return "", err
	}
	if strings.TrimSpace(stored) == "" {
		stored = filename
	}
	return stored, nil
}

// GetProfiles lists every profile known to the backend.
func (c *Client) GetProfiles(ctx context.Context) ([]string, error) {
	var profiles []string
	if err := c.invoke(ctx, "getProfiles", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// LoadProfile asks the backend to switch its active profile. The call
// returns before the switch completes; see the profiles package for the
// readiness protocol layered on top.
func (c *Client) LoadProfile(ctx context.Context, name string) (bool, error) {
	var ok bool
	if err := c.invoke(ctx, "loadProfile", map[string]string{"name": name}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Sync triggers a collection sync of the active profile.
func (c *Client) Sync(ctx context.Context) error {
	return c.invoke(ctx, "sync", nil, nil)
}
