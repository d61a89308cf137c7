package anki_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deckhand/internal/notes"
	"deckhand/internal/services/anki"
	"deckhand/internal/testsupport"
)

func newClient(fake *testsupport.FakeAnki) *anki.Client {
	return anki.NewClient(anki.Config{URL: fake.URL(), TimeoutSeconds: 5})
}

func TestVersionAndDeckNames(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	client := newClient(fake)
	ctx := context.Background()

	version, err := client.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 6 {
		t.Fatalf("expected protocol version 6, got %d", version)
	}

	decks, err := client.DeckNames(ctx)
	if err != nil {
		t.Fatalf("DeckNames: %v", err)
	}
	if len(decks) != 2 {
		t.Fatalf("expected Default and Vocab decks, got %v", decks)
	}
}

func TestAddNoteRoundTrip(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	client := newClient(fake)
	ctx := context.Background()

	id, err := client.AddNote(ctx, anki.NewNote{
		Deck:   "Vocab",
		Model:  "Vocabulary",
		Fields: map[string]string{notes.FieldWord: "creature", notes.FieldNoteID: "uuid-1"},
		Tags:   []string{"deckhand"},
	})
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero note ID")
	}

	infos, err := client.NotesInfo(ctx, []int64{id})
	if err != nil {
		t.Fatalf("NotesInfo: %v", err)
	}
	if len(infos) != 1 || infos[0].Word() != "creature" || infos[0].Identity() != "uuid-1" {
		t.Fatalf("unexpected notes info %#v", infos)
	}
}

func TestAddNoteDuplicateIsSentinel(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	client := newClient(fake)
	ctx := context.Background()

	note := anki.NewNote{
		Deck:   "Vocab",
		Model:  "Vocabulary",
		Fields: map[string]string{notes.FieldWord: "creature", notes.FieldNoteID: "uuid-1"},
	}
	if _, err := client.AddNote(ctx, note); err != nil {
		t.Fatalf("first AddNote: %v", err)
	}
	_, err := client.AddNote(ctx, note)
	if !errors.Is(err, anki.ErrDuplicateNote) {
		t.Fatalf("expected ErrDuplicateNote, got %v", err)
	}
}

func TestAddNotesReportsPerNoteFailure(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	fake.AddNote("User 1", "Vocab", "Vocabulary", map[string]string{notes.FieldWord: "taken"})
	client := newClient(fake)

	ids, err := client.AddNotes(context.Background(), []anki.NewNote{
		{Deck: "Vocab", Model: "Vocabulary", Fields: map[string]string{notes.FieldWord: "taken"}},
		{Deck: "Vocab", Model: "Vocabulary", Fields: map[string]string{notes.FieldWord: "fresh"}},
	})
	if err != nil {
		t.Fatalf("AddNotes: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] == 0 {
		t.Fatalf("expected [0, nonzero], got %v", ids)
	}
}

func TestFindNotesByWordIsCaseInsensitive(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	id := fake.AddNote("User 1", "Vocab", "Vocabulary", map[string]string{notes.FieldWord: "Creature"})
	client := newClient(fake)

	ids, err := client.FindNotes(context.Background(), notes.FieldQuery("Vocab", notes.FieldWord, "creature"))
	if err != nil {
		t.Fatalf("FindNotes: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected [%d], got %v", id, ids)
	}
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.FailAction("deckNames", "collection is not available")
	client := newClient(fake)

	_, err := client.DeckNames(context.Background())
	if err == nil || !strings.Contains(err.Error(), "collection is not available") {
		t.Fatalf("expected envelope error, got %v", err)
	}
}

func TestUpdateNoteFieldsAndMedia(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	fake.Seed("User 1", "Vocab", "Vocabulary", []string{notes.FieldWord, notes.FieldNoteID})
	id := fake.AddNote("User 1", "Vocab", "Vocabulary", map[string]string{notes.FieldWord: "creature"})
	client := newClient(fake)
	ctx := context.Background()

	if err := client.UpdateNoteFields(ctx, id, map[string]string{notes.FieldDefinition: "a living being"}); err != nil {
		t.Fatalf("UpdateNoteFields: %v", err)
	}
	stored, err := client.StoreMediaFile(ctx, "deckhand-creature-1.mp3", "aGVsbG8=")
	if err != nil {
		t.Fatalf("StoreMediaFile: %v", err)
	}
	if stored != "deckhand-creature-1.mp3" {
		t.Fatalf("unexpected stored filename %q", stored)
	}

	profile := fake.Profile("User 1")
	if profile.Notes[id].Fields[notes.FieldDefinition] != "a living being" {
		t.Fatal("definition field not updated")
	}
	if profile.Media["deckhand-creature-1.mp3"] != "aGVsbG8=" {
		t.Fatal("media payload not stored")
	}
}

func TestLoadProfileUnknownReturnsFalse(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")
	client := newClient(fake)

	ok, err := client.LoadProfile(context.Background(), "Nope")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if ok {
		t.Fatal("expected false for unknown profile")
	}
}
