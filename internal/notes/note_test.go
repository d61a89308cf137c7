package notes

import (
	"strings"
	"testing"
)

func TestIdentityTrimsField(t *testing.T) {
	note := Note{Fields: map[string]string{FieldNoteID: "  abc-123  "}}
	if got := note.Identity(); got != "abc-123" {
		t.Fatalf("Identity() = %q", got)
	}
	if got := (Note{}).Identity(); got != "" {
		t.Fatalf("expected empty identity for missing field, got %q", got)
	}
}

func TestNewIdentityIsUnique(t *testing.T) {
	a, b := NewIdentity(), NewIdentity()
	if a == b {
		t.Fatal("expected distinct identities")
	}
	if len(a) != 36 {
		t.Fatalf("unexpected identity shape %q", a)
	}
}

func TestSameWordFoldsCase(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Creature", "creature", true},
		{" creature ", "CREATURE", true},
		{"straße", "STRASSE", true},
		{"creature", "creatures", false},
	}
	for _, tc := range cases {
		if got := SameWord(tc.a, tc.b); got != tc.want {
			t.Errorf("SameWord(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMediaFilenamesAreDeterministic(t *testing.T) {
	first := WordAudioFilename("el niño", 42, "mp3")
	second := WordAudioFilename("el niño", 42, "mp3")
	if first != second {
		t.Fatalf("filenames differ: %q vs %q", first, second)
	}
	if first != "deckhand-el-niño-42.mp3" {
		t.Fatalf("unexpected filename %q", first)
	}
	if got := SentenceAudioFilename("creature", 7, "mp3"); got != "deckhand-creature-7-sentence.mp3" {
		t.Fatalf("unexpected sentence filename %q", got)
	}
	if got := ImageFilename("a  strange  word!", 9); got != "deckhand-a-strange-word-9.png" {
		t.Fatalf("unexpected image filename %q", got)
	}
}

func TestFieldQueryQuotesSpacedFieldNames(t *testing.T) {
	got := FieldQuery("My Deck", FieldNoteID, "abc")
	if got != `deck:"My Deck" "Note ID:abc"` {
		t.Fatalf("unexpected query %q", got)
	}
	got = FieldQuery("Vocab", FieldWord, `say "hi"`)
	if !strings.Contains(got, `Word:"say \"hi\""`) {
		t.Fatalf("expected escaped quotes, got %q", got)
	}
}

func TestSoundAndImageRefs(t *testing.T) {
	if got := SoundRef("a.mp3"); got != "[sound:a.mp3]" {
		t.Fatalf("SoundRef = %q", got)
	}
	if got := ImageRef("a.png"); got != `<img src="a.png">` {
		t.Fatalf("ImageRef = %q", got)
	}
}
