package enrich

import "testing"

func TestHighlightSentence(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		word     string
		want     string
	}{
		{
			name:     "case insensitive first match",
			sentence: "Creatures are creatures.",
			word:     "creature",
			want:     `<span class="target">Creature</span>s are creatures.`,
		},
		{
			name:     "unicode folding",
			sentence: "El ÑANDÚ corre.",
			word:     "ñandú",
			want:     `El <span class="target">ÑANDÚ</span> corre.`,
		},
		{
			name:     "no occurrence leaves sentence unchanged",
			sentence: "Nothing to see here.",
			word:     "creature",
			want:     "Nothing to see here.",
		},
		{
			name:     "phrase match",
			sentence: "She put it off until later.",
			word:     "put it off",
			want:     `She <span class="target">put it off</span> until later.`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HighlightSentence(tt.sentence, tt.word); got != tt.want {
				t.Fatalf("HighlightSentence(%q, %q) = %q, want %q", tt.sentence, tt.word, got, tt.want)
			}
		})
	}
}

func TestClozeSentence(t *testing.T) {
	got := ClozeSentence("The Creature appeared.", "creature")
	want := "The {{c1::Creature}} appeared."
	if got != want {
		t.Fatalf("ClozeSentence = %q, want %q", got, want)
	}

	if got := ClozeSentence("No match here.", "creature"); got != "No match here." {
		t.Fatalf("expected unchanged sentence, got %q", got)
	}
}
