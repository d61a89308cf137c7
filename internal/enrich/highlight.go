package enrich

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// matchSpan locates the first case-insensitive occurrence of word in
// sentence and returns its byte bounds. Both the highlighted and the cloze
// form substitute exactly this span, so the two always agree.
func matchSpan(sentence, word string) (int, int, bool) {
	word = strings.TrimSpace(word)
	if word == "" || sentence == "" {
		return 0, 0, false
	}
	wordRunes := utf8.RuneCountInString(word)
	folded := foldCaser.String(word)

	for start := 0; start < len(sentence); {
		end := start
		runes := 0
		for end < len(sentence) && runes < wordRunes {
			_, size := utf8.DecodeRuneInString(sentence[end:])
			end += size
			runes++
		}
		if runes < wordRunes {
			break
		}
		if foldCaser.String(sentence[start:end]) == folded {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(sentence[start:])
		start += size
	}
	return 0, 0, false
}

// HighlightSentence wraps the first case-insensitive occurrence of word in a
// marker span. When the word does not occur, the sentence is returned
// unchanged.
func HighlightSentence(sentence, word string) string {
	start, end, ok := matchSpan(sentence, word)
	if !ok {
		return sentence
	}
	return sentence[:start] + `<span class="target">` + sentence[start:end] + `</span>` + sentence[end:]
}

// ClozeSentence replaces the first case-insensitive occurrence of word with
// a cloze-deletion marker, preserving the sentence's original casing inside
// the marker.
func ClozeSentence(sentence, word string) string {
	start, end, ok := matchSpan(sentence, word)
	if !ok {
		return sentence
	}
	return sentence[:start] + "{{c1::" + sentence[start:end] + "}}" + sentence[end:]
}
