package notes

import (
	"fmt"
	"strings"
	"unicode"
)

// MediaAsset is a named base64 payload destined for the backend's media
// collection. Filenames are deterministic so regeneration overwrites rather
// than accumulating copies.
type MediaAsset struct {
	Filename string
	Data     string
}

// WordAudioFilename names the pronunciation clip for a note.
func WordAudioFilename(word string, noteID int64, format string) string {
	return fmt.Sprintf("deckhand-%s-%d.%s", slugify(word), noteID, format)
}

// SentenceAudioFilename names the example-sentence clip for a note.
func SentenceAudioFilename(word string, noteID int64, format string) string {
	return fmt.Sprintf("deckhand-%s-%d-sentence.%s", slugify(word), noteID, format)
}

// ImageFilename names the illustrative image for a note.
func ImageFilename(word string, noteID int64) string {
	return fmt.Sprintf("deckhand-%s-%d.png", slugify(word), noteID)
}

// SoundRef renders the playback reference the audio fields expect.
func SoundRef(filename string) string {
	return "[sound:" + filename + "]"
}

// ImageRef renders the embed reference the picture field expects.
func ImageRef(filename string) string {
	return `<img src="` + filename + `">`
}

func slugify(word string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(word)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
