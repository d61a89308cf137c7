package enrich

import (
	"fmt"
	"strings"

	"deckhand/internal/config"
	"deckhand/internal/notes"
)

// generatedText is one item of the LLM's JSON array response.
type generatedText struct {
	Word        string `json:"word"`
	Definition  string `json:"definition"`
	Translation string `json:"translation"`
	Sentence    string `json:"sentence"`
}

const textSystemPrompt = `You are a vocabulary tutor preparing flashcard content.
For every word in the list, produce a JSON object with these keys:
  "word": the word exactly as given,
  "definition": a short learner-friendly definition in the word's language,
  "translation": an English translation,
  "sentence": one natural example sentence that contains the word.
Respond with a JSON array only, one object per word, in the same order as the
input list. No prose, no markdown.`

func buildTextPrompts(words []string, lang config.Language) (string, string) {
	system := textSystemPrompt
	if strings.TrimSpace(lang.Name) != "" {
		system += fmt.Sprintf("\nThe words are %s vocabulary; definitions and sentences must be in %s.",
			lang.Name, lang.Name)
	}
	if strings.TrimSpace(lang.Prompt) != "" {
		system += "\n" + strings.TrimSpace(lang.Prompt)
	}

	var user strings.Builder
	user.WriteString("Words:\n")
	for i, word := range words {
		fmt.Fprintf(&user, "%d. %s\n", i+1, word)
	}
	return system, user.String()
}

// matchGenerated pairs response items to chunk records positionally, falling
// back to word-text matching when the positions are misaligned. A nil return
// means no item in the response covers the record.
func matchGenerated(items []generatedText, index int, word string) *generatedText {
	if index < len(items) {
		candidate := items[index]
		if candidate.Word == "" || notes.SameWord(candidate.Word, word) {
			return &candidate
		}
	}
	for i := range items {
		if notes.SameWord(items[i].Word, word) {
			return &items[i]
		}
	}
	return nil
}

func chunkRecords(records []*record, size int) [][]*record {
	if size <= 0 {
		size = 20
	}
	var chunks [][]*record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
