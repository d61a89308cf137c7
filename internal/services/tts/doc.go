// Package tts synthesizes pronunciation audio through an OpenAI-compatible
// speech endpoint. The enrichment pipeline requests one clip for the word
// itself and, when an example sentence exists, a second clip for the
// sentence.
package tts
