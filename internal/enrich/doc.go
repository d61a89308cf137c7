// Package enrich drives a batch of words from raw input to fully enriched,
// cross-distributed flashcards. Stages run strictly in order for the whole
// batch: duplicate filter, creation, chunked text generation, text
// persistence, audio, image, distribution. Per-word failures are captured
// into the run summary and never abort the batch; only failures that make an
// entire stage meaningless stop the run.
package enrich
