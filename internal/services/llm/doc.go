// Package llm wraps the chat-completions generation service used for text
// enrichment, worksheet vocabulary extraction (vision input), and
// illustrative image generation. The three entry points share one request
// pipeline with bounded retry on transient failures.
package llm
