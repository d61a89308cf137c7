package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deckhand/internal/services/llm"
)

const extractSystemPrompt = `You are reading a photographed or scanned vocabulary worksheet.
List every distinct vocabulary word or phrase a student is meant to learn from it.
Respond with a JSON array of strings only. No prose, no markdown.`

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		language string
		listOnly bool
	)

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract vocabulary from a worksheet image and enrich it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := extractWords(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(words) == 0 {
				fmt.Fprintln(out, "No vocabulary found in the image.")
				return nil
			}

			fmt.Fprintf(out, "Extracted %d words:\n", len(words))
			for _, word := range words {
				fmt.Fprintf(out, "  %s\n", word)
			}
			if listOnly {
				return nil
			}

			enrichCmd := newEnrichCommand(ctx)
			if err := enrichCmd.Flags().Set("language", language); err != nil {
				return err
			}
			enrichCmd.SetOut(out)
			enrichCmd.SetErr(cmd.ErrOrStderr())
			enrichCmd.SetContext(cmd.Context())
			return enrichCmd.RunE(enrichCmd, words)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language profile code from the config")
	cmd.Flags().BoolVar(&listOnly, "list-only", false, "Print the extracted words without enriching them")
	return cmd
}

func extractWords(cmd *cobra.Command, ctx *commandContext, path string) ([]string, error) {
	mimeType, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	generator, err := ctx.llmClient()
	if err != nil {
		return nil, err
	}
	content, err := generator.CompleteVision(cmd.Context(), extractSystemPrompt,
		"Extract the vocabulary from this worksheet.",
		mimeType, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, fmt.Errorf("vision extraction: %w", err)
	}

	var words []string
	if err := llm.DecodeJSON(content, &words); err != nil {
		return nil, fmt.Errorf("parse extracted words: %w", err)
	}

	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		if trimmed := strings.TrimSpace(word); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned, nil
}
