package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"deckhand/internal/enrich"
	"deckhand/internal/logging"
	"deckhand/internal/store"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var (
		language  string
		wordsFile string
		noImages  bool
		noDist    bool
	)

	cmd := &cobra.Command{
		Use:   "enrich [words...]",
		Short: "Create and enrich flashcards for the given words",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := append([]string{}, args...)
			if wordsFile != "" {
				fromFile, err := readWordsFile(wordsFile)
				if err != nil {
					return err
				}
				words = append(words, fromFile...)
			}
			if len(words) == 0 {
				return errors.New("no words given; pass them as arguments or via --file")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			dist, err := ctx.newDistribution(st, logger)
			if err != nil {
				return err
			}
			generator, err := ctx.llmClient()
			if err != nil {
				return err
			}
			speech, err := ctx.ttsClient()
			if err != nil {
				return err
			}

			settings := enrich.Settings{
				Deck:          dist.resolved.Deck,
				Model:         dist.resolved.Model,
				Targets:       dist.resolved.Targets,
				ChunkSize:     cfg.Pipeline.ChunkSize,
				ImagesEnabled: cfg.Pipeline.ImagesEnabled && !noImages,
			}
			var distributor enrich.NoteDistributor
			if !noDist {
				distributor = dist.distributor
			}

			pipeline := enrich.NewPipeline(dist.backend, generator, speech, distributor, settings, logger)
			started := time.Now()
			summary, runErr := pipeline.Run(cmd.Context(), words,
				&consoleSink{out: cmd.OutOrStdout()}, cfg.Language(language))

			record := store.Run{
				RunID:          uuid.NewString(),
				Kind:           store.RunKindEnrich,
				Language:       language,
				WordsRequested: len(words),
				Created:        summary.Created,
				Duplicates:     summary.Duplicates,
				Errors:         len(summary.Errors),
				Detail:         strings.Join(summary.Errors, "; "),
				StartedAt:      started,
				FinishedAt:     time.Now(),
			}
			if runErr != nil {
				record.Detail = runErr.Error()
			}
			if _, err := st.RecordRun(cmd.Context(), record); err != nil {
				logger.Warn("failed to record run history", logging.Error(err))
			}

			printSummary(cmd.OutOrStdout(), summary)
			if runErr != nil {
				return fmt.Errorf("enrichment run failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language profile code from the config")
	cmd.Flags().StringVarP(&wordsFile, "file", "f", "", "Read words from a file, one per line")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "Skip the image generation stage")
	cmd.Flags().BoolVar(&noDist, "no-distribute", false, "Skip distribution to target profiles")
	return cmd
}
