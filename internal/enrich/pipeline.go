package enrich

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/notes"
	"deckhand/internal/profiles"
	"deckhand/internal/services"
	"deckhand/internal/services/anki"
	"deckhand/internal/services/llm"
)

// TextGenerator produces flashcard text and images. *llm.Client satisfies it.
type TextGenerator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer produces pronunciation audio. *tts.Client satisfies it.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	Format() string
}

// NoteDistributor fans enriched notes out to target profiles.
// *profiles.Distributor satisfies it.
type NoteDistributor interface {
	Distribute(ctx context.Context, noteIDs []int64, targets []string, media []notes.MediaAsset) []profiles.Result
}

// Settings are the per-run knobs the pipeline needs, resolved by the caller
// from file config and store overrides.
type Settings struct {
	Deck          string
	Model         string
	Targets       []string
	ChunkSize     int
	ImagesEnabled bool
}

// Summary is the terminal outcome of one pipeline run.
type Summary struct {
	Created      int               `json:"created"`
	Duplicates   int               `json:"duplicates"`
	Errors       []string          `json:"errors,omitempty"`
	Distribution []profiles.Result `json:"distribution,omitempty"`
}

// Pipeline orchestrates the enrichment stages over the automation backend
// and the generation services.
type Pipeline struct {
	backend     profiles.Backend
	generator   TextGenerator
	speech      SpeechSynthesizer
	distributor NoteDistributor
	settings    Settings
	logger      *slog.Logger
}

// NewPipeline wires a pipeline. distributor may be nil when distribution is
// not configured; the final stage is then skipped.
func NewPipeline(
	backend profiles.Backend,
	generator TextGenerator,
	speech SpeechSynthesizer,
	distributor NoteDistributor,
	settings Settings,
	logger *slog.Logger,
) *Pipeline {
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = 20
	}
	return &Pipeline{
		backend:     backend,
		generator:   generator,
		speech:      speech,
		distributor: distributor,
		settings:    settings,
		logger:      logging.NewComponentLogger(logger, "enrich"),
	}
}

// record tracks one word through the stages. A non-empty errMsg means some
// stage failed for this word; later per-word stages still run where their
// inputs allow.
type record struct {
	word     string
	noteID   int64
	identity string
	text     *generatedText
	errMsg   string
}

func (r *record) sentence() string {
	if r.text == nil {
		return ""
	}
	return strings.TrimSpace(r.text.Sentence)
}

func (r *record) fail(msg string) {
	if r.errMsg == "" {
		r.errMsg = msg
	}
}

// Run drives the full batch through every stage and returns the summary.
// The returned error is non-nil only when an entire stage is meaningless,
// such as the backend being unreachable during creation; per-word failures
// land in Summary.Errors instead.
func (p *Pipeline) Run(ctx context.Context, words []string, reporter ProgressSink, lang config.Language) (Summary, error) {
	if reporter == nil {
		reporter = NopSink{}
	}
	summary := Summary{}

	reporter.Update(ctx, "Checking for duplicates...")
	fresh, duplicates, err := p.filterDuplicates(ctx, words)
	if err != nil {
		return summary, err
	}
	summary.Duplicates = duplicates

	reporter.Update(ctx, fmt.Sprintf("Creating %d notes...", len(fresh)))
	records, err := p.createRecords(ctx, fresh, &summary)
	if err != nil {
		return summary, err
	}
	summary.Created = len(records)
	if len(records) == 0 {
		p.finish(ctx, reporter, &summary)
		return summary, nil
	}

	reporter.Update(ctx, "Generating text...")
	p.generateText(ctx, records, lang)

	reporter.Update(ctx, "Saving text fields...")
	p.persistText(ctx, records)

	reporter.Update(ctx, "Generating audio...")
	media := p.generateAudio(ctx, records, lang)

	if p.settings.ImagesEnabled {
		reporter.Update(ctx, "Generating images...")
		media = append(media, p.generateImages(ctx, records)...)
	}

	if p.distributor != nil && len(p.settings.Targets) > 0 {
		reporter.Update(ctx, "Distributing to target profiles...")
		summary.Distribution = p.distributor.Distribute(ctx, recordIDs(records), p.settings.Targets, media)
	}

	for _, rec := range records {
		if rec.errMsg != "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", rec.word, rec.errMsg))
		}
	}

	p.finish(ctx, reporter, &summary)
	return summary, nil
}

func (p *Pipeline) finish(ctx context.Context, reporter ProgressSink, summary *Summary) {
	text := fmt.Sprintf("Done: %d created, %d duplicates, %d errors",
		summary.Created, summary.Duplicates, len(summary.Errors))
	if err := reporter.Send(ctx, text); err != nil {
		p.logger.Warn("progress summary delivery failed", logging.Error(err))
	}
}

// filterDuplicates partitions input words into fresh ones and ones that
// already exist in the deck. Matching is case-insensitive on the word text;
// repeats within the batch count as duplicates too.
func (p *Pipeline) filterDuplicates(ctx context.Context, words []string) ([]string, int, error) {
	var fresh []string
	duplicates := 0
	seen := make(map[string]bool)

	for _, raw := range words {
		word := strings.TrimSpace(raw)
		if word == "" {
			continue
		}
		key := notes.WordKey(word)
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true

		existing, err := p.backend.FindNotes(ctx, notes.FieldQuery(p.settings.Deck, notes.FieldWord, word))
		if err != nil {
			return nil, 0, services.Wrap(services.ErrConnectivity, "enrich", "duplicate filter", "query existing notes", err)
		}
		if len(existing) > 0 {
			duplicates++
			continue
		}
		fresh = append(fresh, word)
	}
	return fresh, duplicates, nil
}

// createRecords adds one skeleton note per fresh word, carrying only the
// word and a generated identity. Creation failures drop the word with no
// retry; an unreachable backend aborts the run.
func (p *Pipeline) createRecords(ctx context.Context, words []string, summary *Summary) ([]*record, error) {
	var records []*record
	for _, word := range words {
		identity := notes.NewIdentity()
		id, err := p.backend.AddNote(ctx, anki.NewNote{
			Deck:  p.settings.Deck,
			Model: p.settings.Model,
			Fields: map[string]string{
				notes.FieldWord:   word,
				notes.FieldNoteID: identity,
			},
		})
		if errors.Is(err, anki.ErrDuplicateNote) {
			// The filter raced with an externally created note.
			summary.Duplicates++
			continue
		}
		if err != nil {
			return nil, services.Wrap(services.ErrConnectivity, "enrich", "creation", fmt.Sprintf("create note for %q", word), err)
		}
		records = append(records, &record{word: word, noteID: id, identity: identity})
	}
	return records, nil
}

// generateText issues one LLM request per chunk and attaches the parsed
// items to their records. A whole-chunk failure marks every record in that
// chunk; chunks are never retried or split.
func (p *Pipeline) generateText(ctx context.Context, records []*record, lang config.Language) {
	for _, chunk := range chunkRecords(records, p.settings.ChunkSize) {
		chunkWords := make([]string, len(chunk))
		for i, rec := range chunk {
			chunkWords[i] = rec.word
		}

		system, user := buildTextPrompts(chunkWords, lang)
		content, err := p.generator.CompleteJSON(ctx, system, user)
		if err == nil {
			var items []generatedText
			err = llm.DecodeJSON(content, &items)
			if err == nil {
				for i, rec := range chunk {
					if match := matchGenerated(items, i, rec.word); match != nil {
						rec.text = match
					} else {
						rec.fail("no result returned for this word")
					}
				}
				continue
			}
		}

		p.logger.Warn("text generation failed for chunk",
			logging.Int("words", len(chunk)),
			logging.Error(err),
		)
		for _, rec := range chunk {
			rec.fail(fmt.Sprintf("text generation failed: %v", err))
		}
	}
}

// persistText writes generated fields back, deriving the highlighted and
// cloze sentence forms with the same first-match substitution.
func (p *Pipeline) persistText(ctx context.Context, records []*record) {
	for _, rec := range records {
		if rec.text == nil {
			continue
		}
		fields := map[string]string{
			notes.FieldDefinition:  rec.text.Definition,
			notes.FieldTranslation: rec.text.Translation,
			notes.FieldSentence:    rec.text.Sentence,
		}
		if sentence := rec.sentence(); sentence != "" {
			fields[notes.FieldSentenceHighlighted] = HighlightSentence(sentence, rec.word)
			fields[notes.FieldSentenceCloze] = ClozeSentence(sentence, rec.word)
		}
		if err := p.backend.UpdateNoteFields(ctx, rec.noteID, fields); err != nil {
			rec.fail(fmt.Sprintf("save text fields: %v", err))
		}
	}
}

type audioClip struct {
	field    string
	filename string
	data     []byte
	err      error
}

// generateAudio produces the word clip for every record and the sentence
// clip when a sentence exists. The two requests for one record run
// concurrently and are joined before the next record starts.
func (p *Pipeline) generateAudio(ctx context.Context, records []*record, lang config.Language) []notes.MediaAsset {
	var media []notes.MediaAsset
	format := p.speech.Format()

	for _, rec := range records {
		clips := []*audioClip{{
			field:    notes.FieldAudio,
			filename: notes.WordAudioFilename(rec.word, rec.noteID, format),
		}}
		texts := []string{rec.word}
		if sentence := rec.sentence(); sentence != "" {
			clips = append(clips, &audioClip{
				field:    notes.FieldSentenceAudio,
				filename: notes.SentenceAudioFilename(rec.word, rec.noteID, format),
			})
			texts = append(texts, sentence)
		}

		var wg sync.WaitGroup
		for i := range clips {
			wg.Add(1)
			go func(clip *audioClip, text string) {
				defer wg.Done()
				clip.data, clip.err = p.speech.Synthesize(ctx, text, lang.Voice)
			}(clips[i], texts[i])
		}
		wg.Wait()

		fields := make(map[string]string, len(clips))
		for _, clip := range clips {
			if clip.err != nil {
				rec.fail(fmt.Sprintf("audio generation: %v", clip.err))
				continue
			}
			encoded := base64.StdEncoding.EncodeToString(clip.data)
			if _, err := p.backend.StoreMediaFile(ctx, clip.filename, encoded); err != nil {
				rec.fail(fmt.Sprintf("store audio %s: %v", clip.filename, err))
				continue
			}
			fields[clip.field] = notes.SoundRef(clip.filename)
			media = append(media, notes.MediaAsset{Filename: clip.filename, Data: encoded})
		}
		if len(fields) == 0 {
			continue
		}
		if err := p.backend.UpdateNoteFields(ctx, rec.noteID, fields); err != nil {
			rec.fail(fmt.Sprintf("save audio fields: %v", err))
		}
	}
	return media
}

const imagePromptTemplate = `Create a simple, clear illustration for a language-learning flashcard.
It should depict the scene described by this sentence: %s
No text in the image.`

// generateImages produces one illustrative image per record with a sentence.
// Records without a sentence are skipped, not errored.
func (p *Pipeline) generateImages(ctx context.Context, records []*record) []notes.MediaAsset {
	var media []notes.MediaAsset
	for _, rec := range records {
		sentence := rec.sentence()
		if sentence == "" {
			continue
		}

		encoded, err := p.generator.GenerateImage(ctx, fmt.Sprintf(imagePromptTemplate, sentence))
		if err != nil {
			rec.fail(fmt.Sprintf("image generation: %v", err))
			continue
		}

		filename := notes.ImageFilename(rec.word, rec.noteID)
		if _, err := p.backend.StoreMediaFile(ctx, filename, encoded); err != nil {
			rec.fail(fmt.Sprintf("store image %s: %v", filename, err))
			continue
		}
		if err := p.backend.UpdateNoteFields(ctx, rec.noteID, map[string]string{
			notes.FieldPicture: notes.ImageRef(filename),
		}); err != nil {
			rec.fail(fmt.Sprintf("save picture field: %v", err))
			continue
		}
		media = append(media, notes.MediaAsset{Filename: filename, Data: encoded})
	}
	return media
}

func recordIDs(records []*record) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.noteID)
	}
	return ids
}
