package enrich_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/enrich"
	"deckhand/internal/logging"
	"deckhand/internal/notes"
	"deckhand/internal/profiles"
	"deckhand/internal/services"
	"deckhand/internal/services/anki"
	"deckhand/internal/testsupport"
)

var noteFields = []string{
	notes.FieldWord, notes.FieldNoteID,
	notes.FieldDefinition, notes.FieldTranslation, notes.FieldSentence,
	notes.FieldSentenceHighlighted, notes.FieldSentenceCloze,
	notes.FieldAudio, notes.FieldSentenceAudio, notes.FieldPicture,
}

// scriptedGenerator answers text requests by echoing the words it finds in
// the prompt, unless a scripted reply overrides a given call.
type scriptedGenerator struct {
	mu        sync.Mutex
	calls     int
	overrides map[int]string
	errOn     map[int]error
	sentence  func(word string) string
	image     string
	imageErr  error
}

func (g *scriptedGenerator) CompleteJSON(_ context.Context, _, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if err, ok := g.errOn[g.calls]; ok {
		return "", err
	}
	if reply, ok := g.overrides[g.calls]; ok {
		return reply, nil
	}

	var items []map[string]string
	for _, line := range strings.Split(userPrompt, "\n") {
		_, word, found := strings.Cut(line, ". ")
		if !found {
			continue
		}
		sentence := "The " + word + " is here."
		if g.sentence != nil {
			sentence = g.sentence(word)
		}
		items = append(items, map[string]string{
			"word":        word,
			"definition":  "meaning of " + word,
			"translation": word + " (en)",
			"sentence":    sentence,
		})
	}
	encoded, err := json.Marshal(items)
	return string(encoded), err
}

func (g *scriptedGenerator) GenerateImage(context.Context, string) (string, error) {
	if g.imageErr != nil {
		return "", g.imageErr
	}
	if g.image == "" {
		return "aW1hZ2U=", nil
	}
	return g.image, nil
}

type fakeSpeech struct {
	mu     sync.Mutex
	failOn string
}

func (s *fakeSpeech) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("speech backend unavailable")
	}
	return []byte("audio:" + text), nil
}

func (s *fakeSpeech) Format() string { return "mp3" }

type pipelineFixture struct {
	fake     *testsupport.FakeAnki
	backend  *anki.Client
	gen      *scriptedGenerator
	speech   *fakeSpeech
	pipeline *enrich.Pipeline
}

func newFixture(t *testing.T, settings enrich.Settings, withDistribution bool, profileNames ...string) *pipelineFixture {
	t.Helper()
	if len(profileNames) == 0 {
		profileNames = []string{"User 1"}
	}
	fake := testsupport.NewFakeAnki(t, profileNames...)
	for _, name := range profileNames {
		fake.Seed(name, settings.Deck, settings.Model, noteFields)
	}

	cfg := testsupport.NewConfig(t, testsupport.WithAnkiURL(fake.URL()))
	backend := anki.NewClient(anki.Config{URL: cfg.Anki.URL})
	logger := logging.NewNop()

	var distributor enrich.NoteDistributor
	if withDistribution {
		lock := profiles.NewLock()
		switcher := profiles.NewSwitcher(backend, profiles.TimingsFromConfig(cfg.Switch), logger)
		distributor = profiles.NewDistributor(
			backend, lock, switcher,
			profileNames[0], settings.Deck, settings.Model, logger,
		)
	}

	gen := &scriptedGenerator{overrides: map[int]string{}, errOn: map[int]error{}}
	speech := &fakeSpeech{}
	return &pipelineFixture{
		fake:    fake,
		backend: backend,
		gen:     gen,
		speech:  speech,
		pipeline: enrich.NewPipeline(
			backend, gen, speech, distributor, settings, logger,
		),
	}
}

func defaultSettings(targets ...string) enrich.Settings {
	return enrich.Settings{
		Deck:          "Vocabulary",
		Model:         "Vocabulary",
		Targets:       targets,
		ChunkSize:     20,
		ImagesEnabled: true,
	}
}

func homeNoteByWord(t *testing.T, fake *testsupport.FakeAnki, profile, word string) *testsupport.FakeNote {
	t.Helper()
	for _, note := range fake.Profile(profile).Notes {
		if strings.EqualFold(note.Fields[notes.FieldWord], word) {
			return note
		}
	}
	t.Fatalf("no note for word %q in profile %q", word, profile)
	return nil
}

func TestFreshWordSingleTarget(t *testing.T) {
	fx := newFixture(t, defaultSettings("Spanish"), true, "User 1", "Spanish")

	summary, err := fx.pipeline.Run(context.Background(), []string{"creature"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 1 || summary.Duplicates != 0 || len(summary.Errors) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	note := homeNoteByWord(t, fx.fake, "User 1", "creature")
	if note.Fields[notes.FieldNoteID] == "" {
		t.Fatal("note has no identity")
	}
	if note.Fields[notes.FieldDefinition] != "meaning of creature" {
		t.Fatalf("unexpected definition %q", note.Fields[notes.FieldDefinition])
	}
	if got := note.Fields[notes.FieldSentenceHighlighted]; !strings.Contains(got, `<span class="target">creature</span>`) {
		t.Fatalf("unexpected highlighted sentence %q", got)
	}
	if got := note.Fields[notes.FieldSentenceCloze]; !strings.Contains(got, "{{c1::creature}}") {
		t.Fatalf("unexpected cloze sentence %q", got)
	}
	if got := note.Fields[notes.FieldAudio]; !strings.HasPrefix(got, "[sound:deckhand-creature-") {
		t.Fatalf("unexpected audio field %q", got)
	}
	if got := note.Fields[notes.FieldSentenceAudio]; !strings.Contains(got, "-sentence.mp3]") {
		t.Fatalf("unexpected sentence audio field %q", got)
	}
	if got := note.Fields[notes.FieldPicture]; !strings.HasPrefix(got, `<img src="deckhand-creature-`) {
		t.Fatalf("unexpected picture field %q", got)
	}

	// Two audio clips plus one image in the home media collection.
	if got := len(fx.fake.Profile("User 1").Media); got != 3 {
		t.Fatalf("expected 3 media assets at home, got %d", got)
	}

	if len(summary.Distribution) != 1 {
		t.Fatalf("expected one distribution result, got %v", summary.Distribution)
	}
	result := summary.Distribution[0]
	if result.Profile != "Spanish" || !result.Success || result.NotesDistributed != 1 {
		t.Fatalf("unexpected distribution result %+v", result)
	}
	target := homeNoteByWord(t, fx.fake, "Spanish", "creature")
	if target.Fields[notes.FieldNoteID] != note.Fields[notes.FieldNoteID] {
		t.Fatal("identity not preserved across profiles")
	}
	if got := len(fx.fake.Profile("Spanish").Media); got != 3 {
		t.Fatalf("expected media copied to target, got %d", got)
	}
	if fx.fake.Active() != "User 1" {
		t.Fatalf("home profile not restored, active is %q", fx.fake.Active())
	}
}

func TestDuplicateWordsSkipped(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.fake.AddNote("User 1", "Vocabulary", "Vocabulary", map[string]string{
		notes.FieldWord:   "creature",
		notes.FieldNoteID: notes.NewIdentity(),
	})

	summary, err := fx.pipeline.Run(context.Background(),
		[]string{"Creature", "nuevo", "NUEVO"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}
	if summary.Duplicates != 2 {
		t.Fatalf("expected 2 duplicates, got %d", summary.Duplicates)
	}
}

func TestChunkedBatchWithMalformedSecondChunk(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)

	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	fx.gen.overrides[2] = "this is not json at all"

	summary, err := fx.pipeline.Run(context.Background(), words, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 25 {
		t.Fatalf("expected 25 created, got %d", summary.Created)
	}
	if len(summary.Errors) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(summary.Errors), summary.Errors)
	}
	for _, msg := range summary.Errors {
		if !strings.Contains(msg, "text generation failed") {
			t.Fatalf("unexpected error message %q", msg)
		}
	}

	// Chunk 1 records still completed the later stages.
	first := homeNoteByWord(t, fx.fake, "User 1", "word00")
	if first.Fields[notes.FieldDefinition] == "" || first.Fields[notes.FieldAudio] == "" {
		t.Fatalf("chunk 1 record missing enrichment: %+v", first.Fields)
	}
	// Chunk 2 records were created but carry no generated text.
	last := homeNoteByWord(t, fx.fake, "User 1", "word24")
	if last.Fields[notes.FieldDefinition] != "" {
		t.Fatalf("chunk 2 record unexpectedly enriched: %+v", last.Fields)
	}
	// Word audio needs no sentence, so it still exists.
	if last.Fields[notes.FieldAudio] == "" {
		t.Fatal("chunk 2 record missing word audio")
	}
}

func TestMissingChunkItemMarksOnlyThatWord(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.gen.overrides[1] = `[{"word":"uno","definition":"one","translation":"one","sentence":"Uno momento."}]`

	summary, err := fx.pipeline.Run(context.Background(), []string{"uno", "dos"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 2 {
		t.Fatalf("expected 2 created, got %d", summary.Created)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", summary.Errors)
	}
	if !strings.Contains(summary.Errors[0], "dos") || !strings.Contains(summary.Errors[0], "no result returned for this word") {
		t.Fatalf("unexpected error %q", summary.Errors[0])
	}
	if note := homeNoteByWord(t, fx.fake, "User 1", "uno"); note.Fields[notes.FieldDefinition] != "one" {
		t.Fatalf("matched word not persisted: %+v", note.Fields)
	}
}

func TestMisalignedChunkFallsBackToWordMatch(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.gen.overrides[1] = `[
		{"word":"dos","definition":"two","translation":"two","sentence":""},
		{"word":"uno","definition":"one","translation":"one","sentence":""}
	]`

	summary, err := fx.pipeline.Run(context.Background(), []string{"uno", "dos"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors %v", summary.Errors)
	}
	if note := homeNoteByWord(t, fx.fake, "User 1", "uno"); note.Fields[notes.FieldDefinition] != "one" {
		t.Fatalf("fallback match failed: %+v", note.Fields)
	}
}

func TestSentencelessRecordSkipsSentenceMedia(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.gen.sentence = func(string) string { return "" }

	summary, err := fx.pipeline.Run(context.Background(), []string{"palabra"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("sentenceless record must not error: %v", summary.Errors)
	}

	note := homeNoteByWord(t, fx.fake, "User 1", "palabra")
	if note.Fields[notes.FieldAudio] == "" {
		t.Fatal("word audio missing")
	}
	if note.Fields[notes.FieldSentenceAudio] != "" {
		t.Fatal("sentence audio generated without a sentence")
	}
	if note.Fields[notes.FieldPicture] != "" {
		t.Fatal("image generated without a sentence")
	}
	if got := len(fx.fake.Profile("User 1").Media); got != 1 {
		t.Fatalf("expected only the word clip, got %d assets", got)
	}
}

func TestAudioFailureDoesNotBlockOtherStages(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.speech.failOn = "The palabra is here."

	summary, err := fx.pipeline.Run(context.Background(), []string{"palabra"}, nil, config.Language{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "audio generation") {
		t.Fatalf("expected a captured audio error, got %v", summary.Errors)
	}

	note := homeNoteByWord(t, fx.fake, "User 1", "palabra")
	if note.Fields[notes.FieldAudio] == "" {
		t.Fatal("word clip should still be generated")
	}
	if note.Fields[notes.FieldPicture] == "" {
		t.Fatal("image stage should still run after an audio failure")
	}
}

func TestCreationConnectivityFailureAbortsRun(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)
	fx.fake.FailAction("addNote", "collection is not available")

	_, err := fx.pipeline.Run(context.Background(), []string{"palabra"}, nil, config.Language{})
	if err == nil {
		t.Fatal("expected run to abort")
	}
	if !errors.Is(err, services.ErrConnectivity) {
		t.Fatalf("expected connectivity marker, got %v", err)
	}
}

func TestProgressReporting(t *testing.T) {
	fx := newFixture(t, defaultSettings(), false)

	var updates, sends []string
	sink := &recordingSink{updates: &updates, sends: &sends}
	if _, err := fx.pipeline.Run(context.Background(), []string{"palabra"}, sink, config.Language{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(updates) == 0 {
		t.Fatal("expected progress updates")
	}
	if len(sends) != 1 || !strings.Contains(sends[0], "1 created") {
		t.Fatalf("expected one terminal summary, got %v", sends)
	}
}

type recordingSink struct {
	updates *[]string
	sends   *[]string
}

func (s *recordingSink) Update(_ context.Context, text string) {
	*s.updates = append(*s.updates, text)
}

func (s *recordingSink) Send(_ context.Context, text string) error {
	*s.sends = append(*s.sends, text)
	return nil
}
