package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// FakeNote is one note inside a fake profile.
type FakeNote struct {
	ID     int64
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// FakeProfile is an isolated data partition of the fake backend.
type FakeProfile struct {
	Decks  map[string]bool
	Models map[string][]string
	Notes  map[int64]*FakeNote
	Media  map[string]string
}

// FakeAnki emulates the automation endpoint over real HTTP. One profile is
// active at a time; loadProfile honors SwitchPolls so tests can exercise the
// readiness-polling protocol.
type FakeAnki struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	profiles map[string]*FakeProfile
	active   string
	nextID   int64

	// SwitchPolls delays profile switches: after loadProfile, this many
	// deckNames calls still see the old profile before the switch lands.
	SwitchPolls int
	pendingTo   string
	pendingLeft int

	failures map[string]string
	calls    []string
}

// NewFakeAnki starts a fake backend with the given profile names, each
// seeded with the deck/model schema used across tests.
func NewFakeAnki(t testing.TB, profileNames ...string) *FakeAnki {
	t.Helper()
	if len(profileNames) == 0 {
		t.Fatal("NewFakeAnki requires at least one profile")
	}
	fake := &FakeAnki{
		t:        t,
		profiles: make(map[string]*FakeProfile),
		active:   profileNames[0],
		nextID:   1000,
		failures: make(map[string]string),
	}
	for _, name := range profileNames {
		fake.profiles[name] = &FakeProfile{
			Decks:  map[string]bool{"Default": true},
			Models: map[string][]string{},
			Notes:  map[int64]*FakeNote{},
			Media:  map[string]string{},
		}
	}
	fake.server = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.server.Close)
	return fake
}

// URL returns the endpoint address for client configuration.
func (f *FakeAnki) URL() string { return f.server.URL }

// Profile returns the named profile for seeding and assertions.
func (f *FakeAnki) Profile(name string) *FakeProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile := f.profiles[name]
	if profile == nil {
		f.t.Fatalf("unknown fake profile %q", name)
	}
	return profile
}

// Active reports which profile is currently loaded.
func (f *FakeAnki) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Seed creates a deck and model pair in the named profile.
func (f *FakeAnki) Seed(profile, deck, model string, fields []string) {
	p := f.Profile(profile)
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Decks[deck] = true
	p.Models[model] = append([]string{}, fields...)
}

// AddNote inserts a note directly into the named profile and returns its ID.
func (f *FakeAnki) AddNote(profile, deck, model string, fieldValues map[string]string, tags ...string) int64 {
	p := f.Profile(profile)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	copied := make(map[string]string, len(fieldValues))
	for k, v := range fieldValues {
		copied[k] = v
	}
	p.Notes[id] = &FakeNote{ID: id, Deck: deck, Model: model, Fields: copied, Tags: tags}
	return id
}

// FailAction makes every subsequent call of the named action return the
// given error string in the envelope.
func (f *FakeAnki) FailAction(action, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[action] = message
}

// ClearFailure removes an injected failure.
func (f *FakeAnki) ClearFailure(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, action)
}

// Calls returns the recorded action log, one entry per request, in order.
func (f *FakeAnki) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

type fakeEnvelope struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

func (f *FakeAnki) handle(w http.ResponseWriter, r *http.Request) {
	var env fakeEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	result, errMsg := f.dispatch(env)
	f.mu.Unlock()

	reply := map[string]any{"result": result, "error": nil}
	if errMsg != "" {
		reply["result"] = nil
		reply["error"] = errMsg
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// dispatch runs under f.mu.
func (f *FakeAnki) dispatch(env fakeEnvelope) (any, string) {
	f.calls = append(f.calls, env.Action)
	if msg, ok := f.failures[env.Action]; ok {
		return nil, msg
	}

	switch env.Action {
	case "version":
		return 6, ""
	case "deckNames":
		f.advanceSwitch()
		return sortedKeys(f.activeProfile().Decks), ""
	case "modelNames":
		return sortedKeys(f.activeProfile().Models), ""
	case "modelFieldNames":
		var params struct {
			ModelName string `json:"modelName"`
		}
		_ = json.Unmarshal(env.Params, &params)
		fields, ok := f.activeProfile().Models[params.ModelName]
		if !ok {
			return nil, fmt.Sprintf("model was not found: %s", params.ModelName)
		}
		return fields, ""
	case "createDeck":
		var params struct {
			Deck string `json:"deck"`
		}
		_ = json.Unmarshal(env.Params, &params)
		f.activeProfile().Decks[params.Deck] = true
		return 1, ""
	case "getProfiles":
		return sortedKeys(f.profiles), ""
	case "loadProfile":
		var params struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(env.Params, &params)
		f.calls[len(f.calls)-1] = "loadProfile:" + params.Name
		if _, ok := f.profiles[params.Name]; !ok {
			return false, ""
		}
		if f.SwitchPolls > 0 && params.Name != f.active {
			f.pendingTo = params.Name
			f.pendingLeft = f.SwitchPolls
		} else {
			f.active = params.Name
		}
		return true, ""
	case "findNotes":
		var params struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(env.Params, &params)
		return f.findNotes(params.Query), ""
	case "notesInfo":
		var params struct {
			Notes []int64 `json:"notes"`
		}
		_ = json.Unmarshal(env.Params, &params)
		return f.notesInfo(params.Notes), ""
	case "addNote":
		var params struct {
			Note fakeNewNote `json:"note"`
		}
		_ = json.Unmarshal(env.Params, &params)
		return f.addNote(params.Note), ""
	case "addNotes":
		var params struct {
			Notes []fakeNewNote `json:"notes"`
		}
		_ = json.Unmarshal(env.Params, &params)
		ids := make([]any, 0, len(params.Notes))
		for _, note := range params.Notes {
			ids = append(ids, f.addNote(note))
		}
		return ids, ""
	case "updateNoteFields":
		var params struct {
			Note struct {
				ID     int64             `json:"id"`
				Fields map[string]string `json:"fields"`
			} `json:"note"`
		}
		_ = json.Unmarshal(env.Params, &params)
		note, ok := f.activeProfile().Notes[params.Note.ID]
		if !ok {
			return nil, fmt.Sprintf("note was not found: %d", params.Note.ID)
		}
		for name, value := range params.Note.Fields {
			note.Fields[name] = value
		}
		return nil, ""
	case "storeMediaFile":
		var params struct {
			Filename string `json:"filename"`
			Data     string `json:"data"`
		}
		_ = json.Unmarshal(env.Params, &params)
		f.activeProfile().Media[params.Filename] = params.Data
		return params.Filename, ""
	case "sync":
		return nil, ""
	default:
		return nil, fmt.Sprintf("unsupported action: %s", env.Action)
	}
}

type fakeNewNote struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
}

func (f *FakeAnki) activeProfile() *FakeProfile {
	return f.profiles[f.active]
}

func (f *FakeAnki) advanceSwitch() {
	if f.pendingTo == "" {
		return
	}
	f.pendingLeft--
	if f.pendingLeft <= 0 {
		f.active = f.pendingTo
		f.pendingTo = ""
	}
}

// addNote mirrors the backend's duplicate rule: a note whose first model
// field matches an existing note in the same deck is rejected with a null ID.
func (f *FakeAnki) addNote(note fakeNewNote) any {
	profile := f.activeProfile()
	primary := ""
	if fields, ok := profile.Models[note.ModelName]; ok && len(fields) > 0 {
		primary = fields[0]
	}
	if primary != "" {
		for _, existing := range profile.Notes {
			if existing.Deck == note.DeckName &&
				strings.EqualFold(existing.Fields[primary], note.Fields[primary]) {
				return nil
			}
		}
	}
	f.nextID++
	id := f.nextID
	copied := make(map[string]string, len(note.Fields))
	for k, v := range note.Fields {
		copied[k] = v
	}
	profile.Notes[id] = &FakeNote{
		ID:     id,
		Deck:   note.DeckName,
		Model:  note.ModelName,
		Fields: copied,
		Tags:   note.Tags,
	}
	return id
}

func (f *FakeAnki) notesInfo(ids []int64) []map[string]any {
	infos := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		note, ok := f.activeProfile().Notes[id]
		if !ok {
			continue
		}
		fields := make(map[string]map[string]any, len(note.Fields))
		order := 0
		for name, value := range note.Fields {
			fields[name] = map[string]any{"value": value, "order": order}
			order++
		}
		tags := note.Tags
		if tags == nil {
			tags = []string{}
		}
		infos = append(infos, map[string]any{
			"noteId":    note.ID,
			"modelName": note.Model,
			"tags":      tags,
			"fields":    fields,
		})
	}
	return infos
}

// findNotes understands the subset of the search grammar the portal emits:
// deck:"X" plus either Field:"value", "Field:value", or "free text".
func (f *FakeAnki) findNotes(query string) []int64 {
	deck, field, value, text := parseQuery(query)
	var ids []int64
	for _, note := range f.activeProfile().Notes {
		if deck != "" && note.Deck != deck {
			continue
		}
		if field != "" {
			if !strings.EqualFold(strings.TrimSpace(note.Fields[field]), value) {
				continue
			}
		} else if text != "" {
			found := false
			for _, fieldValue := range note.Fields {
				if strings.Contains(fieldValue, text) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		ids = append(ids, note.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func parseQuery(query string) (deck, field, value, text string) {
	for _, token := range tokenizeQuery(query) {
		switch {
		case strings.HasPrefix(token, "deck:"):
			deck = unquote(strings.TrimPrefix(token, "deck:"))
		case strings.Contains(token, ":"):
			parts := strings.SplitN(unquote(token), ":", 2)
			field, value = parts[0], parts[1]
		default:
			text = unquote(token)
		}
	}
	return deck, field, value, text
}

// tokenizeQuery splits on spaces outside double quotes, keeping quotes so
// prefix checks still work.
func tokenizeQuery(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	escaped := false
	for _, r := range query {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func unquote(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 2 && token[0] == '"' && token[len(token)-1] == '"' {
		token = token[1 : len(token)-1]
	}
	token = strings.ReplaceAll(token, `\"`, `"`)
	return strings.ReplaceAll(token, `\\`, `\`)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
